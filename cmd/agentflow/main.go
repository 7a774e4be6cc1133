// Command agentflow is the CLI entry point for the workflow engine: it
// loads a task catalog from a YAML config file, wires a persistence
// backend, and either runs one workflow to completion while streaming
// events to stdout, or serves those events over SSE to HTTP clients.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var cfgFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentflow",
		Short: "Run LLM-backed workflows defined in a task catalog",
		Long: `agentflow loads a workflow/task-catalog definition from a YAML file,
wires an LLM provider, a tool registry, and a persistence backend, and
drives a workflow.Engine through it.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "agentflow.yaml", "path to the workflow/task-catalog YAML file")
	root.PersistentFlags().String("provider-api-key", "", "overrides provider.apiKey from the config file")
	_ = viper.BindPFlag("provider.apikey", root.PersistentFlags().Lookup("provider-api-key"))
	_ = viper.BindEnv("provider.apikey", "AGENTFLOW_API_KEY")

	root.AddCommand(newRunCommand())
	root.AddCommand(newServeCommand())

	return root
}

// loadCatalog decodes the YAML document at cfgFile into a Catalog, then
// lets a --provider-api-key flag or AGENTFLOW_API_KEY environment variable
// (bound through viper in newRootCommand) override the file's
// provider.apiKey — the one setting a catalog author will often want to
// keep out of the file entirely.
func loadCatalog() (Catalog, error) {
	raw, err := os.ReadFile(cfgFile)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading config %s: %w", cfgFile, err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return Catalog{}, fmt.Errorf("decoding catalog %s: %w", cfgFile, err)
	}

	if override := viper.GetString("provider.apikey"); override != "" {
		cat.Provider.APIKey = override
	}

	return cat, nil
}
