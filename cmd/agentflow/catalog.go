package main

import (
	"fmt"
	"time"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/llm/anthropic"
	"github.com/flowforge/agentflow/llm/google"
	"github.com/flowforge/agentflow/llm/openai"
	"github.com/flowforge/agentflow/tool"
	"github.com/flowforge/agentflow/workflow"
)

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Catalog is the YAML document cmd/agentflow loads to describe a workflow:
// which provider generates text, which tools its tasks may call, the
// engine-wide Config defaults, and the named tasks themselves. This is the
// "workflow/task-catalog definition" the CLI runner reads to build an
// Engine without a line of Go.
type Catalog struct {
	Provider    ProviderSpec    `yaml:"provider"`
	Persistence PersistenceSpec `yaml:"persistence"`
	Workflow    WorkflowSpec    `yaml:"workflow"`
	Tools       []string        `yaml:"tools"`
	Tasks       []TaskSpec      `yaml:"tasks"`
}

// ProviderSpec selects and configures the llm.Generator every task in the
// catalog shares.
type ProviderSpec struct {
	Name   string `yaml:"name"`
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// PersistenceSpec selects the workflow.PersistenceLayer backend.
type PersistenceSpec struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// WorkflowSpec maps directly onto workflow.Option values.
type WorkflowSpec struct {
	MaxRetries           int     `yaml:"maxRetries"`
	TimeoutMs            int     `yaml:"timeoutMs"`
	RetryDelayMs         int     `yaml:"retryDelayMs"`
	RetryDelayMultiplier float64 `yaml:"retryDelayMultiplier"`
	MaxIterations        int     `yaml:"maxIterations"`
}

// TaskSpec describes one node of the catalog's task graph. Type selects
// which tasks.NewXxxTask constructor builds it; ReviseTask is only
// meaningful for type "reflector".
type TaskSpec struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Dependencies []string `yaml:"dependencies"`
	RetryCount   int      `yaml:"retryCount"`
	TimeoutMs    int      `yaml:"timeoutMs"`
	ReviseTask   string   `yaml:"reviseTask"`
	Next         string   `yaml:"next"`
}

// buildGenerator constructs the provider adapter named by spec.Name.
func buildGenerator(spec ProviderSpec) (llm.Generator, error) {
	switch spec.Name {
	case "anthropic":
		return anthropic.New(spec.APIKey, spec.Model), nil
	case "openai":
		return openai.New(spec.APIKey, spec.Model), nil
	case "google":
		return google.New(spec.APIKey, spec.Model), nil
	case "mock", "":
		return &llm.MockGenerator{Responses: []string{"mock response: set provider.name in the catalog for real generation"}}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic, openai, or google)", spec.Name)
	}
}

// buildRegistry resolves the catalog's tool name list against the tools
// this module ships. Unknown names are rejected up front rather than
// silently ignored at call time.
func buildRegistry(names []string) (*tool.Registry, error) {
	known := map[string]tool.Tool{
		"http_request": tool.NewHTTPTool(),
	}
	var resolved []tool.Tool
	for _, name := range names {
		t, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		resolved = append(resolved, t)
	}
	return tool.NewRegistry(resolved...), nil
}

// withStaticRoute wraps t so that, when its Execute leaves routing
// unresolved (no imperative redirect, no Outcome.Next), the engine routes
// to next. Tasks that decide their own routing internally (e.g. the
// reflector's revise loop) already win by the resolution order documented
// on ParamBundle.RedirectTo, so this only ever supplies a default.
func withStaticRoute(t workflow.Task, next string) workflow.Task {
	if next == "" {
		return t
	}
	route := workflow.Goto(next)
	if next == "end" {
		route = workflow.End()
	}
	t.Route = func(result any, ec *workflow.ExecutionContext) workflow.Route {
		return route
	}
	return t
}

func workflowOptions(spec WorkflowSpec) []workflow.Option {
	var opts []workflow.Option
	if spec.MaxRetries > 0 {
		opts = append(opts, workflow.WithMaxRetries(spec.MaxRetries))
	}
	if spec.TimeoutMs > 0 {
		opts = append(opts, workflow.WithTimeout(msToDuration(spec.TimeoutMs)))
	}
	if spec.RetryDelayMs > 0 {
		multiplier := spec.RetryDelayMultiplier
		if multiplier == 0 {
			multiplier = 1
		}
		opts = append(opts, workflow.WithRetryDelay(msToDuration(spec.RetryDelayMs), multiplier))
	}
	if spec.MaxIterations > 0 {
		opts = append(opts, workflow.WithMaxIterations(spec.MaxIterations))
	}
	return opts
}
