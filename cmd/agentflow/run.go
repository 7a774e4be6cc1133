package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var task, input, workflowID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one workflow to completion, streaming events to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			if task == "" {
				if len(cat.Tasks) == 0 {
					return fmt.Errorf("catalog defines no tasks")
				}
				task = cat.Tasks[0].Name
			}
			if workflowID == "" {
				workflowID = uuid.NewString()
			}

			engine, events, err := buildEngine(cat)
			if err != nil {
				return err
			}
			printEvents(events)

			fmt.Printf("starting workflow %s at task %q\n", workflowID, task)
			return engine.Start(context.Background(), workflowID, task, input)
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "initial task name (defaults to the catalog's first task)")
	cmd.Flags().StringVar(&input, "input", "", "initial task input")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "workflow run identifier (defaults to a generated UUID)")

	return cmd
}
