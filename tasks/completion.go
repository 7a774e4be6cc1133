package tasks

import (
	"context"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// NewCompletionTask builds a bare text-completion task: it sends the
// incoming data's text straight to the generator and returns whatever
// comes back, with no prompt scaffolding. Useful as the terminal step of
// a pipeline, or standalone for simple Q&A workflows.
func NewCompletionTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Prompt: in.Text,
				OnChunk: func(chunk, full string) {
					p.Events.Emit(name+".chunk", full)
				},
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "completion generation failed",
					Code:    "COMPLETION_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			return workflow.Result(text), nil
		},
	}
}
