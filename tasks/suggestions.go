package tasks

import (
	"context"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// NewSuggestionsTask builds a task that proposes follow-up questions or
// actions a user might want next, given the incoming text as context.
func NewSuggestionsTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "Given the conversation so far, suggest three short, specific follow-up questions the user might ask next. One per line, no numbering."},
					{Role: llm.RoleUser, Content: in.Text},
				},
				Temperature: temp(0.8),
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "suggestions generation failed",
					Code:    "SUGGESTIONS_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			suggestions := splitLines(text)
			p.Events.Emit(name+".suggestions", suggestions)
			return workflow.Result(suggestions), nil
		},
	}
}
