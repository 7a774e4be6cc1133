package tasks

import (
	"context"
	"strings"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// NewRefineQueryTask builds a task that rewrites a search query given
// feedback about why the prior results fell short. The incoming input's
// Text is the original query; Payload["feedback"] carries the reason it
// needs refining (e.g. a reflector's critique).
func NewRefineQueryTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)
			feedback, _ := in.Payload["feedback"].(string)

			prompt := "Original query: " + in.Text
			if feedback != "" {
				prompt += "\nWhy it needs refining: " + feedback
			}

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "Rewrite the search query to be more specific and likely to surface useful results. Output only the rewritten query, nothing else."},
					{Role: llm.RoleUser, Content: prompt},
				},
				Temperature: temp(0.4),
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "query refinement failed",
					Code:    "REFINE_QUERY_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			refined := strings.TrimSpace(text)
			p.Events.Emit(name+".refined", refined)
			return workflow.Result(refined), nil
		},
	}
}
