package tasks

import (
	"context"
	"strings"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// NewAnalyzerTask builds a task that extracts structured bullet-point
// insights from the incoming text, returning them as []string.
func NewAnalyzerTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "Analyze the following content. Output a short list of the most important findings, one per line, no numbering."},
					{Role: llm.RoleUser, Content: in.Text},
				},
				Temperature: temp(0.1),
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "analysis generation failed",
					Code:    "ANALYSIS_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			findings := splitLines(text)
			p.Events.Emit(name+".findings", findings)
			return workflow.Result(findings), nil
		},
	}
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
