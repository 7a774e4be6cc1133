package tasks

import (
	"context"
	"strings"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// NewPlanningTask builds a task that turns a topic or goal into an
// ordered list of steps, one per line, stripped of any numbering the
// model adds.
func NewPlanningTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "Break the following goal into a short, ordered list of concrete steps. Output one step per line with no numbering or commentary."},
					{Role: llm.RoleUser, Content: in.Text},
				},
				Temperature: temp(0.2),
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "planning generation failed",
					Code:    "PLANNING_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			steps := splitSteps(text)
			p.Events.Emit(name+".plan", steps)
			return workflow.Result(steps), nil
		},
	}
}

func splitSteps(text string) []string {
	lines := strings.Split(text, "\n")
	steps := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "0123456789.-) ")
		if l != "" {
			steps = append(steps, l)
		}
	}
	return steps
}
