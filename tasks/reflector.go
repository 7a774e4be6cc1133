package tasks

import (
	"context"
	"strings"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// Reflection is what NewReflectorTask produces: a critique of the input
// plus whether it judged the input good enough to stop revising.
type Reflection struct {
	Critique     string
	Satisfactory bool
}

// NewReflectorTask builds a task that critiques the incoming text and
// decides whether further revision is warranted. When the critique judges
// the text unsatisfactory, it redirects to reviseTask (carrying the
// critique as data). Otherwise, and whenever reviseTask is empty, it
// returns the reflection with no route of its own, so the task's router
// decides what happens next (the run ends when no router is set).
func NewReflectorTask(name string, reviseTask string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)

			text, err := deps.Generator.Generate(ctx, llm.Params{
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "Critique the following text for correctness, clarity, and completeness. " +
						"End your response with exactly one line reading either 'VERDICT: satisfactory' or 'VERDICT: needs revision'."},
					{Role: llm.RoleUser, Content: in.Text},
				},
				Temperature: temp(0.3),
			})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "reflection generation failed",
					Code:    "REFLECTION_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			reflection := Reflection{
				Critique:     text,
				Satisfactory: strings.Contains(strings.ToLower(text), "verdict: satisfactory"),
			}
			p.Events.Emit(name+".reflection", reflection)

			if !reflection.Satisfactory && reviseTask != "" {
				return workflow.ResultWithRoute(reflection, workflow.Goto(reviseTask)), nil
			}
			return workflow.Result(reflection), nil
		},
	}
}
