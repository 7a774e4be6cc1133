// Package tasks provides the concrete workflow tasks named in the task
// library: completion, planning, web-search, writer, analyzer, reflector,
// refine-query, and suggestions. Each is a workflow.Task constructor built
// atop the llm and tool packages, so any of them can be registered with a
// workflow.Engine exactly like a hand-written task.
package tasks

import (
	"fmt"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/tool"
)

// Deps bundles the shared capabilities every task in this package draws
// on. Not every task needs Tools; those that don't simply ignore it.
type Deps struct {
	Generator llm.Generator
	Tools     *tool.Registry
}

// input is the common shape tasks in this package expect as a task's
// Data: free-form text plus an optional structured payload that a
// specific task interprets (e.g. refine-query's feedback, writer's
// research notes).
type input struct {
	Text    string
	Payload map[string]any
}

// asInput normalizes a task's incoming data into the common input shape.
// A bare string becomes Text; a map is used as-is with "text" promoted.
func asInput(data any) input {
	switch v := data.(type) {
	case string:
		return input{Text: v}
	case input:
		return v
	case map[string]any:
		in := input{Payload: v}
		if t, ok := v["text"].(string); ok {
			in.Text = t
		}
		return in
	case nil:
		return input{}
	default:
		return input{Text: fmt.Sprintf("%v", v)}
	}
}

func temp(v float64) *float64 { return &v }
