package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowforge/agentflow/workflow"
)

// NewWebSearchTask builds a task that invokes the "web_search" tool (if
// registered) with the incoming text as the query and returns a flattened
// text summary of whatever the tool reports.
func NewWebSearchTask(name string, deps Deps) workflow.Task {
	return workflow.Task{
		Name: name,
		Execute: func(ctx context.Context, p *workflow.ParamBundle) (workflow.Outcome, error) {
			in := asInput(p.Data)

			search, ok := deps.Tools.Get("web_search")
			if !ok {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "no web_search tool registered",
					Code:    "TOOL_NOT_FOUND",
					TaskID:  name,
				}
			}

			out, err := search.Call(ctx, map[string]any{"query": in.Text})
			if err != nil {
				return workflow.Outcome{}, &workflow.EngineError{
					Message: "web search failed",
					Code:    "WEB_SEARCH_FAILED",
					TaskID:  name,
					Cause:   err,
				}
			}

			summary := summarizeResults(out)
			p.Events.Emit(name+".results", out)
			return workflow.Result(summary), nil
		},
	}
}

func summarizeResults(out map[string]any) string {
	results, ok := out["results"].([]any)
	if !ok {
		return fmt.Sprintf("%v", out)
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%v", r))
	}
	return strings.Join(lines, "\n")
}
