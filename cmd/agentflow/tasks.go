package main

import (
	"fmt"

	"github.com/flowforge/agentflow/tasks"
	"github.com/flowforge/agentflow/workflow"
)

// buildTasks turns the catalog's task specs into workflow.Task values
// ready for Engine.RegisterTask, using deps for every constructor that
// needs a generator or tool registry.
func buildTasks(specs []TaskSpec, deps tasks.Deps) ([]workflow.Task, error) {
	built := make([]workflow.Task, 0, len(specs))
	for _, spec := range specs {
		t, err := buildTask(spec, deps)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", spec.Name, err)
		}
		t.Dependencies = spec.Dependencies
		t.RetryCount = spec.RetryCount
		t.TimeoutMs = spec.TimeoutMs
		built = append(built, withStaticRoute(t, spec.Next))
	}
	return built, nil
}

func buildTask(spec TaskSpec, deps tasks.Deps) (workflow.Task, error) {
	switch spec.Type {
	case "completion":
		return tasks.NewCompletionTask(spec.Name, deps), nil
	case "planning":
		return tasks.NewPlanningTask(spec.Name, deps), nil
	case "web-search":
		return tasks.NewWebSearchTask(spec.Name, deps), nil
	case "writer":
		return tasks.NewWriterTask(spec.Name, deps), nil
	case "analyzer":
		return tasks.NewAnalyzerTask(spec.Name, deps), nil
	case "reflector":
		return tasks.NewReflectorTask(spec.Name, spec.ReviseTask, deps), nil
	case "refine-query":
		return tasks.NewRefineQueryTask(spec.Name, deps), nil
	case "suggestions":
		return tasks.NewSuggestionsTask(spec.Name, deps), nil
	default:
		return workflow.Task{}, fmt.Errorf("unknown task type %q", spec.Type)
	}
}
