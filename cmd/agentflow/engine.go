package main

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/flowforge/agentflow/tasks"
	"github.com/flowforge/agentflow/workflow"
)

// buildEngine assembles a workflow.Engine from a Catalog: provider,
// tools, persistence, Config, Prometheus metrics, and an OpenTelemetry
// tracer all come together here so the run and serve commands share one
// construction path.
func buildEngine(cat Catalog) (*workflow.Engine, *workflow.EventBus, error) {
	generator, err := buildGenerator(cat.Provider)
	if err != nil {
		return nil, nil, err
	}
	registry, err := buildRegistry(cat.Tools)
	if err != nil {
		return nil, nil, err
	}
	store, err := buildPersistence(cat.Persistence)
	if err != nil {
		return nil, nil, err
	}

	events := workflow.NewEventBus()
	engine := workflow.NewEngine(events, nil, store, workflowOptions(cat.Workflow)...)
	engine.WithMetrics(workflow.NewMetrics(prometheus.DefaultRegisterer))
	engine.WithTracer(workflow.NewTracer(otel.GetTracerProvider().Tracer("agentflow")))

	deps := tasks.Deps{Generator: generator, Tools: registry}
	built, err := buildTasks(cat.Tasks, deps)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range built {
		if err := engine.RegisterTask(t); err != nil {
			return nil, nil, fmt.Errorf("registering task %q: %w", t.Name, err)
		}
	}

	return engine, events, nil
}

// printEvents subscribes a newline-delimited-JSON logger to every channel
// on bus, writing one line per emission to stdout. This is the CLI's
// "stream events to stdout" behavior; the sse package offers the same
// events over HTTP for callers that want a browser-consumable stream
// instead of a terminal.
func printEvents(bus *workflow.EventBus) {
	bus.OnAll(func(channel string, payload any) {
		line, err := json.Marshal(map[string]any{"channel": channel, "payload": payload})
		if err != nil {
			return
		}
		fmt.Println(string(line))
	})
}
