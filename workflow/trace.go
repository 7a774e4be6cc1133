package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer so task code and the engine can open
// spans around task attempts and LLM/tool calls without importing otel
// directly (spec §3 ParamBundle.Trace).
type Tracer struct {
	otel oteltrace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer obtained from
// otel.Tracer("agentflow"). A zero-value Tracer is usable: it opens no
// spans and returns the context unchanged.
func NewTracer(t oteltrace.Tracer) Tracer {
	return Tracer{otel: t}
}

// span is a started span plus the context carrying it, returned by
// StartTaskAttempt/StartStep so callers can set attributes and End it.
type span struct {
	ctx  context.Context
	span oteltrace.Span
}

// StartTaskAttempt opens a span named "task.execute" for one attempt of
// taskName, tagging workflowID, taskName and the 0-based attempt number.
func (t Tracer) StartTaskAttempt(ctx context.Context, workflowID, taskName string, attempt int) (context.Context, func(err error)) {
	if t.otel == nil {
		return ctx, func(error) {}
	}
	spanCtx, sp := t.otel.Start(ctx, "task.execute")
	sp.SetAttributes(
		attribute.String("agentflow.workflow_id", workflowID),
		attribute.String("agentflow.task_name", taskName),
		attribute.Int("agentflow.attempt", attempt),
	)
	start := time.Now()
	return spanCtx, func(err error) {
		sp.SetAttributes(attribute.Int64("agentflow.latency_ms", time.Since(start).Milliseconds()))
		if err != nil {
			sp.SetStatus(codes.Error, err.Error())
			sp.RecordError(err)
		}
		sp.End()
	}
}

// StartStep opens a span named name as a child of ctx, for use around
// arbitrary sub-operations (LLM calls, tool invocations, edge-pattern
// handlers) that want their own trace segment.
func (t Tracer) StartStep(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	if t.otel == nil {
		return ctx, func(error) {}
	}
	spanCtx, sp := t.otel.Start(ctx, name)
	setAttributes(sp, attrs)
	return spanCtx, func(err error) {
		if err != nil {
			sp.SetStatus(codes.Error, err.Error())
			sp.RecordError(err)
		}
		sp.End()
	}
}

// setAttributes converts a loosely-typed attribute map into span attributes,
// mirroring the teacher's OTelEmitter.addMetadataAttributes conversion.
func setAttributes(sp oteltrace.Span, attrs map[string]any) {
	for key, value := range attrs {
		switch v := value.(type) {
		case string:
			sp.SetAttributes(attribute.String(key, v))
		case int:
			sp.SetAttributes(attribute.Int(key, v))
		case int64:
			sp.SetAttributes(attribute.Int64(key, v))
		case float64:
			sp.SetAttributes(attribute.Float64(key, v))
		case bool:
			sp.SetAttributes(attribute.Bool(key, v))
		case time.Duration:
			sp.SetAttributes(attribute.Int64(key, int64(v/time.Millisecond)))
		default:
			sp.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
}
