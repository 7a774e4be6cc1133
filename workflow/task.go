package workflow

import "context"

// RouteKind tags the shape of a Route value (spec §3 "Routing
// Destination"): terminal, a single next task, or a fan-out to several.
type RouteKind int

const (
	// RouteNone means "no explicit destination" — equivalent to RouteEnd
	// once the router has nothing left to say (spec: routing destination
	// "undefined").
	RouteNone RouteKind = iota
	// RouteEnd is the explicit literal "end" destination.
	RouteEnd
	// RouteSingle routes to exactly one named task.
	RouteSingle
	// RouteMany fans out to several named tasks with the same data.
	RouteMany
	// RouteManyData fans out to several {task, data} pairs.
	RouteManyData
)

// RouteEntry pairs a destination task with its own data for RouteManyData
// fan-out (spec §3, "a list of {task, data?} records").
type RouteEntry struct {
	Task string
	Data any
}

// Route is a routing destination returned by a router, by a task's return
// value, or via ParamBundle.RedirectTo.
type Route struct {
	Kind    RouteKind
	Single  string
	Many    []string
	Entries []RouteEntry
}

// End returns the explicit terminal route (the literal "end" destination).
func End() Route { return Route{Kind: RouteEnd} }

// Goto routes sequentially to the named task.
func Goto(task string) Route { return Route{Kind: RouteSingle, Single: task} }

// FanOut routes to every named task in parallel, each receiving the same
// data as the predecessor's result.
func FanOut(tasks ...string) Route { return Route{Kind: RouteMany, Many: tasks} }

// FanOutData routes to several tasks in parallel, each with its own data.
func FanOutData(entries ...RouteEntry) Route {
	return Route{Kind: RouteManyData, Entries: entries}
}

// IsTerminal reports whether r halts the workflow (no destination, or the
// explicit "end" literal).
func (r Route) IsTerminal() bool {
	return r.Kind == RouteNone || r.Kind == RouteEnd
}

// Outcome is a task's return value: a tagged union of a bare result and a
// result-with-routing pair (spec §9, "Dynamic routing return value").
// Use Result or ResultWithRoute to construct one.
type Outcome struct {
	Value    any
	Next     *Route
}

// Result wraps a bare value with no routing override: the router (or
// RedirectTo) decides where to go next.
func Result(v any) Outcome { return Outcome{Value: v} }

// ResultWithRoute wraps a value together with an imperative routing
// decision that takes priority over the task's router.
func ResultWithRoute(v any, next Route) Outcome { return Outcome{Value: v, Next: &next} }

// ExecuteFunc is a task's body. It receives the parameter bundle and
// returns an Outcome plus any error. A returned *BreakpointError (from
// ParamBundle.Interrupt) is handled specially by the engine and never
// reaches OnError or a retry.
type ExecuteFunc func(ctx context.Context, p *ParamBundle) (Outcome, error)

// RouteFunc synchronously computes the next destination from a task's
// result. The default router always terminates.
type RouteFunc func(result any, ec *ExecutionContext) Route

// ErrorHandlerResult is returned by a Task's OnError handler.
type ErrorHandlerResult struct {
	// Retry is not read by the engine: OnError runs only after every
	// attempt has failed, so it never causes another attempt.
	Retry bool
	// HasResult, if true, treats Result/Next as a successful outcome
	// instead of propagating the error.
	HasResult bool
	Result    any
	Next      *Route
}

// ErrorHandler reacts to a task execution failure. It is called once, after
// all retries are exhausted, with the last attempt's error.
type ErrorHandler func(err error, p *ParamBundle) ErrorHandlerResult

// Task is a named, immutable unit of work registered with an Engine.
type Task struct {
	Name         string
	Execute      ExecuteFunc
	Route        RouteFunc
	Dependencies []string
	RetryCount   int
	TimeoutMs    int
	OnError      ErrorHandler
}

// ParamBundle is passed to every task invocation (spec §3).
type ParamBundle struct {
	Data             any
	ExecutionContext *ExecutionContext
	Events           *EventBus
	Context          *Context
	Config           Config
	Signal           <-chan struct{}
	Trace            Tracer

	engine       *Engine
	workflowID   string
	taskName     string
	redirect     *Route
}

// RedirectTo imperatively overrides routing for the current task
// invocation, taking priority over both the task's return value and its
// router (spec §3, resolution order "imperative > return-value > router").
func (p *ParamBundle) RedirectTo(next Route) {
	p.redirect = &next
}

// Interrupt marks the current task complete with data, records a durable
// breakpoint, persists the workflow snapshot, and returns a
// *BreakpointError for the caller to return from Execute. The attempt loop
// unwinds cleanly on seeing this error: it is never retried, never handed
// to OnError, and never surfaces as a failure.
func (p *ParamBundle) Interrupt(ctx context.Context, data any) error {
	return p.engine.interrupt(ctx, p.workflowID, p.taskName, data)
}

// Abort stops the workflow. Either way no new task is dispatched,
// including the current task's successors; graceful=true lets in-flight
// tasks finish, while graceful=false also cancels the run's context.
func (p *ParamBundle) Abort(graceful bool) {
	p.engine.abort(p.workflowID, graceful)
}
