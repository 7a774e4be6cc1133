package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// run holds the mutable state of one in-progress (or resumed) workflow
// execution: its Execution Context, a cancel func for immediate abort, and
// the dedupe guard that keeps a join task (one with Dependencies) from
// being dispatched twice when more than one predecessor completes at
// nearly the same moment.
type run struct {
	id     string
	ec     *ExecutionContext
	cancel context.CancelFunc

	joinMu         sync.Mutex
	dispatchedOnce Set
}

// Engine is the Workflow Engine (spec §3): a registry of named Tasks plus
// the scheduler that resolves dependencies, retries, timeouts and routing
// for a run. One Engine can drive many concurrent runs, each identified by
// its own workflow ID.
type Engine struct {
	mu    sync.RWMutex
	tasks map[string]*Task

	events      *EventBus
	tctx        *Context
	cfg         Config
	tracer      Tracer
	metrics     *Metrics
	persistence PersistenceLayer

	runsMu sync.Mutex
	runs   map[string]*run
}

// NewEngine builds an Engine. events and tctx may be nil, in which case
// fresh ones are created; persistence may be nil, in which case snapshots
// are simply never saved (breakpoints still pause the run, but Resume has
// nothing to load).
func NewEngine(events *EventBus, tctx *Context, persistence PersistenceLayer, opts ...Option) *Engine {
	if events == nil {
		events = NewEventBus()
	}
	if tctx == nil {
		tctx = NewContext()
	}
	return &Engine{
		tasks:       make(map[string]*Task),
		events:      events,
		tctx:        tctx,
		cfg:         NewConfig(opts...),
		persistence: persistence,
		runs:        make(map[string]*run),
	}
}

// WithMetrics attaches a Prometheus Metrics collector and returns the engine
// for chaining at construction time.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// WithTracer attaches an OpenTelemetry-backed Tracer and returns the engine
// for chaining at construction time.
func (e *Engine) WithTracer(t Tracer) *Engine {
	e.tracer = t
	return e
}

// Events returns the event bus this engine's tasks and runs publish to.
func (e *Engine) Events() *EventBus { return e.events }

// Context returns the Typed Context shared across every run on this engine.
func (e *Engine) Context() *Context { return e.tctx }

// RegisterTask adds a task definition to the engine. Task names must be
// unique and non-empty, and Execute must be set.
func (e *Engine) RegisterTask(t Task) error {
	if t.Name == "" {
		return &EngineError{Message: "task name must not be empty", Code: "INVALID_TASK"}
	}
	if t.Execute == nil {
		return &EngineError{Message: "task Execute must not be nil", Code: "INVALID_TASK", TaskID: t.Name}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.tasks[t.Name]; exists {
		return &EngineError{Message: fmt.Sprintf("task %q already registered", t.Name), Code: "DUPLICATE_TASK", TaskID: t.Name}
	}
	cp := t
	e.tasks[t.Name] = &cp
	return nil
}

func (e *Engine) getTask(name string) (*Task, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tasks[name]
	return t, ok
}

// dependents returns every registered task that lists name as a dependency.
func (e *Engine) dependents(name string) []*Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*Task
	for _, t := range e.tasks {
		for _, dep := range t.Dependencies {
			if dep == name {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func (e *Engine) getRun(workflowID string) (*run, bool) {
	e.runsMu.Lock()
	defer e.runsMu.Unlock()
	r, ok := e.runs[workflowID]
	return r, ok
}

// Start begins a new workflow run identified by workflowID, dispatching
// initialTask with initialData. Start blocks until the run reaches a
// terminal route, a breakpoint, an abort, or an unrecoverable task error.
func (e *Engine) Start(ctx context.Context, workflowID, initialTask string, initialData any) error {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:             workflowID,
		ec:             NewExecutionContext(e.events),
		cancel:         cancel,
		dispatchedOnce: NewSet(),
	}
	e.runsMu.Lock()
	e.runs[workflowID] = r
	e.runsMu.Unlock()
	defer func() {
		e.runsMu.Lock()
		delete(e.runs, workflowID)
		e.runsMu.Unlock()
		cancel()
	}()

	e.events.Emit("workflowStarted", map[string]any{"workflowId": workflowID, "initialTask": initialTask})
	err := e.tryDispatch(runCtx, r, initialTask, initialData)
	e.finishRun(runCtx, r, err)
	return err
}

// Resume loads workflowID's persisted snapshot, validates breakpointID
// against the recorded breakpoint, and re-dispatches the paused task with
// resumeData, continuing exactly as Start would.
func (e *Engine) Resume(ctx context.Context, workflowID, breakpointID string, resumeData any) error {
	if e.persistence == nil {
		return &EngineError{Message: "no persistence layer configured", Code: "NO_PERSISTENCE", TaskID: workflowID}
	}
	snap, ok, err := e.persistence.Load(ctx, workflowID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWorkflowNotFound
	}
	bp := snap.ExecutionState.Breakpoint
	if bp == nil {
		return ErrNoBreakpoint
	}
	if bp.ID != breakpointID {
		return ErrBreakpointMismatch
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:             workflowID,
		ec:             NewExecutionContext(e.events),
		cancel:         cancel,
		dispatchedOnce: NewSet(),
	}
	r.ec.Restore(snap.ExecutionState)
	r.ec.clearBreakpoint()
	e.events.SetAllState(snap.EventState)
	e.tctx.Restore(snap.ContextState)

	e.runsMu.Lock()
	e.runs[workflowID] = r
	e.runsMu.Unlock()
	defer func() {
		e.runsMu.Lock()
		delete(e.runs, workflowID)
		e.runsMu.Unlock()
		cancel()
	}()

	e.events.Emit("workflowResumed", map[string]any{"workflowId": workflowID, "breakpointId": breakpointID, "taskName": bp.TaskName})
	// A resumed breakpoint task is, by definition, "complete" in the
	// snapshot we just restored; reset it so tryDispatch treats this as a
	// genuine re-entry rather than a no-op join check.
	r.ec.resetTaskCompletion(bp.TaskName)
	runErr := e.tryDispatch(runCtx, r, bp.TaskName, resumeData)
	e.finishRun(runCtx, r, runErr)
	return runErr
}

func (e *Engine) finishRun(ctx context.Context, r *run, runErr error) {
	switch {
	case runErr != nil:
		e.events.Emit("workflowError", map[string]any{"workflowId": r.id, "error": runErr.Error()})
	case r.ec.CurrentBreakpoint() != nil:
		// interrupt() already emitted "breakpointHit" and persisted; nothing more to do.
	default:
		e.events.Emit("workflowComplete", map[string]any{"workflowId": r.id, "summary": r.ec.GetMainTimingSummary()})
	}
	if e.persistence != nil && r.ec.CurrentBreakpoint() == nil {
		_ = e.persist(ctx, r)
	}
}

func (e *Engine) persist(ctx context.Context, r *run) error {
	if e.persistence == nil {
		return nil
	}
	snap := Snapshot{
		WorkflowID:     r.id,
		ExecutionState: r.ec.Snapshot(),
		EventState:     e.events.GetAllState(),
		ContextState:   e.tctx.Snapshot(),
		Config:         e.cfg,
		LastUpdated:    time.Now(),
	}
	return e.persistence.Save(ctx, snap)
}

// tryDispatch is the single entry point for handing a task its next piece
// of work, whether from Start, an explicit Route, or a dependency join
// becoming satisfied. It applies dependency gating, the loop re-entry reset,
// and the abort gate before calling executeTask.
func (e *Engine) tryDispatch(ctx context.Context, r *run, name string, data any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if r.ec.IsAborted() {
		return nil
	}
	task, ok := e.getTask(name)
	if !ok {
		return &EngineError{Message: fmt.Sprintf("no task registered with name %q", name), Code: "TASK_NOT_FOUND", TaskID: name, Cause: ErrTaskNotFound}
	}

	// Re-entrancy guard (spec §4.5 step 5): a task already running must not
	// be dispatched again, whether from a diamond join re-triggering both
	// branches or a timed-out attempt's goroutine outliving its deadline.
	if r.ec.IsTaskRunning(name) {
		return nil
	}

	if len(task.Dependencies) > 0 {
		r.joinMu.Lock()
		ready := true
		for _, dep := range task.Dependencies {
			if !r.ec.IsTaskComplete(dep) {
				ready = false
				break
			}
		}
		if !ready || r.dispatchedOnce.Has(name) {
			r.joinMu.Unlock()
			return nil
		}
		r.dispatchedOnce.Add(name)
		r.joinMu.Unlock()

		joined := make(map[string]any, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if v, ok := r.ec.GetTaskData(dep); ok {
				joined[dep] = v
			}
		}
		data = joined
	} else if r.ec.IsTaskComplete(name) {
		r.ec.resetTaskCompletion(name)
	}

	return e.executeTask(ctx, r, task, data)
}

// executeTask runs task through its attempt loop (retry, backoff, timeout),
// then resolves and dispatches its successors on success (spec §4.5).
func (e *Engine) executeTask(ctx context.Context, r *run, task *Task, data any) error {
	r.ec.markRunning(task.Name)
	e.events.Emit("taskStarted", map[string]any{"workflowId": r.id, "taskName": task.Name})

	maxRetries := task.RetryCount
	if maxRetries == 0 {
		maxRetries = e.cfg.MaxRetries
	}
	attempts := maxRetries + 1

	var lastErr error
	var outcome Outcome
	var pb *ParamBundle

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			r.ec.clearRunning(task.Name)
			return ctx.Err()
		}

		pb = &ParamBundle{
			Data:             data,
			ExecutionContext: r.ec,
			Events:           e.events,
			Context:          e.tctx,
			Config:           e.cfg,
			Signal:           e.cfg.Signal,
			Trace:            e.tracer,
			engine:           e,
			workflowID:       r.id,
			taskName:         task.Name,
		}

		attemptCtx, endSpan := e.tracer.StartTaskAttempt(ctx, r.id, task.Name, attempt)
		r.ec.startTaskTiming(task.Name)
		start := time.Now()

		out, err := runWithTimeout(attemptCtx, task, e.cfg, func(c context.Context) (Outcome, error) {
			return task.Execute(c, pb)
		})

		r.ec.endTaskTiming(task.Name, err)
		endSpan(err)

		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordTaskLatency(r.id, task.Name, status, float64(time.Since(start).Milliseconds()))

		if err == nil {
			outcome = out
			lastErr = nil
			break
		}

		if isBreakpoint(err) {
			r.ec.clearRunning(task.Name)
			return nil
		}

		lastErr = err
		if attempt+1 < attempts {
			e.metrics.IncrementRetries(r.id, task.Name)
			e.events.Emit("taskRetry", map[string]any{"workflowId": r.id, "taskName": task.Name, "attempt": attempt, "error": err.Error()})
			delay := e.cfg.retryDelay(attempt)
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					r.ec.clearRunning(task.Name)
					return ctx.Err()
				}
			}
		}
	}

	if lastErr != nil {
		if task.OnError != nil {
			res := task.OnError(lastErr, pb)
			if res.HasResult {
				lastErr = nil
				outcome = Outcome{Value: res.Result, Next: res.Next}
			}
		}
	}

	if lastErr != nil {
		r.ec.clearRunning(task.Name)
		e.events.Emit("taskError", map[string]any{"workflowId": r.id, "taskName": task.Name, "error": lastErr.Error()})
		return &EngineError{Message: fmt.Sprintf("task %q failed: %v", task.Name, lastErr), Code: "TASK_FAILED", TaskID: task.Name, Cause: lastErr}
	}

	r.ec.markTaskComplete(task.Name, outcome.Value)
	if e.persistence != nil {
		_ = e.persist(ctx, r)
	}

	route := resolveRoute(pb, task, outcome, r.ec)
	if err := e.dispatchRoute(ctx, r, route, outcome.Value); err != nil {
		return err
	}
	return e.checkJoins(ctx, r, task.Name)
}

// resolveRoute applies the spec's routing priority: an imperative
// RedirectTo call wins, then the Outcome's own Next, then the task's Route
// function; with nothing set, the task's route is End().
func resolveRoute(pb *ParamBundle, task *Task, outcome Outcome, ec *ExecutionContext) Route {
	if pb.redirect != nil {
		return *pb.redirect
	}
	if outcome.Next != nil {
		return *outcome.Next
	}
	if task.Route != nil {
		return task.Route(outcome.Value, ec)
	}
	return End()
}

// dispatchRoute fans a resolved Route out to its destination task(s).
// Same-data and data-tagged fan-outs run concurrently and are joined
// before dispatchRoute returns; the first error observed is returned.
func (e *Engine) dispatchRoute(ctx context.Context, r *run, route Route, data any) error {
	switch route.Kind {
	case RouteNone, RouteEnd:
		return nil
	case RouteSingle:
		return e.tryDispatch(ctx, r, route.Single, data)
	case RouteMany:
		var wg sync.WaitGroup
		errs := make([]error, len(route.Many))
		for i, name := range route.Many {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				errs[i] = e.tryDispatch(ctx, r, name, data)
			}(i, name)
		}
		wg.Wait()
		return firstError(errs)
	case RouteManyData:
		var wg sync.WaitGroup
		errs := make([]error, len(route.Entries))
		for i, entry := range route.Entries {
			wg.Add(1)
			go func(i int, entry RouteEntry) {
				defer wg.Done()
				errs[i] = e.tryDispatch(ctx, r, entry.Task, entry.Data)
			}(i, entry)
		}
		wg.Wait()
		return firstError(errs)
	default:
		return nil
	}
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// checkJoins re-attempts dispatch for every task that depends on
// completedName, so a join that just became satisfied fires even though no
// explicit Route points at it.
func (e *Engine) checkJoins(ctx context.Context, r *run, completedName string) error {
	var wg sync.WaitGroup
	deps := e.dependents(completedName)
	errs := make([]error, len(deps))
	for i, t := range deps {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = e.tryDispatch(ctx, r, name, nil)
		}(i, t.Name)
	}
	wg.Wait()
	return firstError(errs)
}

// interrupt performs the breakpoint side effects for ParamBundle.Interrupt:
// record the breakpoint, persist the snapshot, then hand back the error the
// task should return so the attempt loop unwinds without retrying.
func (e *Engine) interrupt(ctx context.Context, workflowID, taskName string, data any) error {
	r, ok := e.getRun(workflowID)
	if !ok {
		return &EngineError{Message: fmt.Sprintf("no active run %q", workflowID), Code: "RUN_NOT_FOUND", TaskID: taskName}
	}
	id := uuid.NewString()
	r.ec.markTaskComplete(taskName, data)
	r.ec.setBreakpoint(&Breakpoint{ID: id, TaskName: taskName, Data: data})
	e.metrics.IncrementBreakpoints(workflowID, taskName)
	e.events.Emit("breakpointHit", map[string]any{"workflowId": workflowID, "taskName": taskName, "breakpointId": id})
	if e.persistence != nil {
		_ = e.persist(ctx, r)
	}
	return &BreakpointError{WorkflowID: workflowID, BreakpointID: id, TaskName: taskName}
}

// abort stops workflowID. graceful lets tasks already in flight finish
// naturally (tryDispatch simply declines to start anything new); an
// immediate abort additionally cancels the run's context so blocking I/O in
// a running task's Execute unwinds via ctx.Done().
func (e *Engine) abort(workflowID string, graceful bool) {
	r, ok := e.getRun(workflowID)
	if !ok {
		return
	}
	r.ec.abortWorkflow(graceful)
	e.events.Emit("workflowAborted", map[string]any{"workflowId": workflowID, "graceful": graceful})
	if !graceful {
		r.cancel()
	}
}
