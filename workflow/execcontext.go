package workflow

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ExecutionContext holds the Execution State for one workflow run and
// exposes the operations the scheduler and tasks use to observe and mutate
// it. A task's normal logic should treat ExecutionContext as read-only;
// Abort and the breakpoint path are the explicit exceptions (spec §3).
//
// ExecutionContext is safe for concurrent use.
type ExecutionContext struct {
	mu     sync.Mutex
	state  *ExecutionState
	events *EventBus // optional; emits "taskExecution" on markTaskComplete
}

// NewExecutionContext creates an empty execution context. events may be
// nil, in which case markTaskComplete does not emit a taskExecution event.
func NewExecutionContext(events *EventBus) *ExecutionContext {
	return &ExecutionContext{state: newExecutionState(), events: events}
}

// markTaskComplete moves name from runningTasks into completedTasks,
// records data as its latest result, increments its execution count, and
// emits a taskExecution event carrying the new count.
func (ec *ExecutionContext) markTaskComplete(name string, data any) {
	ec.mu.Lock()
	ec.state.RunningTasks.Remove(name)
	ec.state.CompletedTasks.Add(name)
	ec.state.TaskData[name] = data
	ec.state.ExecutionCounts[name]++
	count := ec.state.ExecutionCounts[name]
	ec.mu.Unlock()

	if ec.events != nil {
		ec.events.Emit("taskExecution", map[string]any{"taskName": name, "count": count})
	}
}

// resetTaskCompletion removes name from completedTasks so it may run
// again. Required before re-entering a task reached via a loop-back edge;
// tryDispatch calls it itself when a task without Dependencies is
// dispatched again after completing.
func (ec *ExecutionContext) resetTaskCompletion(name string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.CompletedTasks.Remove(name)
}

// startTaskTiming appends a new in-flight timing record for name.
func (ec *ExecutionContext) startTaskTiming(name string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.Timings[name] = append(ec.state.Timings[name], TimingRecord{StartTime: time.Now()})
}

// endTaskTiming closes out name's most recent in-flight timing record,
// setting its end time, duration, and status. A non-nil err marks the
// record failed and records err.Error().
func (ec *ExecutionContext) endTaskTiming(name string, taskErr error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	records := ec.state.Timings[name]
	if len(records) == 0 {
		return
	}
	rec := &records[len(records)-1]
	if rec.EndTime != nil {
		// Defensive: nothing in-flight to close.
		return
	}
	now := time.Now()
	rec.EndTime = &now
	rec.Duration = now.Sub(rec.StartTime)
	if taskErr != nil {
		rec.Status = StatusFailed
		rec.Error = taskErr.Error()
	} else {
		rec.Status = StatusSuccess
	}
}

// markRunning adds name to runningTasks.
func (ec *ExecutionContext) markRunning(name string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.RunningTasks.Add(name)
}

// clearRunning removes name from runningTasks (used on failure paths that
// don't go through markTaskComplete).
func (ec *ExecutionContext) clearRunning(name string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.RunningTasks.Remove(name)
}

// abortWorkflow flips the aborted flag, recording whether the shutdown
// should let in-flight tasks finish (graceful) or stop immediately.
func (ec *ExecutionContext) abortWorkflow(graceful bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.Aborted = true
	ec.state.GracefulShutdown = graceful
}

// setBreakpoint durably records a pause point. Persistence of the owning
// workflow's full snapshot happens in the caller (Engine.interrupt), which
// must occur before the BreakpointError is allowed to unwind.
func (ec *ExecutionContext) setBreakpoint(bp *Breakpoint) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.Breakpoint = bp
}

// clearBreakpoint removes the recorded breakpoint, called once Resume has
// re-dispatched the paused task.
func (ec *ExecutionContext) clearBreakpoint() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.state.Breakpoint = nil
}

// IsAborted reports whether Abort has been called.
func (ec *ExecutionContext) IsAborted() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state.Aborted
}

// IsGracefulShutdown reports whether an in-progress abort is graceful.
// Meaningless unless IsAborted is also true.
func (ec *ExecutionContext) IsGracefulShutdown() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state.GracefulShutdown
}

// IsTaskComplete reports whether name has completed at least once and has
// not since been reset.
func (ec *ExecutionContext) IsTaskComplete(name string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state.CompletedTasks.Has(name)
}

// IsTaskRunning reports whether name is currently executing.
func (ec *ExecutionContext) IsTaskRunning(name string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state.RunningTasks.Has(name)
}

// GetTaskExecutionCount returns how many times name has completed, across
// all re-entries after resetTaskCompletion.
func (ec *ExecutionContext) GetTaskExecutionCount(name string) int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state.ExecutionCounts[name]
}

// HasReachedMaxRuns reports whether name's execution count is at or above
// max. A non-positive max means "unlimited" and always returns false.
func (ec *ExecutionContext) HasReachedMaxRuns(name string, max int) bool {
	if max <= 0 {
		return false
	}
	return ec.GetTaskExecutionCount(name) >= max
}

// GetTaskData returns the last result recorded for name, if any.
func (ec *ExecutionContext) GetTaskData(name string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.state.TaskData[name]
	return v, ok
}

// CurrentBreakpoint returns the currently recorded breakpoint, or nil.
func (ec *ExecutionContext) CurrentBreakpoint() *Breakpoint {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state.Breakpoint
}

// TaskTimingSummary is the per-task rollup produced by
// GetTaskTimingSummary: human-readable duration strings mirror the
// teacher engine's cost/timing reporting conventions.
type TaskTimingSummary struct {
	TotalDuration   string
	Attempts        int
	Failures        int
	AverageDuration string
}

// GetTaskTimingSummary aggregates every timing record for name into a
// human-readable rollup.
func (ec *ExecutionContext) GetTaskTimingSummary(name string) TaskTimingSummary {
	ec.mu.Lock()
	records := append([]TimingRecord(nil), ec.state.Timings[name]...)
	ec.mu.Unlock()

	var total time.Duration
	var failures int
	for _, r := range records {
		total += r.Duration
		if r.Status == StatusFailed {
			failures++
		}
	}
	avg := time.Duration(0)
	if len(records) > 0 {
		avg = total / time.Duration(len(records))
	}
	return TaskTimingSummary{
		TotalDuration:   total.String(),
		Attempts:        len(records),
		Failures:        failures,
		AverageDuration: avg.String(),
	}
}

// MainTimingSummary is the workflow-level rollup produced by
// GetMainTimingSummary.
type MainTimingSummary struct {
	TotalRuns          int
	TotalFailures      int
	SlowestTask        string
	MostFailuresTask   string
	Status             string
}

// GetMainTimingSummary aggregates timing across every task that has run in
// this workflow: total attempts, total failures, the slowest single task
// (by average duration), the task with the most recorded failures, and an
// overall status string ("aborted", "completed-with-errors", or "ok").
func (ec *ExecutionContext) GetMainTimingSummary() MainTimingSummary {
	ec.mu.Lock()
	names := make([]string, 0, len(ec.state.Timings))
	for name := range ec.state.Timings {
		names = append(names, name)
	}
	aborted := ec.state.Aborted
	ec.mu.Unlock()
	sort.Strings(names) // deterministic iteration for ties

	summary := MainTimingSummary{Status: "ok"}
	var slowestAvg time.Duration
	var mostFailures int
	for _, name := range names {
		ts := ec.GetTaskTimingSummary(name)
		summary.TotalRuns += ts.Attempts
		summary.TotalFailures += ts.Failures
		if ts.Failures > mostFailures {
			mostFailures = ts.Failures
			summary.MostFailuresTask = name
		}
		avg, err := time.ParseDuration(ts.AverageDuration)
		if err == nil && avg > slowestAvg {
			slowestAvg = avg
			summary.SlowestTask = name
		}
	}
	switch {
	case aborted:
		summary.Status = "aborted"
	case summary.TotalFailures > 0:
		summary.Status = "completed-with-errors"
	}
	return summary
}

// Snapshot returns the serializable ExecutionState backing this context.
// The returned value shares no mutable state with the context: callers may
// marshal it freely.
func (ec *ExecutionContext) Snapshot() ExecutionState {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := ExecutionState{
		CompletedTasks:   NewSet(ec.state.CompletedTasks.Slice()...),
		RunningTasks:     NewSet(ec.state.RunningTasks.Slice()...),
		TaskData:         TypedMap[any]{},
		ExecutionCounts:  TypedMap[int]{},
		Timings:          make(map[string][]TimingRecord, len(ec.state.Timings)),
		Aborted:          ec.state.Aborted,
		GracefulShutdown: ec.state.GracefulShutdown,
	}
	for k, v := range ec.state.TaskData {
		out.TaskData[k] = v
	}
	for k, v := range ec.state.ExecutionCounts {
		out.ExecutionCounts[k] = v
	}
	for k, v := range ec.state.Timings {
		out.Timings[k] = append([]TimingRecord(nil), v...)
	}
	if ec.state.Breakpoint != nil {
		bp := *ec.state.Breakpoint
		out.Breakpoint = &bp
	}
	return out
}

// Restore replaces this context's state with a previously-captured
// ExecutionState, as loaded from a persistence layer on resume.
func (ec *ExecutionContext) Restore(state ExecutionState) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if state.CompletedTasks == nil {
		state.CompletedTasks = NewSet()
	}
	if state.RunningTasks == nil {
		state.RunningTasks = NewSet()
	}
	if state.TaskData == nil {
		state.TaskData = TypedMap[any]{}
	}
	if state.ExecutionCounts == nil {
		state.ExecutionCounts = TypedMap[int]{}
	}
	if state.Timings == nil {
		state.Timings = make(map[string][]TimingRecord)
	}
	ec.state = &state
}

// String renders a one-line debug summary, handy in log/event payloads.
func (ec *ExecutionContext) String() string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return fmt.Sprintf("ExecutionContext{completed=%d running=%d aborted=%v}",
		len(ec.state.CompletedTasks), len(ec.state.RunningTasks), ec.state.Aborted)
}
