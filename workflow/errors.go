package workflow

import "errors"

// ErrTaskNotFound is the Cause of the *EngineError that Engine.tryDispatch
// returns when a routed task name has no corresponding registration. This is always fatal: the caller
// misconfigured the graph of tasks.
var ErrTaskNotFound = errors.New("workflow: task not found")

// ErrWorkflowNotFound is returned by Resume when the persistence layer has
// no snapshot for the given workflow ID.
var ErrWorkflowNotFound = errors.New("workflow: no persisted snapshot for id")

// ErrNoBreakpoint is returned by Resume when the persisted snapshot has no
// breakpoint recorded (nothing to resume from).
var ErrNoBreakpoint = errors.New("workflow: snapshot has no breakpoint")

// ErrBreakpointMismatch is returned by Resume when the supplied breakpoint
// ID does not match the one recorded in the persisted snapshot.
var ErrBreakpointMismatch = errors.New("workflow: breakpoint id does not match persisted snapshot")

// EngineError is a structured error carrying a machine-readable code
// alongside a human-readable message, used for conditions the caller may
// want to branch on (timeouts, aborts, max-attempts).
type EngineError struct {
	Message string
	Code    string
	TaskID  string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	prefix := e.Code
	if e.TaskID != "" {
		prefix += "[" + e.TaskID + "]"
	}
	if prefix != "" {
		return prefix + ": " + e.Message
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// BreakpointError unwinds the attempt loop cleanly when a task calls
// Interrupt. It is never treated as a task failure: the attempt loop
// returns without retry, without invoking onError, and without rethrowing.
type BreakpointError struct {
	WorkflowID   string
	BreakpointID string
	TaskName     string
}

// Error implements the error interface.
func (e *BreakpointError) Error() string {
	return "workflow: breakpoint " + e.BreakpointID + " at task " + e.TaskName
}

// isBreakpoint reports whether err is (or wraps) a *BreakpointError.
func isBreakpoint(err error) bool {
	var bp *BreakpointError
	return errors.As(err, &bp)
}
