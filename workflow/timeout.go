package workflow

import (
	"context"
	"fmt"
	"time"
)

// effectiveTimeout resolves precedence: per-task TimeoutMs overrides the
// engine-wide Config default; 0 on both sides means unlimited.
func effectiveTimeout(task *Task, cfg Config) time.Duration {
	if task.TimeoutMs > 0 {
		return time.Duration(task.TimeoutMs) * time.Millisecond
	}
	if cfg.TimeoutMs > 0 {
		return time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return 0
}

// runWithTimeout executes fn under a deadline derived from task/cfg,
// returning an *EngineError with code "TASK_TIMEOUT" if fn does not return
// before the deadline. fn must itself respect ctx cancellation for this to
// actually bound wall-clock time; runWithTimeout only detects the overrun.
func runWithTimeout(ctx context.Context, task *Task, cfg Config, fn func(context.Context) (Outcome, error)) (Outcome, error) {
	timeout := effectiveTimeout(task, cfg)
	if timeout <= 0 {
		return fn(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn(timeoutCtx)
		done <- result{out, err}
	}()

	timeoutErr := func() error {
		return &EngineError{
			Message: fmt.Sprintf("task %s exceeded timeout of %v", task.Name, timeout),
			Code:    "TASK_TIMEOUT",
			TaskID:  task.Name,
		}
	}

	select {
	case r := <-done:
		// The deadline and fn's return can race even when fn honors ctx
		// cancellation (it returns ctx.Err() instead of timing out on its
		// own). Treat a concurrent deadline as authoritative so the caller
		// always sees TASK_TIMEOUT rather than a raw context error.
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return Outcome{}, timeoutErr()
		}
		return r.out, r.err
	case <-timeoutCtx.Done():
		return Outcome{}, timeoutErr()
	}
}
