package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestEngine_LinearCompletion(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	var order []string
	record := func(name string) ExecuteFunc {
		return func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			order = append(order, name)
			return Result(name), nil
		}
	}

	if err := engine.RegisterTask(Task{Name: "a", Execute: record("a"), Route: func(any, *ExecutionContext) Route { return Goto("b") }}); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := engine.RegisterTask(Task{Name: "b", Execute: record("b"), Route: func(any, *ExecutionContext) Route { return Goto("c") }}); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := engine.RegisterTask(Task{Name: "c", Execute: record("c")}); err != nil {
		t.Fatalf("register c: %v", err)
	}

	if err := engine.Start(context.Background(), "wf-1", "a", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEngine_RetryThenSucceed(t *testing.T) {
	engine := NewEngine(nil, nil, nil)
	engine.cfg.RetryDelayMultiplier = 1

	var attempts int32
	err := engine.RegisterTask(Task{
		Name:       "flaky",
		RetryCount: 3,
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				return Outcome{}, errors.New("transient failure")
			}
			return Result("ok"), nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := engine.Start(context.Background(), "wf-retry", "flaky", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestEngine_ExhaustedRetriesPropagates(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	wantErr := errors.New("permanent failure")
	if err := engine.RegisterTask(Task{
		Name:       "dies",
		RetryCount: 1,
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			return Outcome{}, wantErr
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := engine.Start(context.Background(), "wf-fail", "dies", nil)
	if err == nil {
		t.Fatal("Start returned nil error, want failure")
	}
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("err = %v (%T), want *EngineError", err, err)
	}
	if engErr.Code != "TASK_FAILED" {
		t.Fatalf("Code = %q, want TASK_FAILED", engErr.Code)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("errors.Is(err, wantErr) = false, want true")
	}
}

func TestEngine_BreakpointAndResume(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(nil, nil, store)

	var resumed bool
	if err := engine.RegisterTask(Task{
		Name: "pause",
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			if v, ok := p.Data.(string); ok && v == "resume-data" {
				resumed = true
				return Result("done"), nil
			}
			return Outcome{}, p.Interrupt(ctx, "paused-here")
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := engine.Start(context.Background(), "wf-bp", "pause", nil)
	if err != nil {
		t.Fatalf("Start (expect clean pause, no error): %v", err)
	}

	snap, ok, err := store.Load(context.Background(), "wf-bp")
	if err != nil || !ok {
		t.Fatalf("Load snapshot: ok=%v err=%v", ok, err)
	}
	bp := snap.ExecutionState.Breakpoint
	if bp == nil {
		t.Fatal("expected a recorded breakpoint")
	}

	if err := engine.Resume(context.Background(), "wf-bp", bp.ID, "resume-data"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !resumed {
		t.Fatal("expected resumed execution to observe resume-data")
	}
}

func TestEngine_ResumeRejectsWrongBreakpointID(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(nil, nil, store)

	if err := engine.RegisterTask(Task{
		Name: "pause",
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			return Outcome{}, p.Interrupt(ctx, nil)
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Start(context.Background(), "wf-bad-bp", "pause", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	err := engine.Resume(context.Background(), "wf-bad-bp", "not-the-right-id", nil)
	if !errors.Is(err, ErrBreakpointMismatch) {
		t.Fatalf("err = %v, want ErrBreakpointMismatch", err)
	}
}

func TestEngine_FanOutWithPerRouteData(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	results := make(chan string, 2)
	leaf := func(ctx context.Context, p *ParamBundle) (Outcome, error) {
		results <- fmt.Sprintf("%v", p.Data)
		return Result(p.Data), nil
	}

	if err := engine.RegisterTask(Task{
		Name: "split",
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			return ResultWithRoute(nil, FanOutData(
				RouteEntry{Task: "left", Data: "L"},
				RouteEntry{Task: "right", Data: "R"},
			)), nil
		},
	}); err != nil {
		t.Fatalf("register split: %v", err)
	}
	if err := engine.RegisterTask(Task{Name: "left", Execute: leaf}); err != nil {
		t.Fatalf("register left: %v", err)
	}
	if err := engine.RegisterTask(Task{Name: "right", Execute: leaf}); err != nil {
		t.Fatalf("register right: %v", err)
	}

	if err := engine.Start(context.Background(), "wf-fanout", "split", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	close(results)

	got := map[string]bool{}
	for r := range results {
		got[r] = true
	}
	if !got["L"] || !got["R"] {
		t.Fatalf("got = %v, want both L and R", got)
	}
}

func TestEngine_DependencyJoinWaitsForAllPredecessors(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	var joinRan int32
	if err := engine.RegisterTask(Task{
		Name: "start",
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			return ResultWithRoute("go", FanOut("left", "right")), nil
		},
	}); err != nil {
		t.Fatalf("register start: %v", err)
	}
	if err := engine.RegisterTask(Task{Name: "left", Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) { return Result("l"), nil }}); err != nil {
		t.Fatalf("register left: %v", err)
	}
	if err := engine.RegisterTask(Task{Name: "right", Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) { return Result("r"), nil }}); err != nil {
		t.Fatalf("register right: %v", err)
	}
	if err := engine.RegisterTask(Task{
		Name:         "join",
		Dependencies: []string{"left", "right"},
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			atomic.AddInt32(&joinRan, 1)
			joined, ok := p.Data.(map[string]any)
			if !ok || joined["left"] != "l" || joined["right"] != "r" {
				t.Errorf("join data = %#v, want {left: l, right: r}", p.Data)
			}
			return Result("joined"), nil
		},
	}); err != nil {
		t.Fatalf("register join: %v", err)
	}

	if err := engine.Start(context.Background(), "wf-join", "start", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if joinRan != 1 {
		t.Fatalf("joinRan = %d, want exactly 1", joinRan)
	}
}

func TestEngine_GracefulAbortStopsNewDispatch(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	var bRan bool
	if err := engine.RegisterTask(Task{
		Name: "a",
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			p.Abort(true)
			return ResultWithRoute("x", Goto("b")), nil
		},
	}); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := engine.RegisterTask(Task{
		Name: "b",
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			bRan = true
			return Result("b"), nil
		},
	}); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if err := engine.Start(context.Background(), "wf-abort", "a", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if bRan {
		t.Fatal("task b ran after a graceful abort requested no new dispatch")
	}
}

func TestEngine_TaskTimeout(t *testing.T) {
	engine := NewEngine(nil, nil, nil)

	if err := engine.RegisterTask(Task{
		Name:      "slow",
		TimeoutMs: 10,
		Execute: func(ctx context.Context, p *ParamBundle) (Outcome, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return Result("too slow"), nil
			case <-ctx.Done():
				return Outcome{}, ctx.Err()
			}
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := engine.Start(context.Background(), "wf-timeout", "slow", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var engErr, cause *EngineError
	if !errors.As(err, &engErr) || engErr.Code != "TASK_FAILED" || !errors.As(engErr.Cause, &cause) || cause.Code != "TASK_TIMEOUT" {
		t.Fatalf("err = %v, want TASK_FAILED EngineError wrapping an EngineError with code TASK_TIMEOUT", err)
	}
}

// fakeStore is a minimal in-process PersistenceLayer used only by this
// package's own tests, independent of the persistence package (which
// depends on workflow and would create an import cycle here).
type fakeStore struct {
	snapshots map[string]Snapshot
}

func newFakeStore() *fakeStore { return &fakeStore{snapshots: make(map[string]Snapshot)} }

func (f *fakeStore) Save(ctx context.Context, snapshot Snapshot) error {
	f.snapshots[snapshot.WorkflowID] = snapshot
	return nil
}

func (f *fakeStore) Load(ctx context.Context, workflowID string) (Snapshot, bool, error) {
	snap, ok := f.snapshots[workflowID]
	return snap, ok, nil
}
