package persistence

import (
	"context"
	"testing"

	"github.com/flowforge/agentflow/workflow"
)

func TestSQLiteStore_SaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	snap := workflow.Snapshot{
		WorkflowID: "wf-sqlite",
		ExecutionState: workflow.ExecutionState{
			CompletedTasks:  workflow.NewSet("a", "b"),
			ExecutionCounts: workflow.TypedMap[int]{"a": 1, "b": 2},
		},
	}

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.Load(ctx, "wf-sqlite")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if !loaded.ExecutionState.CompletedTasks.Has("a") || !loaded.ExecutionState.CompletedTasks.Has("b") {
		t.Fatalf("CompletedTasks = %v, want {a, b}", loaded.ExecutionState.CompletedTasks)
	}
	if loaded.ExecutionState.ExecutionCounts["b"] != 2 {
		t.Fatalf("ExecutionCounts[b] = %d, want 2", loaded.ExecutionState.ExecutionCounts["b"])
	}
}

func TestSQLiteStore_SaveUpsertsExistingRow(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	_ = store.Save(ctx, workflow.Snapshot{WorkflowID: "wf-1", ExecutionState: workflow.ExecutionState{CompletedTasks: workflow.NewSet("a")}})
	_ = store.Save(ctx, workflow.Snapshot{WorkflowID: "wf-1", ExecutionState: workflow.ExecutionState{CompletedTasks: workflow.NewSet("a", "b")}})

	loaded, _, err := store.Load(ctx, "wf-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.ExecutionState.CompletedTasks.Has("b") {
		t.Fatalf("expected upsert to keep latest snapshot, got %v", loaded.ExecutionState.CompletedTasks)
	}
}

func TestSQLiteStore_LoadMissingReturnsFalse(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing workflow id")
	}
}
