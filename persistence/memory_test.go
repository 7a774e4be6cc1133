package persistence

import (
	"context"
	"testing"

	"github.com/flowforge/agentflow/workflow"
)

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := workflow.Snapshot{
		WorkflowID: "wf-1",
		ExecutionState: workflow.ExecutionState{
			CompletedTasks: workflow.NewSet("a"),
		},
	}

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.Load(ctx, "wf-1")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if !loaded.ExecutionState.CompletedTasks.Has("a") {
		t.Fatalf("loaded CompletedTasks = %v, want to contain a", loaded.ExecutionState.CompletedTasks)
	}
}

func TestMemoryStore_LoadMissingReturnsFalse(t *testing.T) {
	store := NewMemoryStore()
	_, ok, err := store.Load(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing workflow id")
	}
}

func TestMemoryStore_SaveOverwritesPriorSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, workflow.Snapshot{WorkflowID: "wf-1", ExecutionState: workflow.ExecutionState{CompletedTasks: workflow.NewSet("a")}})
	_ = store.Save(ctx, workflow.Snapshot{WorkflowID: "wf-1", ExecutionState: workflow.ExecutionState{CompletedTasks: workflow.NewSet("a", "b")}})

	loaded, _, _ := store.Load(ctx, "wf-1")
	if !loaded.ExecutionState.CompletedTasks.Has("b") {
		t.Fatalf("expected overwritten snapshot to contain b, got %v", loaded.ExecutionState.CompletedTasks)
	}
}
