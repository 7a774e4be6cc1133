package main

import (
	"context"
	"testing"
	"time"
)

func TestBuildEngine_RunsAMinimalCatalogToCompletion(t *testing.T) {
	cat := Catalog{
		Provider: ProviderSpec{Name: "mock"},
		Tasks: []TaskSpec{
			{Name: "write", Type: "completion", Next: "end"},
		},
	}

	engine, events, err := buildEngine(cat)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}

	done := make(chan struct{})
	events.On("workflowComplete", func(payload any) { close(done) })

	go func() {
		if err := engine.Start(context.Background(), "wf-test", "write", "hello"); err != nil {
			t.Errorf("Start: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for workflowComplete")
	}
}

func TestBuildEngine_UnknownProviderPropagatesError(t *testing.T) {
	cat := Catalog{Provider: ProviderSpec{Name: "bogus"}}
	if _, _, err := buildEngine(cat); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}
