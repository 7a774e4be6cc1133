package llm

import (
	"context"
	"errors"
	"testing"
)

func TestMockGenerator_ReturnsConfiguredResponse(t *testing.T) {
	m := &MockGenerator{Responses: []string{"hello"}}
	out, err := m.Generate(context.Background(), Params{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "hello" {
		t.Fatalf("out = %q, want hello", out)
	}
}

func TestMockGenerator_RepeatsLastResponseWhenExhausted(t *testing.T) {
	m := &MockGenerator{Responses: []string{"only"}}
	out1, _ := m.Generate(context.Background(), Params{})
	out2, _ := m.Generate(context.Background(), Params{})
	if out1 != out2 {
		t.Fatalf("out1=%q out2=%q, want equal", out1, out2)
	}
}

func TestMockGenerator_ReturnsConfiguredError(t *testing.T) {
	wantErr := errors.New("boom")
	m := &MockGenerator{Err: wantErr}
	_, err := m.Generate(context.Background(), Params{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestMockGenerator_InvokesOnChunk(t *testing.T) {
	m := &MockGenerator{Responses: []string{"chunked text"}}
	var gotChunk, gotFull string
	_, err := m.Generate(context.Background(), Params{OnChunk: func(chunk, full string) {
		gotChunk = chunk
		gotFull = full
	}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotChunk != "chunked text" || gotFull != "chunked text" {
		t.Fatalf("chunk=%q full=%q", gotChunk, gotFull)
	}
}

func TestMockGenerator_RecordsCallHistory(t *testing.T) {
	m := &MockGenerator{Responses: []string{"a", "b"}}
	_, _ = m.Generate(context.Background(), Params{Prompt: "first"})
	_, _ = m.Generate(context.Background(), Params{Prompt: "second"})

	if len(m.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(m.Calls))
	}
	if m.Calls[0].Params.Prompt != "first" || m.Calls[1].Params.Prompt != "second" {
		t.Fatalf("Calls = %+v", m.Calls)
	}
}
