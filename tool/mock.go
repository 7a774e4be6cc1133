package tool

import (
	"context"
	"sync"
)

// MockTool is a test implementation of Tool. Responses are consumed in
// order; once exhausted, the last response repeats.
type MockTool struct {
	ToolName  string
	Responses []map[string]any
	Err       error

	Calls []MockCall

	mu        sync.Mutex
	callIndex int
}

// MockCall records a single invocation of Call.
type MockCall struct {
	Input map[string]any
}

// Name implements Tool.
func (m *MockTool) Name() string { return m.ToolName }

// Call implements Tool.
func (m *MockTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Input: input})

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]any{}, nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}
