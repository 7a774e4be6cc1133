package llm

import (
	"context"
	"sync"
)

// Call records a single invocation of MockGenerator.Generate.
type Call struct {
	Params Params
}

// MockGenerator is a test double for Generator. Responses are consumed in
// order; once exhausted, the last response repeats. If OnChunk is set, it
// is called once per response with the whole text as both chunk and full
// text.
type MockGenerator struct {
	Responses []string
	Err       error

	// Usage, if non-zero, is returned by GenerateWithUsage alongside each
	// response. Generate ignores it entirely.
	Usage Usage

	mu        sync.Mutex
	Calls     []Call
	callIndex int
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, params Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, Call{Params: params})
	if m.Err != nil {
		err := m.Err
		m.mu.Unlock()
		return "", err
	}
	if len(m.Responses) == 0 {
		m.mu.Unlock()
		return "", nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	text := m.Responses[idx]
	m.mu.Unlock()

	if params.OnChunk != nil {
		params.OnChunk(text, text)
	}
	return text, nil
}

// GenerateWithUsage implements UsageGenerator, returning the same text
// Generate would plus the configured Usage.
func (m *MockGenerator) GenerateWithUsage(ctx context.Context, params Params) (string, Usage, error) {
	text, err := m.Generate(ctx, params)
	if err != nil {
		return "", Usage{}, err
	}
	return text, m.Usage, nil
}
