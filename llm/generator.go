// Package llm defines the streaming text-generation capability consumed by
// the agent graph and task catalog, plus provider adapters for Anthropic,
// OpenAI, and Google Gemini, and a deterministic mock for tests.
package llm

import "context"

// Role names a message's speaker, matching the common chat-completion
// convention shared across providers.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// Params describes a single generation request.
type Params struct {
	Model       string
	Messages    []Message
	Prompt      string
	Temperature *float64

	// OnChunk, if set, is invoked once per emitted text fragment in
	// stream order with (chunk, fullTextSoFar). Implementations that
	// cannot stream natively synthesize chunks with a workflow.ChunkBuffer
	// over the full response.
	OnChunk func(chunk, fullText string)

	// OnReasoning mirrors OnChunk for a provider's reasoning/thinking
	// trace, when one is available. Never invoked otherwise.
	OnReasoning func(chunk, fullText string)
}

// Generator produces text from a conversation. Implementations must
// respect ctx cancellation at every suspension point (network read,
// SDK call) per the cooperative scheduling model the rest of this module
// follows.
type Generator interface {
	Generate(ctx context.Context, params Params) (string, error)
}

// Usage reports the token accounting for one generation call, when the
// underlying provider exposes it. Zero values mean "not reported" rather
// than "zero tokens consumed".
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// UsageGenerator is an optional capability a Generator may additionally
// implement to report token usage alongside its text. Callers that want
// cost attribution should type-assert for this before falling back to
// plain Generate.
type UsageGenerator interface {
	GenerateWithUsage(ctx context.Context, params Params) (string, Usage, error)
}
