// Package anthropic adapts Anthropic's Claude API to llm.Generator.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// Generator implements llm.Generator against Claude models.
type Generator struct {
	apiKey    string
	modelName string
	client    client
}

// client is the seam mocked out in tests.
type client interface {
	createMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (string, llm.Usage, error)
}

// New builds a Generator. modelName empty uses a current Sonnet release.
func New(apiKey, modelName string) *Generator {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &Generator{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Generate implements llm.Generator. The full response is requested in one
// call (the SDK's streaming iterator is not used here), then fanned out to
// params.OnChunk through a ChunkBuffer so callers see sentence-sized
// fragments rather than the entire text at once.
func (g *Generator) Generate(ctx context.Context, params llm.Params) (string, error) {
	text, _, err := g.generate(ctx, params)
	return text, err
}

// GenerateWithUsage implements llm.UsageGenerator, reporting the token
// counts Claude's response carries alongside the assembled text.
func (g *Generator) GenerateWithUsage(ctx context.Context, params llm.Params) (string, llm.Usage, error) {
	return g.generate(ctx, params)
}

func (g *Generator) generate(ctx context.Context, params llm.Params) (string, llm.Usage, error) {
	if err := ctx.Err(); err != nil {
		return "", llm.Usage{}, err
	}

	systemPrompt, messages := splitSystemPrompt(params)

	text, usage, err := g.client.createMessage(ctx, systemPrompt, messages)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("anthropic: %w", err)
	}

	if params.OnChunk != nil {
		buf := workflow.NewChunkBuffer(400, []string{". ", "\n"}, params.OnChunk)
		buf.Write(text)
		buf.End()
	}
	return text, usage, nil
}

func splitSystemPrompt(params llm.Params) (string, []llm.Message) {
	messages := params.Messages
	if params.Prompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: params.Prompt})
	}

	var system string
	conversation := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		conversation = append(conversation, m)
	}
	return system, conversation
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (string, llm.Usage, error) {
	if c.apiKey == "" {
		return "", llm.Usage{}, errors.New("anthropic API key is required")
	}

	sdkClient := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	sdkMessages := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleAssistant {
			sdkMessages = append(sdkMessages, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		} else {
			sdkMessages = append(sdkMessages, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}

	req := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  sdkMessages,
		MaxTokens: 4096,
	}
	if systemPrompt != "" {
		req.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := sdkClient.Messages.New(ctx, req)
	if err != nil {
		return "", llm.Usage{}, err
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}
	usage := llm.Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return text, usage, nil
}
