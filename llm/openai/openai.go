// Package openai adapts OpenAI's chat completion API to llm.Generator.
package openai

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// Generator implements llm.Generator against GPT models.
type Generator struct {
	apiKey    string
	modelName string
	client    client
}

type client interface {
	createChatCompletion(ctx context.Context, messages []llm.Message) (string, llm.Usage, error)
}

// New builds a Generator. modelName empty uses a current GPT-4o release.
func New(apiKey, modelName string) *Generator {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &Generator{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, params llm.Params) (string, error) {
	text, _, err := g.generate(ctx, params)
	return text, err
}

// GenerateWithUsage implements llm.UsageGenerator, reporting the prompt and
// completion token counts OpenAI's response carries.
func (g *Generator) GenerateWithUsage(ctx context.Context, params llm.Params) (string, llm.Usage, error) {
	return g.generate(ctx, params)
}

func (g *Generator) generate(ctx context.Context, params llm.Params) (string, llm.Usage, error) {
	if err := ctx.Err(); err != nil {
		return "", llm.Usage{}, err
	}

	messages := params.Messages
	if params.Prompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: params.Prompt})
	}

	text, usage, err := g.client.createChatCompletion(ctx, messages)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("openai: %w", err)
	}

	if params.OnChunk != nil {
		buf := workflow.NewChunkBuffer(400, []string{". ", "\n"}, params.OnChunk)
		buf.Write(text)
		buf.End()
	}
	return text, usage, nil
}

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []llm.Message) (string, llm.Usage, error) {
	if c.apiKey == "" {
		return "", llm.Usage{}, errors.New("openai API key is required")
	}

	sdkClient := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	sdkMessages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			sdkMessages = append(sdkMessages, openaisdk.SystemMessage(m.Content))
		case llm.RoleAssistant:
			sdkMessages = append(sdkMessages, openaisdk.AssistantMessage(m.Content))
		default:
			sdkMessages = append(sdkMessages, openaisdk.UserMessage(m.Content))
		}
	}

	resp, err := sdkClient.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    c.modelName,
		Messages: sdkMessages,
	})
	if err != nil {
		return "", llm.Usage{}, err
	}
	usage := llm.Usage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return "", usage, nil
	}
	return resp.Choices[0].Message.Content, usage, nil
}
