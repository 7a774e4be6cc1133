// Package google adapts Google's Gemini API to llm.Generator.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/flowforge/agentflow/llm"
	"github.com/flowforge/agentflow/workflow"
)

// Generator implements llm.Generator against Gemini models.
type Generator struct {
	apiKey    string
	modelName string
	client    client
}

type client interface {
	generateContent(ctx context.Context, messages []llm.Message) (string, llm.Usage, error)
}

// New builds a Generator. modelName empty uses gemini-1.5-flash.
func New(apiKey, modelName string) *Generator {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
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
// candidate token counts Gemini's response carries.
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

	text, usage, err := g.client.generateContent(ctx, messages)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("google: %w", err)
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

func (c *defaultClient) generateContent(ctx context.Context, messages []llm.Message) (string, llm.Usage, error) {
	if c.apiKey == "" {
		return "", llm.Usage{}, errors.New("google API key is required")
	}

	sdkClient, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("failed to create google client: %w", err)
	}
	defer sdkClient.Close()

	genModel := sdkClient.GenerativeModel(c.modelName)

	var systemPrompt string
	parts := make([]genai.Part, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += m.Content
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if systemPrompt != "" {
		genModel.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		return "", llm.Usage{}, err
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	var usage llm.Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return text, usage, nil
}
