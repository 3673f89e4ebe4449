package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"smartledger/internal/core"
)

const DefaultModel = "gpt-4o-mini"

// Generator talks to any OpenAI-compatible chat completions endpoint.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// New creates a generator. baseURL may point at a self-hosted server
// (vLLM, LM Studio, llama.cpp); a missing /v1 suffix is added.
func New(apiKey, baseURL, model string, maxTokens int) *Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		baseURL = strings.TrimRight(baseURL, "/")
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (g *Generator) Generate(ctx context.Context, conv core.Conversation) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     g.model,
		Messages:  toMessages(conv),
		MaxTokens: g.maxTokens,
		// Zero is dropped by omitempty and would mean the server default.
		Temperature: math.SmallestNonzeroFloat32,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toMessages(conv core.Conversation) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(conv))
	for _, m := range conv {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case core.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case core.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}
