package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"smartledger/internal/core"
)

const DefaultModel = "gemma3:1b"

// Generator runs conversations against a local Ollama server.
type Generator struct {
	model     llms.Model
	maxTokens int
}

// New connects to serverURL (empty means the Ollama default) using model.
func New(serverURL, model string, maxTokens int) (*Generator, error) {
	if model == "" {
		model = DefaultModel
	}
	opts := []lcollama.Option{lcollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, lcollama.WithServerURL(serverURL))
	}
	llm, err := lcollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &Generator{model: llm, maxTokens: maxTokens}, nil
}

func (g *Generator) Generate(ctx context.Context, conv core.Conversation) (string, error) {
	resp, err := g.model.GenerateContent(ctx, toMessages(conv),
		llms.WithTemperature(0),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: empty choices")
	}
	return resp.Choices[0].Content, nil
}

func toMessages(conv core.Conversation) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(conv))
	for _, m := range conv {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case core.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case core.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return msgs
}
