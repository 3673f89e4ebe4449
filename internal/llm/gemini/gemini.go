package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"smartledger/internal/core"
)

const DefaultModel = "gemini-2.0-flash"

// Generator sends conversations to the Gemini API.
type Generator struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// New creates a Gemini generator. An empty apiKey falls back to the
// GEMINI_API_KEY / GOOGLE_API_KEY environment variables read by genai.
func New(ctx context.Context, apiKey, model string, maxTokens int) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

func (g *Generator) Generate(ctx context.Context, conv core.Conversation) (string, error) {
	system, contents := toContents(conv)
	if len(contents) == 0 {
		return "", errors.New("gemini: conversation has no user content")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: g.maxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// toContents splits system messages into one instruction and maps the rest
// onto Gemini's user/model roles.
func toContents(conv core.Conversation) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, m.Content)
		case core.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}
