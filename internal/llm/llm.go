// Package llm wires the configured text generation backend into an
// extract.Generator.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"smartledger/internal/core"
	"smartledger/internal/extract"
	"smartledger/internal/llm/gemini"
	"smartledger/internal/llm/ollama"
	"smartledger/internal/llm/openai"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultMaxTokens bounds each generation; a single JSON object fits easily.
const DefaultMaxTokens = 128

type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	MaxTokens int
}

// Providers lists the accepted provider names.
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderOllama}
}

// New builds the generator for cfg.Provider, wrapped with a per-call timeout
// when cfg.Timeout is positive.
func New(ctx context.Context, cfg Config) (extract.Generator, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var gen extract.Generator
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini:
		g, err := gemini.New(ctx, cfg.APIKey, cfg.Model, maxTokens)
		if err != nil {
			return nil, err
		}
		gen = g
	case ProviderOpenAI:
		gen = openai.New(cfg.APIKey, cfg.BaseURL, cfg.Model, maxTokens)
	case ProviderOllama:
		g, err := ollama.New(cfg.BaseURL, cfg.Model, maxTokens)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown llm provider %q: must be one of %v", cfg.Provider, Providers())
	}

	slog.InfoContext(ctx, "Generator configured",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"timeout", cfg.Timeout)

	return WithTimeout(gen, cfg.Timeout), nil
}

// WithTimeout bounds every Generate call on gen by d. Non-positive d
// returns gen unchanged.
func WithTimeout(gen extract.Generator, d time.Duration) extract.Generator {
	if d <= 0 {
		return gen
	}
	return extract.GenerateFunc(func(ctx context.Context, conv core.Conversation) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return gen.Generate(ctx, conv)
	})
}
