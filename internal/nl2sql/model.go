// Package nl2sql turns natural-language questions about the sales dataset
// into SQL, runs it and narrates the result with a language model.
package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salesquery/salesquery/internal/observability"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Model is a text-in, text-out language model.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

type ModelConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		return NewGeminiModel(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIModel(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// generate calls the model and records the call under stage.
func generate(ctx context.Context, model Model, stage, prompt string) (string, error) {
	start := time.Now()
	text, err := model.Generate(ctx, prompt)
	observability.ObserveModelCall(stage, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("%s model call: %w", stage, err)
	}
	return text, nil
}
