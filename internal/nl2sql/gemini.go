package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiModel struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiModel(ctx context.Context, cfg ModelConfig) (*GeminiModel, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPOptions.Timeout = &cfg.Timeout
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
	}, nil
}

func (m *GeminiModel) Name() string {
	return "gemini/" + m.model
}

func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(m.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
