package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIModelGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  SELECT 1  "}}]}`))
	}))
	defer server.Close()

	model, err := NewOpenAIModel(ModelConfig{BaseURL: server.URL + "/", APIKey: "secret", Model: "local-llm", Temperature: 0.1})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	defer model.client.CloseIdleConnections()
	text, err := model.Generate(context.Background(), "total sales?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "SELECT 1" {
		t.Fatalf("Generate() = %q", text)
	}
	if got.Model != "local-llm" || len(got.Messages) != 1 || got.Messages[0].Content != "total sales?" {
		t.Fatalf("request = %+v", got)
	}
	if model.Name() != "openai/local-llm" {
		t.Fatalf("Name() = %q", model.Name())
	}
}

func TestOpenAIModelSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	model, err := NewOpenAIModel(ModelConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	defer model.client.CloseIdleConnections()
	_, err = model.Generate(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestNewModelValidatesConfig(t *testing.T) {
	if _, err := NewModel(context.Background(), ModelConfig{Provider: "bard"}); err == nil {
		t.Fatal("NewModel() expected error for unknown provider")
	}
	if _, err := NewModel(context.Background(), ModelConfig{Provider: ProviderGemini}); err == nil {
		t.Fatal("NewModel() expected error without gemini api key")
	}
	if _, err := NewModel(context.Background(), ModelConfig{Provider: ProviderOpenAI, APIKey: "k"}); err == nil {
		t.Fatal("NewModel() expected error without base URL")
	}
}
