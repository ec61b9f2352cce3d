package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func anthropicServer(t *testing.T, got *anthropicRequest, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Expected anthropic-version %s, got %s", anthropicVersion, r.Header.Get("anthropic-version"))
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestAnthropicProvider_Generate_Success(t *testing.T) {
	var got anthropicRequest
	server := anthropicServer(t, &got, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
		"content": [
			{"type": "thinking", "thinking": "..."},
			{"type": "text", "text": "Part one. "},
			{"type": "text", "text": "Part two."}
		],
		"usage": {"input_tokens": 30, "output_tokens": 12}
	}`)
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, MaxTokens: 1000, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		Prompt: "Audit this",
		Options: GenerateOptions{
			ReasoningBudget:   512,
			EnableSearchTool:  true,
			SystemInstruction: "Be rigorous.",
		},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != "Part one. Part two." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("Expected 42 tokens, got %d", resp.TokensUsed)
	}

	if got.Model != defaultAnthropicModel {
		t.Errorf("Expected default model, got %s", got.Model)
	}
	if got.System != "Be rigorous." {
		t.Errorf("Expected system instruction, got %q", got.System)
	}
	if got.Thinking == nil || got.Thinking.BudgetTokens != minAnthropicThinkingBudget {
		t.Errorf("Expected thinking budget raised to minimum, got %+v", got.Thinking)
	}
	if got.MaxTokens <= minAnthropicThinkingBudget {
		t.Errorf("Expected max_tokens above thinking budget, got %d", got.MaxTokens)
	}
	if len(got.Tools) != 1 || got.Tools[0].Name != "web_search" {
		t.Errorf("Expected web search tool, got %+v", got.Tools)
	}
}

func TestAnthropicProvider_Generate_APIError(t *testing.T) {
	server := anthropicServer(t, nil, http.StatusTooManyRequests,
		`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "rate_limit_error") || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected typed API error, got %v", err)
	}
}

func TestAnthropicProvider_Generate_EmptyContent(t *testing.T) {
	server := anthropicServer(t, nil, http.StatusOK, `{"content": []}`)
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "p"}); err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	server := anthropicServer(t, nil, http.StatusOK, `{"content": [{"type": "text", "text": "Hi"}]}`)
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}
}

func TestAnthropicProvider_MissingKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}
