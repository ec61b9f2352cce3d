package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/util"
)

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	client  *ollama.Client
	baseURL string
	config  Config
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse Ollama base URL: %w", err)
	}

	return &OllamaProvider{
		client:  ollama.NewClient(u, util.NewHTTPClient(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)),
		baseURL: baseURL,
		config:  config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the Ollama server answers
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if err := p.client.Heartbeat(ctx); err != nil {
		p.config.logger().Warn("Ollama availability check failed", zap.String("base_url", p.baseURL), zap.Error(err))
		return false
	}
	return true
}

// Generate calls /api/generate without streaming
func (p *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	modelName := p.config.resolveModel(req, "")
	if modelName == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}
	opts := req.Options

	stream := false
	apiReq := &ollama.GenerateRequest{
		Model:  modelName,
		Prompt: req.Prompt,
		System: opts.SystemInstruction,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": p.config.resolveMaxTokens(req),
		},
	}
	if opts.ResponseFormat == FormatJSON {
		apiReq.Format = json.RawMessage(`"json"`)
	}

	var warnings []string
	if opts.ReasoningBudget > 0 {
		warnings = append(warnings, "reasoning budget not supported by ollama provider; ignored")
	}
	if opts.EnableSearchTool {
		warnings = append(warnings, "search tool not supported by ollama provider; ignored")
	}

	ctx, cancel := p.config.withTimeout(ctx)
	defer cancel()

	var (
		text strings.Builder
		last ollama.GenerateResponse
	)
	err := p.client.Generate(ctx, apiReq, func(r ollama.GenerateResponse) error {
		text.WriteString(r.Response)
		last = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	// Some models report zero counts; fall back to ~4 chars per token
	tokensUsed := last.PromptEvalCount + last.EvalCount
	if tokensUsed == 0 {
		tokensUsed = (len(req.Prompt) + text.Len()) / 4
	}

	return &GenerateResponse{
		Text:       text.String(),
		Model:      last.Model,
		TokensUsed: tokensUsed,
		Warnings:   warnings,
	}, nil
}
