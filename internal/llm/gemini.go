package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ppiankov/grantaxiom/internal/util"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: util.NewHTTPClient(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(config.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that the configured model can be resolved
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	modelName := p.config.resolveModel(GenerateRequest{}, defaultGeminiModel)
	if _, err := p.client.Models.Get(ctx, modelName, nil); err != nil {
		p.config.logger().Warn("Gemini API check failed", zap.String("model", modelName), zap.Error(err))
		return false
	}
	return true
}

// Generate calls generateContent with the per-call options mapped onto
// Gemini's response MIME type, thinking budget and Google Search tool
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	modelName := p.config.resolveModel(req, defaultGeminiModel)

	ctx, cancel := p.config.withTimeout(ctx)
	defer cancel()

	resp, err := p.client.Models.GenerateContent(ctx, modelName, genai.Text(req.Prompt), p.generateConfig(req))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &GenerateResponse{
		Text:       resp.Text(),
		Model:      modelName,
		TokensUsed: tokens,
	}, nil
}

func (p *GeminiProvider) generateConfig(req GenerateRequest) *genai.GenerateContentConfig {
	opts := req.Options
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(p.config.resolveMaxTokens(req)),
	}

	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}

	switch opts.ResponseFormat {
	case FormatJSON:
		cfg.ResponseMIMEType = "application/json"
	case FormatText:
		cfg.ResponseMIMEType = "text/plain"
	}

	if opts.ReasoningBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(opts.ReasoningBudget)),
		}
	}

	if opts.EnableSearchTool {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	return cfg
}
