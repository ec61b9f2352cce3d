package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// Provider is the oracle: an external generative model called over a
// request/response boundary. Implementations return raw text and never
// validate its structure.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends one prompt and returns the raw response text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ResponseFormat is the output format requested from the oracle
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// GenerateOptions are the per-call options recognized by every provider.
// Providers that cannot honor an option record a warning on the response.
type GenerateOptions struct {
	ResponseFormat    ResponseFormat
	ReasoningBudget   int  // Thinking tokens; 0 disables
	EnableSearchTool  bool // Web search grounding
	SystemInstruction string
}

// GenerateRequest is one oracle call
type GenerateRequest struct {
	Prompt  string
	Options GenerateOptions

	// Model overrides the configured model
	Model string

	// MaxTokens overrides the configured response limit
	MaxTokens int
}

// GenerateResponse is the raw oracle output
type GenerateResponse struct {
	Text       string   `json:"text"`
	Model      string   `json:"model"`
	TokensUsed int      `json:"tokens_used"`
	Warnings   []string `json:"warnings,omitempty"`
	Cached     bool     `json:"-"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for Gemini/OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout per request in seconds; 0 waits indefinitely
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Logger for availability diagnostics (nil = no-op)
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return ConfigFromModel(model.DefaultConfig().LLM)
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxTokens:  c.MaxTokens,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// withTimeout applies the configured request timeout, if any
func (c Config) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(c.Timeout)*time.Second)
}

// resolveModel picks the request model, then the configured one, then the fallback
func (c Config) resolveModel(req GenerateRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// resolveMaxTokens picks the request limit, then the configured one, then 8192
func (c Config) resolveMaxTokens(req GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 8192
}
