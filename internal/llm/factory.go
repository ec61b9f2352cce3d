package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/grantaxiom/internal/cache"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/worker"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "gemini", "google", "":
		return NewGeminiProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, openai, anthropic, ollama)", config.Provider)
	}
}

// NewFromConfig builds the provider and wraps it with the optional
// rate limiter and response cache described by cfg
func NewFromConfig(cfg *model.Config, config Config) (Provider, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		provider = NewRateLimitedProvider(provider, limiter)
	}

	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		provider = NewCachingProvider(provider, c, cfg.Cache.DiskTTL)
	}

	return provider, nil
}
