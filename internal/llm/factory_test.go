package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantaxiom/internal/cache"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/worker"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingProvider) Name() string                         { return "counting" }
func (p *countingProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *countingProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &GenerateResponse{Text: "answer to " + req.Prompt, Model: "m"}, nil
}

func (p *countingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		apiKey   string
		want     string
		wantErr  bool
	}{
		{"gemini", "k", "gemini", false},
		{"", "k", "gemini", false},
		{"OpenAI", "k", "openai", false},
		{"claude", "k", "anthropic", false},
		{"ollama", "", "ollama", false},
		{"openai", "", "", true},
		{"watson", "k", "", true},
	}
	for _, tt := range tests {
		p, err := NewProvider(Config{Provider: tt.provider, APIKey: tt.apiKey})
		if tt.wantErr {
			assert.Error(t, err, tt.provider)
			continue
		}
		require.NoError(t, err, tt.provider)
		assert.Equal(t, tt.want, p.Name())
	}
}

func TestNewFromConfig_Wrappers(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.RateLimit.RequestsPerSecond = 5
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = t.TempDir()

	p, err := NewFromConfig(cfg, ConfigFromModel(cfg.LLM))
	require.NoError(t, err)

	caching, ok := p.(*CachingProvider)
	require.True(t, ok, "outermost wrapper should be the cache")
	_, ok = caching.next.(*RateLimitedProvider)
	assert.True(t, ok, "cache should wrap the rate limiter")
	assert.Equal(t, "ollama", p.Name())
}

func TestNewFromConfig_Plain(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"

	p, err := NewFromConfig(cfg, ConfigFromModel(cfg.LLM))
	require.NoError(t, err)
	_, ok := p.(*OllamaProvider)
	assert.True(t, ok)
}

func TestCachingProvider(t *testing.T) {
	next := &countingProvider{}
	p := NewCachingProvider(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)
	ctx := context.Background()

	req := GenerateRequest{Prompt: "q1", Options: GenerateOptions{ResponseFormat: FormatJSON}}
	first, err := p.Generate(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.Generate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, next.count())

	// Any option change is a different request
	req.Options.EnableSearchTool = true
	_, err = p.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, next.count())
}

func TestCachingProvider_ErrorsNotCached(t *testing.T) {
	next := &countingProvider{err: errors.New("boom")}
	p := NewCachingProvider(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "q"})
		assert.Error(t, err)
	}
	assert.Equal(t, 2, next.count())
}

func TestRateLimitedProvider_CancelledWait(t *testing.T) {
	next := &countingProvider{}
	p := NewRateLimitedProvider(next, worker.NewLimiter(0.001, 1))

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, GenerateRequest{Prompt: "b"})
	assert.Error(t, err)
	assert.Equal(t, 1, next.count())
}

func TestConfigFromModel(t *testing.T) {
	c := ConfigFromModel(model.LLMConfig{Provider: "openai", Model: "gpt-4o", Timeout: 30, MaxTokens: 100})
	assert.Equal(t, "openai", c.Provider)
	assert.Equal(t, "gpt-4o", c.Model)
	assert.Equal(t, 30, c.Timeout)
	assert.Equal(t, 100, c.resolveMaxTokens(GenerateRequest{}))
	assert.Equal(t, 7, c.resolveMaxTokens(GenerateRequest{MaxTokens: 7}))
	assert.Equal(t, "override", c.resolveModel(GenerateRequest{Model: "override"}, "fallback"))
	assert.Equal(t, "fallback", Config{}.resolveModel(GenerateRequest{}, "fallback"))
}
