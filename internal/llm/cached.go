package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ppiankov/grantaxiom/internal/cache"
)

// CachingProvider serves repeated identical requests from a cache.
// Only successful responses are stored.
type CachingProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachingProvider wraps next with a response cache
func NewCachingProvider(next Provider, c cache.Cache, ttl time.Duration) *CachingProvider {
	return &CachingProvider{next: next, cache: c, ttl: ttl}
}

// Name returns the wrapped provider name
func (p *CachingProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates to the wrapped provider
func (p *CachingProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Generate returns a cached response when one exists for the same request
func (p *CachingProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key := requestKey(p.next.Name(), req)

	if data, ok := p.cache.Get(key); ok {
		var resp GenerateResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			resp.Cached = true
			return &resp, nil
		}
		_ = p.cache.Delete(key)
	}

	resp, err := p.next.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		// A failed write only costs a future cache miss
		_ = p.cache.Set(key, data, p.ttl)
	}

	return resp, nil
}

// requestKey fingerprints everything that can change the oracle's answer
func requestKey(provider string, req GenerateRequest) string {
	o := req.Options
	return cache.Key(
		provider,
		req.Model,
		strconv.Itoa(req.MaxTokens),
		string(o.ResponseFormat),
		strconv.Itoa(o.ReasoningBudget),
		strconv.FormatBool(o.EnableSearchTool),
		o.SystemInstruction,
		req.Prompt,
	)
}
