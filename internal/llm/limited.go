package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/grantaxiom/internal/worker"
)

// RateLimitedProvider throttles calls to the wrapped provider
type RateLimitedProvider struct {
	next    Provider
	limiter *worker.Limiter
}

// NewRateLimitedProvider wraps next with limiter, keyed by provider name
func NewRateLimitedProvider(next Provider, limiter *worker.Limiter) *RateLimitedProvider {
	return &RateLimitedProvider{next: next, limiter: limiter}
}

// Name returns the wrapped provider name
func (p *RateLimitedProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates without consuming a token
func (p *RateLimitedProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Generate waits for a token, then calls the wrapped provider
func (p *RateLimitedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := p.limiter.Wait(ctx, p.next.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.next.Generate(ctx, req)
}
