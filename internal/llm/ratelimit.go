package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing perSecond calls per second, or nil when perSecond <= 0.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}

	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// RateLimitedGenerator waits on a shared limiter before each generation.
type RateLimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator wraps next. A nil limiter returns next unchanged.
func NewRateLimitedGenerator(next Generator, limiter *rate.Limiter) Generator {
	if limiter == nil {
		return next
	}

	return &RateLimitedGenerator{next: next, limiter: limiter}
}

// GenerateJSON implements Generator.
func (g *RateLimitedGenerator) GenerateJSON(ctx context.Context, req Request) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	return g.next.GenerateJSON(ctx, req)
}

// RateLimitedEmbedder waits on a shared limiter before each embedding call.
type RateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps next. A nil limiter returns next unchanged.
func NewRateLimitedEmbedder(next Embedder, limiter *rate.Limiter) Embedder {
	if limiter == nil {
		return next
	}

	return &RateLimitedEmbedder{next: next, limiter: limiter}
}

// CreateEmbedding implements Embedder.
func (e *RateLimitedEmbedder) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return e.next.CreateEmbedding(ctx, input)
}
