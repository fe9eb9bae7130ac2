package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/404drakefound/ucl-deepflow-task-delegation/pkg/cache"
)

// CachedEmbedder remembers vectors by input text. Re-importing an unchanged resume or
// task description costs no embedding call.
type CachedEmbedder struct {
	next  Embedder
	cache *cache.LoaderCache[[]float32]
}

// NewCachedEmbedder wraps next with a cache of size entries. size <= 0 returns next unchanged.
func NewCachedEmbedder(next Embedder, size int) (Embedder, error) {
	if size <= 0 {
		return next, nil
	}

	c, err := cache.NewLoaderCache[[]float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &CachedEmbedder{next: next, cache: c}, nil
}

// CreateEmbedding implements Embedder. Callers get a copy they may modify.
func (e *CachedEmbedder) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	sum := sha256.Sum256([]byte(input))

	vec, _, err := e.cache.Get(ctx, hex.EncodeToString(sum[:]), func(ctx context.Context) ([]float32, error) {
		return e.next.CreateEmbedding(ctx, input)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // provider error passes through for retry and logging
	}

	return append([]float32(nil), vec...), nil
}
