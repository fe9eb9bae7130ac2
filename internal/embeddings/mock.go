// Package embeddings provides the deterministic embedding client used for local development
// (EMBEDDING_PROVIDER=mock) and tests.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"

	pkgembeddings "github.com/404drakefound/ucl-deepflow-task-delegation/pkg/embeddings"
)

// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
var ErrEmptyInput = errors.New("mock embeddings: input text is empty")

// MockClient generates unit-length embeddings derived from the SHA-256 of the input.
// Equal inputs always produce equal vectors.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock client producing 1536-dimensional vectors.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: 1536}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// CreateEmbedding returns the deterministic vector for input.
func (c *MockClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	return c.generateDeterministicEmbedding(input), nil
}

// generateDeterministicEmbedding hashes input with a block counter so the vector does not
// repeat every 32 values.
func (c *MockClient) generateDeterministicEmbedding(input string) []float32 {
	embedding := make([]float32, c.dimensions)

	var (
		block  [sha256.Size]byte
		seed   = make([]byte, 8+len(input))
		offset = sha256.Size
	)

	copy(seed[8:], input)

	for i := range embedding {
		if offset == sha256.Size {
			binary.BigEndian.PutUint64(seed[:8], uint64(i/sha256.Size))
			block = sha256.Sum256(seed)
			offset = 0
		}

		// map each byte to [-1, 1]
		embedding[i] = (float32(block[offset]) / 127.5) - 1.0
		offset++
	}

	return pkgembeddings.Normalized(embedding)
}
