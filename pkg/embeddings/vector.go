// Package embeddings checks and normalizes embedding vectors before they reach a VECTOR column.
package embeddings

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNonFinite is returned for NaN or infinite components, which pgvector rejects.
	ErrNonFinite = errors.New("embedding has a non-finite component")
	ErrZero      = errors.New("embedding is the zero vector")
)

// Validate reports whether vec can be stored in a VECTOR(dimensions) column and compared by
// cosine distance.
func Validate(vec []float32, dimensions int) error {
	if len(vec) != dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dimensions)
	}

	nonZero := false

	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}

		if v != 0 {
			nonZero = true
		}
	}

	if !nonZero {
		return ErrZero
	}

	return nil
}

// Normalized returns a unit-length copy of vec. A zero vector is copied unchanged.
func Normalized(vec []float32) []float32 {
	out := make([]float32, len(vec))

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		copy(out, vec)

		return out
	}

	magnitude := math.Sqrt(sumSquares)
	for i, v := range vec {
		out[i] = float32(float64(v) / magnitude)
	}

	return out
}
