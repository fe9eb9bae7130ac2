package embeddings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float32
		dims    int
		wantErr error
	}{
		{name: "valid", vec: []float32{0.6, 0.8, 0}, dims: 3},
		{name: "too short", vec: []float32{1, 0}, dims: 3, wantErr: ErrDimensionMismatch},
		{name: "empty", vec: nil, dims: 3, wantErr: ErrDimensionMismatch},
		{name: "NaN", vec: []float32{1, float32(math.NaN()), 0}, dims: 3, wantErr: ErrNonFinite},
		{name: "infinite", vec: []float32{float32(math.Inf(1)), 0, 0}, dims: 3, wantErr: ErrNonFinite},
		{name: "zero vector", vec: []float32{0, 0, 0}, dims: 3, wantErr: ErrZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.vec, tt.dims)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalized(t *testing.T) {
	in := []float32{3, 4}

	out := Normalized(in)

	require.Len(t, out, 2)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, in, "input must not be modified")
}

func TestNormalized_UnitLength(t *testing.T) {
	out := Normalized([]float32{1, -2, 3, -4, 5})

	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}

	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestNormalized_ZeroVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, Normalized([]float32{0, 0}))
}
