package embed

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// Hash is a deterministic embedder for tests and offline runs. The same text
// always yields the same unit vector; unrelated texts are nearly orthogonal.
type Hash struct {
	Dim   int
	calls atomic.Int64
}

// NewHash creates a Hash embedder of the given dimension (384 when <= 0).
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = 384
	}
	return &Hash{Dim: dim}
}

// EmbedTexts implements Embedder.
func (h *Hash) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	h.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, h.Dim)
	}
	return out, nil
}

// Calls returns how many batches were embedded.
func (h *Hash) Calls() int { return int(h.calls.Load()) }

func hashVector(text string, dim int) []float32 {
	f := fnv.New32a()
	f.Write([]byte(text))
	seed := f.Sum32()

	vec := make([]float32, dim)
	var sum float64
	for i := range vec {
		seed = seed*1664525 + 1013904223
		v := float32(seed%2000)/1000.0 - 1.0
		vec[i] = v
		sum += float64(v * v)
	}
	if sum > 0 {
		n := float32(1 / math.Sqrt(sum))
		for i := range vec {
			vec[i] *= n
		}
	}
	return vec
}
