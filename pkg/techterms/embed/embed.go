// Package embed maps terms to dense vectors.
//
// A provider returns one vector per input text. An empty or all-zero vector
// means the provider has no embedding for that text; callers treat such terms
// as unclusterable rather than failing.
package embed

import "context"

// Embedder produces vector embeddings for a batch of texts. The result has
// one entry per input, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// IsZero reports whether vec carries no embedding.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// EmbedText embeds a single text with e.
func EmbedText(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}
