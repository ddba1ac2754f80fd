// Package embedder turns text into dense vectors for the vector index.
package embedder

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when an embedding backend fails or returns an
// unusable response.
var ErrEmbedding = errors.New("embedding failed")

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// fit truncates or zero-pads v to dim.
func fit(v []float32, dim int) []float32 {
	if dim <= 0 || len(v) == dim {
		return v
	}
	if len(v) > dim {
		return v[:dim]
	}
	padded := make([]float32, dim)
	copy(padded, v)
	return padded
}
