// Package vector indexes overlapping text chunks as embeddings and retrieves
// the nearest chunks for a query.
package vector

import (
	"context"
	"errors"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

// ErrVectorUnavailable is returned when the vector backend cannot be reached.
var ErrVectorUnavailable = errors.New("vector index unavailable")

// Backend stores chunk embeddings and answers nearest-neighbour queries.
type Backend interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context) error

	// Upsert appends chunks with their vectors. len(chunks) == len(vectors).
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error

	// Search returns up to k chunks ordered by descending similarity.
	Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)

	// Close cleans up resources.
	Close() error
}
