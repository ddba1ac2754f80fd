package vector

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/ajitpratap0/openclaw-graphrag/internal/embedder"
	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

// DefaultTopK is the number of chunks returned when Retrieve is given k <= 0.
const DefaultTopK = 3

// Options configures chunking. Zero values select the defaults.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index chunks, embeds and stores text, and retrieves the nearest chunks
// for a query.
type Index struct {
	backend  Backend
	embedder embedder.Embedder
	opts     Options
	logger   *slog.Logger
}

// NewIndex creates an Index over backend using emb for both documents and queries.
func NewIndex(backend Backend, emb embedder.Embedder, opts Options, logger *slog.Logger) *Index {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{backend: backend, embedder: emb, opts: opts, logger: logger}
}

// Index splits each text into overlapping chunks carrying a copy of the
// matching metadata, embeds them in one batch and appends them to the
// backend. Indexing the same text twice stores it twice. It returns the
// number of chunks stored.
func (ix *Index) Index(ctx context.Context, texts []string, metadatas []map[string]any) (int, error) {
	if metadatas != nil && len(metadatas) != len(texts) {
		return 0, fmt.Errorf("index: %d texts but %d metadata entries", len(texts), len(metadatas))
	}

	var chunks []models.Chunk
	var bodies []string
	for i, text := range texts {
		for _, span := range Split(text, ix.opts.ChunkSize, ix.opts.ChunkOverlap) {
			meta := map[string]any{}
			if metadatas != nil {
				meta = maps.Clone(metadatas[i])
				if meta == nil {
					meta = map[string]any{}
				}
			}
			chunks = append(chunks, models.Chunk{ID: uuid.New().String(), Text: span, Metadata: meta})
			bodies = append(bodies, span)
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, bodies)
	if err != nil {
		return 0, fmt.Errorf("index: embedding %d chunks: %w", len(bodies), err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("index: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := ix.backend.Upsert(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}

	metrics.Add(metrics.ChunksIndexed, len(chunks))
	ix.logger.Info("vector: indexed chunks", "texts", len(texts), "chunks", len(chunks))
	return len(chunks), nil
}

// Retrieve returns the k chunks most similar to query. An empty index yields
// an empty result.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("retrieve: empty query")
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embedding query: %w", err)
	}

	results, err := ix.backend.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return results, nil
}
