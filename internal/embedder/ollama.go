package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	ollamaDefaultURL   = "http://localhost:11434"
	ollamaDefaultModel = "nomic-embed-text"
	ollamaDefaultDim   = 768
)

// OllamaEmbedder implements Embedder using a local Ollama server.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int
	logger    *slog.Logger
}

// NewOllamaEmbedder creates a new Ollama-based embedder. Empty arguments
// select the defaults.
func NewOllamaEmbedder(baseURL, model string, dimension int, timeout time.Duration, logger *slog.Logger) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = ollamaDefaultURL
	}
	if model == "" {
		model = ollamaDefaultModel
	}
	if dimension <= 0 {
		dimension = ollamaDefaultDim
	}
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: parsing base url %q: %w", baseURL, err)
	}
	return &OllamaEmbedder{
		client:    api.NewClient(u, &http.Client{Timeout: timeout}),
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// Embed implements Embedder.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder with a single /api/embed call.
func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := o.client.Embed(ctx, &api.EmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w: %w", ErrEmbedding, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embedder: %w: got %d embeddings for %d inputs", ErrEmbedding, len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("ollama embedder: %w: empty embedding at index %d", ErrEmbedding, i)
		}
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		out[i] = fit(vec, o.dimension)
	}

	o.logger.Debug("generated embeddings", "model", o.model, "count", len(out), "dimension", o.dimension)
	return out, nil
}

// Dimension implements Embedder.
func (o *OllamaEmbedder) Dimension() int {
	return o.dimension
}
