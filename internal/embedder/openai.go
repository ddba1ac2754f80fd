package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	openAIDefaultModel = "text-embedding-3-small"
	openAIDefaultDim   = 768
)

// OpenAIEmbedder implements Embedder using the OpenAI Embeddings API.
// The dimensions parameter keeps vectors compatible with the configured
// collection size.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	logger     *slog.Logger
}

// NewOpenAIEmbedder creates a new OpenAI-based embedder.
//
// apiKey is the OpenAI API key (required).
// baseURL overrides the API endpoint when non-empty (Azure, proxies, tests).
// model defaults to "text-embedding-3-small" and dimensions to 768.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int, timeout time.Duration, logger *slog.Logger, opts ...option.RequestOption) *OpenAIEmbedder {
	if model == "" {
		model = openAIDefaultModel
	}
	if dimensions <= 0 {
		dimensions = openAIDefaultDim
	}
	if logger == nil {
		logger = slog.Default()
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(timeout))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIEmbedder{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Embed implements Embedder.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder in a single API call. Response items are
// placed by their index so output order matches input order.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: openai.Int(int64(o.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w: %w", ErrEmbedding, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: %w: got %d embeddings for %d inputs", ErrEmbedding, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("openai embedder: %w: index %d out of range", ErrEmbedding, item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		out[idx] = fit(vec, o.dimensions)
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("openai embedder: %w: missing embedding for index %d", ErrEmbedding, i)
		}
	}

	o.logger.Debug("generated embeddings", "model", o.model, "count", len(out), "dimension", o.dimensions)
	return out, nil
}

// Dimension implements Embedder.
func (o *OpenAIEmbedder) Dimension() int {
	return o.dimensions
}
