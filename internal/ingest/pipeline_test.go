package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/openclaw-graphrag/internal/embedder"
	"github.com/ajitpratap0/openclaw-graphrag/internal/extract"
	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/infer"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
	"github.com/ajitpratap0/openclaw-graphrag/internal/vector"
)

const (
	extractMarker = "Extract all named entities"
	inferMarker   = "Suggest a relationship label"
)

type fixture struct {
	oracle   *oracle.Mock
	store    *graph.MemoryStore
	backend  *vector.MemoryBackend
	pipeline *Pipeline
}

func newFixture(m *oracle.Mock, opts Options) *fixture {
	store := graph.NewMemoryStore(nil)
	backend := vector.NewMemoryBackend()
	index := vector.NewIndex(backend, embedder.NewHashEmbedder(64), vector.Options{}, nil)
	p := NewPipeline(
		extract.NewExtractor(m, nil),
		infer.NewInferencer(m, infer.Options{}, nil),
		store, index, opts, nil,
	)
	return &fixture{oracle: m, store: store, backend: backend, pipeline: p}
}

func chunkCount(t *testing.T, b *vector.MemoryBackend) int64 {
	t.Helper()
	n, err := b.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestIngest_EndToEnd(t *testing.T) {
	m := oracle.NewMock().
		On(extractMarker, `{"entities":[{"name":"Acme Corp","type":"Organization"},{"name":"Jan 2024","type":"Date"}]}`).
		On(inferMarker, "founded in")
	f := newFixture(m, Options{})
	ctx := context.Background()

	report, err := f.pipeline.Ingest(ctx, models.SourceDocument{
		DocumentID: "acme.txt",
		Text:       "Acme Corp was founded in Jan 2024.",
		Modality:   "text",
	})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.GraphStats{Entities: 2, Documents: 1, Mentions: 2, Relationships: 1}, stats)

	rels := f.store.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, models.Relationship{
		Source: models.EntityKey{Name: "Acme Corp", Type: models.EntityTypeOrganization},
		Type:   "FOUNDED_IN",
		Target: models.EntityKey{Name: "Jan 2024", Type: models.EntityTypeDate},
	}, rels[0])

	assert.Equal(t, 2, report.Mentions.Succeeded)
	assert.Equal(t, 1, report.Relationships.Succeeded)
	assert.Equal(t, 1, report.ChunksIndexed)
	assert.Equal(t, int64(1), chunkCount(t, f.backend))
	assert.Equal(t, 2, m.CallCount(), "one extraction call and one pair call")

	// Re-ingesting leaves the graph unchanged; the vector index appends.
	_, err = f.pipeline.Ingest(ctx, models.SourceDocument{DocumentID: "acme.txt", Text: "Acme Corp was founded in Jan 2024."})
	require.NoError(t, err)
	again, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
	assert.Equal(t, int64(2), chunkCount(t, f.backend))
}

func TestIngest_VectorMetadata(t *testing.T) {
	m := oracle.NewMock().On(extractMarker, `{"entities":[]}`)
	f := newFixture(m, Options{})

	_, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{DocumentID: "notes.md", Text: "plain notes", Modality: "text"})
	require.NoError(t, err)

	results, err := f.backend.Search(context.Background(), make([]float32, 64), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "notes.md", results[0].Chunk.Source())
	assert.Equal(t, "text", results[0].Chunk.Metadata["modality"])
}

func TestIngest_MalformedExtractionStillIndexes(t *testing.T) {
	m := oracle.NewMock().On(extractMarker, "<<<>>>")
	f := newFixture(m, Options{})

	report, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{DocumentID: "bad.txt", Text: "Some text."})
	require.NoError(t, err)
	assert.ErrorIs(t, report.GraphErr, extract.ErrMalformedExtraction)
	assert.NotEmpty(t, report.GraphError)
	assert.NoError(t, report.VectorErr)
	assert.Equal(t, 1, report.ChunksIndexed)

	stats, err := f.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Entities)
}

func TestIngest_OracleDownStillIndexes(t *testing.T) {
	m := oracle.NewMock()
	f := newFixture(m, Options{})

	report, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{DocumentID: "a.txt", Text: "text"})
	require.NoError(t, err)
	assert.ErrorIs(t, report.Err(), oracle.ErrOracleUnavailable)
	assert.Equal(t, 1, report.ChunksIndexed)
}

type failingIndexer struct{}

func (failingIndexer) Index(context.Context, []string, []map[string]any) (int, error) {
	return 0, errors.New("qdrant unreachable")
}

func TestIngest_VectorFailureKeepsGraph(t *testing.T) {
	m := oracle.NewMock().
		On(extractMarker, `[{"name":"Alice","type":"Person"}]`)
	store := graph.NewMemoryStore(nil)
	p := NewPipeline(extract.NewExtractor(m, nil), infer.NewInferencer(m, infer.Options{}, nil), store, failingIndexer{}, Options{}, nil)

	report, err := p.Ingest(context.Background(), models.SourceDocument{DocumentID: "a.txt", Text: "Alice"})
	require.NoError(t, err)
	assert.NoError(t, report.GraphErr)
	assert.EqualError(t, report.VectorErr, "qdrant unreachable")
	assert.Equal(t, []models.Entity{{Name: "Alice", Type: models.EntityTypePerson}}, store.Entities())
}

func TestIngest_TruncatesText(t *testing.T) {
	m := oracle.NewMock().On(extractMarker, `{"entities":[]}`)
	f := newFixture(m, Options{MaxChars: 10})

	report, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{DocumentID: "long.txt", Text: strings.Repeat("ü", 50)})
	require.NoError(t, err)
	assert.True(t, report.Truncated)
	assert.Contains(t, m.Calls()[0], "<text>"+strings.Repeat("ü", 10)+"</text>")
}

func TestIngest_MissingEndpointSkipped(t *testing.T) {
	m := oracle.NewMock().
		On(extractMarker, `{"entities":[{"name":"Alice","type":"Person"},{"name":"Berlin","type":"Location"}]}`).
		On(inferMarker, "LIVES_IN")
	f := newFixture(m, Options{})
	ctx := context.Background()

	_, err := f.pipeline.Ingest(ctx, models.SourceDocument{DocumentID: "a.txt", Text: "Alice lives in Berlin."})
	require.NoError(t, err)

	report, err := f.store.UpsertRelationships(ctx, []models.Triple{{Source: "Alice", Label: "KNOWS", Target: "Carol"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, f.store.Relationships(), 1)
}

func TestIngest_Errors(t *testing.T) {
	f := newFixture(oracle.NewMock(), Options{})

	_, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{Text: "x"})
	require.ErrorIs(t, err, ErrEmptyDocumentID)

	report, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{DocumentID: "blank.txt", Text: "  \n "})
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	assert.Zero(t, f.oracle.CallCount())
}

func TestIngestCaptions(t *testing.T) {
	m := oracle.NewMock().OnFunc(inferMarker, func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "a dog runs") && strings.Contains(prompt, "a dog sleeps") {
			return "FOLLOWED_BY", nil
		}
		return infer.NoRelationship, nil
	})
	f := newFixture(m, Options{})
	ctx := context.Background()

	report, err := f.pipeline.IngestCaptions(ctx, "clip.mp4", []string{"a dog runs", "", "a dog sleeps", "a dog runs", "a cat"})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, "clip.mp4#frames", report.Document)
	assert.Len(t, report.Entities, 3)
	for _, e := range report.Entities {
		assert.Equal(t, models.EntityTypeConcept, e.Type)
	}
	assert.Equal(t, 3, m.CallCount())

	assert.Len(t, f.store.Mentions("clip.mp4#frames"), 3)
	rels := f.store.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, "FOLLOWED_BY", rels[0].Type)
	assert.Equal(t, int64(0), chunkCount(t, f.backend))
}

func TestIngestCaptions_NoCaptions(t *testing.T) {
	f := newFixture(oracle.NewMock(), Options{})
	report, err := f.pipeline.IngestCaptions(context.Background(), "clip.mp4", []string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, report.Entities)

	_, err = f.pipeline.IngestCaptions(context.Background(), "", []string{"x"})
	require.ErrorIs(t, err, ErrEmptyDocumentID)
}
