package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
)

func TestMetrics_IngestIncrements(t *testing.T) {
	docsBefore := metrics.DocumentsIngested.Value()
	entitiesBefore := metrics.EntitiesUpserted.Value()
	relsBefore := metrics.RelationshipsUpserted.Value()
	chunksBefore := metrics.ChunksIndexed.Value()

	m := oracle.NewMock().
		On(extractMarker, `[{"name":"Acme Corp","type":"Organization"},{"name":"Berlin","type":"Location"}]`).
		On(inferMarker, "headquartered in")
	f := newFixture(m, Options{})

	_, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{
		DocumentID: "hq.txt",
		Text:       "Acme Corp is headquartered in Berlin.",
	})
	require.NoError(t, err)

	assert.Equal(t, docsBefore+1, metrics.DocumentsIngested.Value())
	assert.Equal(t, entitiesBefore+2, metrics.EntitiesUpserted.Value())
	assert.Equal(t, relsBefore+1, metrics.RelationshipsUpserted.Value())
	assert.Equal(t, chunksBefore+1, metrics.ChunksIndexed.Value())
}

func TestMetrics_DroppedPairs(t *testing.T) {
	before := metrics.PairsDropped.Value()

	m := oracle.NewMock().
		On(extractMarker, `[{"name":"A","type":"Concept"},{"name":"B","type":"Concept"}]`).
		OnError(inferMarker, oracle.ErrOracleTimeout)
	f := newFixture(m, Options{})

	report, err := f.pipeline.Ingest(context.Background(), models.SourceDocument{DocumentID: "ab.txt", Text: "A and B."})
	require.NoError(t, err)
	assert.Empty(t, report.Triples)
	assert.Equal(t, before+1, metrics.PairsDropped.Value())
}
