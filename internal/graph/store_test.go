package graph

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

func TestSanitizeRelationshipLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"is a part-of!!", "IS_A_PART_OF"},
		{"FOUNDED_IN", "FOUNDED_IN"},
		{"founded in", "FOUNDED_IN"},
		{"  works\tfor  ", "WORKS_FOR"},
		{"__leads__", "LEADS"},
		{"owns 3 of", "OWNS_3_OF"},
		{"2023_EVENT", "2023_EVENT"},
		{"drop`]->() DELETE (n", "DROP_DELETE_N"},
		{"café owner", "CAFÉ_OWNER"},
		{"relación con", "RELACIÓN_CON"},
		{"está casado con", "ESTÁ_CASADO_CON"},
		{"передаёт", "ПЕРЕДАЁТ"},
		{"works `for`", "WORKS_FOR"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := SanitizeRelationshipLabel(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, `^[\p{Lu}\p{Lo}\p{N}]+(_[\p{Lu}\p{Lo}\p{N}]+)*$`, got)
			assert.NotContains(t, got, "`")
		})
	}
}

func TestSanitizeRelationshipLabel_Invalid(t *testing.T) {
	for _, raw := range []string{"___", "", "   ", "!!!", "mentions", "Mentions!", "NONE", "none."} {
		t.Run(raw, func(t *testing.T) {
			got, err := SanitizeRelationshipLabel(raw)
			require.ErrorIs(t, err, ErrInvalidLabel)
			assert.Empty(t, got)
		})
	}
}

func TestQuoteType(t *testing.T) {
	assert.Equal(t, "`FOUNDED_IN`", quoteType("FOUNDED_IN"))
}

func TestLeadingKeyword(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"MATCH (n) RETURN n", "MATCH"},
		{"  match(n) return n", "MATCH"},
		{"OPTIONAL MATCH (n) RETURN n", "OPTIONAL"},
		{"", ""},
		{"(n)", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LeadingKeyword(tt.in), "input %q", tt.in)
	}
}

func TestQueryAccessMode(t *testing.T) {
	tests := []struct {
		cypher string
		want   neo4j.AccessMode
	}{
		{"MERGE (e:Entity {name: 'X', type: 'Concept'})", neo4j.AccessModeWrite},
		{"merge (a)-[:X]->(b)", neo4j.AccessModeWrite},
		{"MATCH (e:Entity) RETURN e.name", neo4j.AccessModeRead},
		{"MATCH (n) DETACH DELETE n", neo4j.AccessModeRead},
		{"MATCH (e:Entity) SET e.name = 'x'", neo4j.AccessModeRead},
		{"MATCH (a), (b) MERGE (a)-[:X]->(b)", neo4j.AccessModeRead},
		{"MATCH (e:Entity) WHERE e.name = 'Create Inc' RETURN e", neo4j.AccessModeRead},
		{"OPTIONAL MATCH (e:Entity) RETURN count(e)", neo4j.AccessModeRead},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, queryAccessMode(tt.cypher), "cypher %q", tt.cypher)
	}
}

func TestNormalizeValue(t *testing.T) {
	node := dbtype.Node{Labels: []string{"Entity"}, Props: map[string]any{"name": "Acme Corp", "type": "Organization"}}
	rel := dbtype.Relationship{Type: "FOUNDED_IN", Props: map[string]any{}}

	got := normalizeValue([]any{node, rel, int64(3)})
	assert.Equal(t, []any{
		map[string]any{"labels": []string{"Entity"}, "properties": map[string]any{"name": "Acme Corp", "type": "Organization"}},
		map[string]any{"type": "FOUNDED_IN", "properties": map[string]any{}},
		int64(3),
	}, got)
}

func TestMemoryStore_UpsertEntities(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	ents := []models.Entity{
		{Name: "Acme Corp", Type: models.EntityTypeOrganization},
		{Name: "Jan 2024", Type: models.EntityTypeDate},
	}
	report, err := s.UpsertEntities(ctx, ents, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Empty(t, report.Errors)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.GraphStats{Entities: 2, Documents: 1, Mentions: 2}, stats)
	assert.Equal(t, []models.EntityKey{
		{Name: "Acme Corp", Type: models.EntityTypeOrganization},
		{Name: "Jan 2024", Type: models.EntityTypeDate},
	}, s.Mentions("doc.txt"))
}

func TestMemoryStore_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	ents := []models.Entity{
		{Name: "Alice", Type: models.EntityTypePerson},
		{Name: "Berlin", Type: models.EntityTypeLocation},
	}
	triples := []models.Triple{{Source: "Alice", Label: "lives in", Target: "Berlin"}}

	for range 3 {
		_, err := s.UpsertEntities(ctx, ents, "a.txt")
		require.NoError(t, err)
		_, err = s.UpsertRelationships(ctx, triples)
		require.NoError(t, err)
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.GraphStats{Entities: 2, Documents: 1, Mentions: 2, Relationships: 1}, stats)
}

func TestMemoryStore_SameNameDifferentType(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	_, err := s.UpsertEntities(ctx, []models.Entity{
		{Name: "Jordan", Type: models.EntityTypePerson},
		{Name: "Jordan", Type: models.EntityTypeLocation},
		{Name: "Amman", Type: models.EntityTypeLocation},
	}, "d")
	require.NoError(t, err)

	report, err := s.UpsertRelationships(ctx, []models.Triple{{Source: "Amman", Label: "CAPITAL_OF", Target: "Jordan"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, s.Relationships(), 2)
	assert.Len(t, s.Entities(), 3)
}

func TestMemoryStore_InvalidEntityRecorded(t *testing.T) {
	s := NewMemoryStore(nil)

	report, err := s.UpsertEntities(context.Background(), []models.Entity{
		{Name: "Alice", Type: models.EntityTypePerson},
		{Name: "", Type: models.EntityTypePerson},
		{Name: "Enterprise", Type: "Spaceship"},
	}, "d")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Failed())
	assert.True(t, report.Partial())
}

func TestMemoryStore_EmptyDocumentID(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.UpsertEntities(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrEmptyDocumentID)
}

func TestMemoryStore_MissingEndpointSkipped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	_, err := s.UpsertEntities(ctx, []models.Entity{{Name: "Alice", Type: models.EntityTypePerson}}, "d")
	require.NoError(t, err)

	report, err := s.UpsertRelationships(ctx, []models.Triple{
		{Source: "Alice", Label: "KNOWS", Target: "Bob"},
		{Source: "Zed", Label: "KNOWS", Target: "Alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.Empty(t, s.Relationships())
}

func TestMemoryStore_InvalidLabelRecorded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	_, err := s.UpsertEntities(ctx, []models.Entity{
		{Name: "A", Type: models.EntityTypeConcept},
		{Name: "B", Type: models.EntityTypeConcept},
	}, "d")
	require.NoError(t, err)

	report, err := s.UpsertRelationships(ctx, []models.Triple{
		{Source: "A", Label: "___", Target: "B"},
		{Source: "A", Label: "mentions", Target: "B"},
		{Source: "A", Label: "is a part-of!!", Target: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Errors, 2)
	assert.Contains(t, report.Errors[0].Error, ErrInvalidLabel.Error())

	rels := s.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, "IS_A_PART_OF", rels[0].Type)
}

func TestMemoryStore_Query(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	_, err := s.Query(ctx, "MATCH (n) RETURN n", nil)
	require.ErrorIs(t, err, ErrQueryUnsupported)

	s.SetQueryFunc(func(_ context.Context, cypher string, _ map[string]any) ([]map[string]any, error) {
		if cypher == "BOOM" {
			return nil, errors.New("syntax error")
		}
		return []map[string]any{{"name": "Acme Corp"}}, nil
	})
	rows, err := s.Query(ctx, "MATCH (e:Entity) RETURN e.name AS name", nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "Acme Corp"}}, rows)

	_, err = s.Query(ctx, "BOOM", nil)
	require.Error(t, err)
	assert.Equal(t, []string{"MATCH (n) RETURN n", "MATCH (e:Entity) RETURN e.name AS name", "BOOM"}, s.Queries())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.UpsertEntities(ctx, []models.Entity{{Name: "A", Type: models.EntityTypeConcept}}, "d")
	require.ErrorIs(t, err, context.Canceled)
}

// TestNeo4jStore_Integration runs against a live database when
// NEO4J_TEST_URI is set.
func TestNeo4jStore_Integration(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set, skipping neo4j integration test")
	}
	ctx := context.Background()
	s, err := NewNeo4jStore(ctx, Neo4jConfig{
		URI:      uri,
		Username: os.Getenv("NEO4J_TEST_USERNAME"),
		Password: os.Getenv("NEO4J_TEST_PASSWORD"),
	}, nil)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.EnsureSchema(ctx))

	doc := "integration-" + t.Name()
	ents := []models.Entity{
		{Name: "IntegrationAcme", Type: models.EntityTypeOrganization},
		{Name: "IntegrationJan2024", Type: models.EntityTypeDate},
	}
	for range 2 {
		report, err := s.UpsertEntities(ctx, ents, doc)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Succeeded)

		report, err = s.UpsertRelationships(ctx, []models.Triple{
			{Source: "IntegrationAcme", Label: "founded in", Target: "IntegrationJan2024"},
			{Source: "IntegrationAcme", Label: "OWNS", Target: "IntegrationMissing"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded)
		assert.Equal(t, 1, report.Skipped)
	}

	rows, err := s.Query(ctx, "MATCH (:Entity {name: $a})-[r:FOUNDED_IN]->(:Entity {name: $b}) RETURN count(r) AS n",
		map[string]any{"a": "IntegrationAcme", "b": "IntegrationJan2024"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["n"])

	// Write clauses behind a read-only leading keyword run read-only and are refused.
	_, err = s.Query(ctx, "MATCH (d:Document {filename: $f}) DETACH DELETE d", map[string]any{"f": doc})
	require.Error(t, err)
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Documents, int64(1))

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	require.NoError(t, s.write(ctx, session, "MATCH (d:Document {filename: $f}) DETACH DELETE d", map[string]any{"f": doc}))
	require.NoError(t, s.write(ctx, session, "MATCH (e:Entity) WHERE e.name STARTS WITH 'Integration' DETACH DELETE e", nil))
}

func TestNewNeo4jStore_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network dial in short mode")
	}
	_, err := NewNeo4jStore(context.Background(), Neo4jConfig{URI: "bolt://127.0.0.1:1", Timeout: 500 * time.Millisecond}, nil)
	require.ErrorIs(t, err, ErrGraphUnavailable)
}
