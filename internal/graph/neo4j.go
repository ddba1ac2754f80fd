package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

const (
	upsertDocumentCypher = `MERGE (d:Document {filename: $filename})`

	upsertEntityCypher = `
		MERGE (e:Entity {name: $name, type: $type})
		MERGE (d:Document {filename: $filename})
		MERGE (d)-[:MENTIONS]->(e)`

	// %s is a backtick-quoted, sanitized relationship type.
	upsertRelationshipCypher = `
		MATCH (a:Entity {name: $a})
		MATCH (b:Entity {name: $b})
		MERGE (a)-[r:%s]->(b)
		RETURN count(r) AS linked`

	statsCypher = `
		OPTIONAL MATCH (e:Entity)
		WITH count(e) AS entities
		OPTIONAL MATCH (d:Document)
		WITH entities, count(d) AS documents
		OPTIONAL MATCH (:Document)-[m:MENTIONS]->(:Entity)
		WITH entities, documents, count(m) AS mentions
		OPTIONAL MATCH (:Entity)-[r]->(:Entity)
		RETURN entities, documents, mentions, count(r) AS relationships`
)

var schemaCypher = []string{
	`CREATE CONSTRAINT entity_key IF NOT EXISTS FOR (e:Entity) REQUIRE (e.name, e.type) IS UNIQUE`,
	`CREATE CONSTRAINT document_filename IF NOT EXISTS FOR (d:Document) REQUIRE d.filename IS UNIQUE`,
}

// Neo4jConfig holds connection settings for Neo4jStore.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// Neo4jStore implements Store on a Neo4j database.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, logger *slog.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	verifyCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w: %w", cfg.URI, ErrGraphUnavailable, err)
	}

	logger.Info("connected to neo4j", "uri", cfg.URI, "database", cfg.Database)
	return &Neo4jStore{driver: driver, database: cfg.Database, timeout: cfg.Timeout, logger: logger}, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// unavailable reports whether err means the backend is unreachable rather
// than that one statement failed.
func unavailable(err error) bool {
	if neo4j.IsConnectivityError(err) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func wrapUnavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrGraphUnavailable, err)
}

// EnsureSchema creates the uniqueness constraints on entity and document keys.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaCypher {
		res, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			if unavailable(err) {
				return wrapUnavailable("ensure schema", err)
			}
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.logger.Info("neo4j schema ensured")
	return nil
}

// UpsertEntities implements Store. Each entity is merged in its own write
// transaction; a connectivity failure aborts the batch.
func (s *Neo4jStore) UpsertEntities(ctx context.Context, entities []models.Entity, documentID string) (models.IngestReport, error) {
	var report models.IngestReport
	if documentID == "" {
		return report, ErrEmptyDocumentID
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	if err := s.write(ctx, session, upsertDocumentCypher, map[string]any{"filename": documentID}); err != nil {
		if unavailable(err) {
			return report, wrapUnavailable("upsert document", err)
		}
		return report, fmt.Errorf("upsert document %q: %w", documentID, err)
	}

	for i := range entities {
		e := entities[i]
		if err := validateEntity(e); err != nil {
			report.AddError(entityItem(e), err)
			continue
		}
		params := map[string]any{"name": e.Name, "type": string(e.Type), "filename": documentID}
		if err := s.write(ctx, session, upsertEntityCypher, params); err != nil {
			if unavailable(err) {
				return report, wrapUnavailable("upsert entities", err)
			}
			s.logger.Warn("graph: entity upsert failed", "entity", e.Name, "type", e.Type, "error", err)
			report.AddError(entityItem(e), err)
			continue
		}
		report.Succeeded++
	}

	metrics.Add(metrics.EntitiesUpserted, report.Succeeded)
	return report, nil
}

// UpsertRelationships implements Store.
func (s *Neo4jStore) UpsertRelationships(ctx context.Context, triples []models.Triple) (models.IngestReport, error) {
	var report models.IngestReport

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for i := range triples {
		t := triples[i]
		label, err := SanitizeRelationshipLabel(t.Label)
		if err != nil {
			report.AddError(tripleItem(t), err)
			continue
		}

		cypher := fmt.Sprintf(upsertRelationshipCypher, quoteType(label))
		linked, err := s.writeCount(ctx, session, cypher, map[string]any{"a": t.Source, "b": t.Target})
		if err != nil {
			if unavailable(err) {
				return report, wrapUnavailable("upsert relationships", err)
			}
			s.logger.Warn("graph: relationship upsert failed", "source", t.Source, "target", t.Target, "label", label, "error", err)
			report.AddError(tripleItem(t), err)
			continue
		}
		if linked == 0 {
			s.logger.Info("graph: skipping relationship with missing endpoint", "source", t.Source, "target", t.Target, "label", label)
			report.Skipped++
			continue
		}
		report.Succeeded++
	}

	metrics.Add(metrics.RelationshipsUpserted, report.Succeeded)
	metrics.Add(metrics.RelationshipsSkipped, report.Skipped)
	return report, nil
}

func (s *Neo4jStore) write(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (s *Neo4jStore) writeCount(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		var total int64
		for _, rec := range records {
			if v, ok := rec.Get("linked"); ok {
				if n, ok := v.(int64); ok {
					total += n
				}
			}
		}
		return total, nil
	})
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

// queryAccessMode opens a write transaction only for statements led by
// MERGE. Everything else runs read-only, so the server refuses write clauses
// later in the statement.
func queryAccessMode(cypher string) neo4j.AccessMode {
	if LeadingKeyword(cypher) == "MERGE" {
		return neo4j.AccessModeWrite
	}
	return neo4j.AccessModeRead
}

// Query implements Store. Only MERGE-led statements may write.
func (s *Neo4jStore) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	mode := queryAccessMode(cypher)

	session := s.session(ctx, mode)
	defer session.Close(ctx)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := rec.AsMap()
			for k, v := range row {
				row[k] = normalizeValue(v)
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	var out any
	var err error
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		if unavailable(err) {
			return nil, wrapUnavailable("query", err)
		}
		return nil, fmt.Errorf("query: %w", err)
	}
	return out.([]map[string]any), nil
}

// Stats implements Store.
func (s *Neo4jStore) Stats(ctx context.Context) (models.GraphStats, error) {
	rows, err := s.Query(ctx, statsCypher, nil)
	if err != nil {
		return models.GraphStats{}, fmt.Errorf("stats: %w", err)
	}
	if len(rows) == 0 {
		return models.GraphStats{}, nil
	}
	row := rows[0]
	return models.GraphStats{
		Entities:      asInt64(row["entities"]),
		Documents:     asInt64(row["documents"]),
		Mentions:      asInt64(row["mentions"]),
		Relationships: asInt64(row["relationships"]),
	}, nil
}

// Close implements Store.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// normalizeValue converts driver graph types into plain maps so query rows
// encode cleanly as JSON.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return map[string]any{"labels": val.Labels, "properties": normalizeMap(val.Props)}
	case dbtype.Relationship:
		return map[string]any{"type": val.Type, "properties": normalizeMap(val.Props)}
	case dbtype.Path:
		nodes := make([]any, len(val.Nodes))
		for i := range val.Nodes {
			nodes[i] = normalizeValue(val.Nodes[i])
		}
		rels := make([]any, len(val.Relationships))
		for i := range val.Relationships {
			rels[i] = normalizeValue(val.Relationships[i])
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = normalizeValue(val[i])
		}
		return out
	case map[string]any:
		return normalizeMap(val)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}
