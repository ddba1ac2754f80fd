package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

// ErrQueryUnsupported is returned by MemoryStore.Query when no QueryFunc is set.
var ErrQueryUnsupported = errors.New("cypher queries are not supported by the in-memory graph")

// QueryFunc answers a Cypher statement on behalf of a MemoryStore.
type QueryFunc func(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

type mention struct {
	document string
	entity   models.EntityKey
}

// MemoryStore is an in-memory Store with the same merge semantics as the
// Neo4j implementation. It cannot evaluate Cypher; set QueryFunc to script
// query results.
type MemoryStore struct {
	mu            sync.RWMutex
	entities      map[models.EntityKey]int
	entityOrder   []models.EntityKey
	documents     map[string]bool
	mentions      map[mention]bool
	relationships map[models.Relationship]bool
	relOrder      []models.Relationship
	queries       []string
	queryFunc     QueryFunc
	logger        *slog.Logger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		entities:      make(map[models.EntityKey]int),
		documents:     make(map[string]bool),
		mentions:      make(map[mention]bool),
		relationships: make(map[models.Relationship]bool),
		logger:        logger,
	}
}

// SetQueryFunc installs fn as the Cypher evaluator.
func (m *MemoryStore) SetQueryFunc(fn QueryFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryFunc = fn
}

// UpsertEntities implements Store.
func (m *MemoryStore) UpsertEntities(ctx context.Context, entities []models.Entity, documentID string) (models.IngestReport, error) {
	var report models.IngestReport
	if documentID == "" {
		return report, ErrEmptyDocumentID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.documents[documentID] = true
	for i := range entities {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("upsert entities: %w", err)
		}
		e := entities[i]
		if err := validateEntity(e); err != nil {
			report.AddError(entityItem(e), err)
			continue
		}
		key := e.Key()
		if _, ok := m.entities[key]; !ok {
			m.entities[key] = len(m.entityOrder)
			m.entityOrder = append(m.entityOrder, key)
		}
		m.mentions[mention{document: documentID, entity: key}] = true
		report.Succeeded++
	}

	metrics.Add(metrics.EntitiesUpserted, report.Succeeded)
	return report, nil
}

// UpsertRelationships implements Store. Endpoints are matched by name only,
// so a name shared by several entity types links every combination.
func (m *MemoryStore) UpsertRelationships(ctx context.Context, triples []models.Triple) (models.IngestReport, error) {
	var report models.IngestReport

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range triples {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("upsert relationships: %w", err)
		}
		t := triples[i]
		label, err := SanitizeRelationshipLabel(t.Label)
		if err != nil {
			report.AddError(tripleItem(t), err)
			continue
		}

		sources := m.byNameLocked(t.Source)
		targets := m.byNameLocked(t.Target)
		if len(sources) == 0 || len(targets) == 0 {
			m.logger.Info("graph: skipping relationship with missing endpoint", "source", t.Source, "target", t.Target, "label", label)
			report.Skipped++
			continue
		}

		for _, s := range sources {
			for _, tg := range targets {
				rel := models.Relationship{Source: s, Type: label, Target: tg}
				if !m.relationships[rel] {
					m.relationships[rel] = true
					m.relOrder = append(m.relOrder, rel)
				}
			}
		}
		report.Succeeded++
	}

	metrics.Add(metrics.RelationshipsUpserted, report.Succeeded)
	metrics.Add(metrics.RelationshipsSkipped, report.Skipped)
	return report, nil
}

func (m *MemoryStore) byNameLocked(name string) []models.EntityKey {
	var out []models.EntityKey
	for _, k := range m.entityOrder {
		if k.Name == name {
			out = append(out, k)
		}
	}
	return out
}

// Query records cypher and delegates to the installed QueryFunc.
func (m *MemoryStore) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	m.mu.Lock()
	m.queries = append(m.queries, cypher)
	fn := m.queryFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, ErrQueryUnsupported
	}
	return fn(ctx, cypher, params)
}

// Queries returns every statement passed to Query, in order.
func (m *MemoryStore) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// Stats implements Store.
func (m *MemoryStore) Stats(_ context.Context) (models.GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.GraphStats{
		Entities:      int64(len(m.entities)),
		Documents:     int64(len(m.documents)),
		Mentions:      int64(len(m.mentions)),
		Relationships: int64(len(m.relationships)),
	}, nil
}

// Entities returns every stored entity in insertion order.
func (m *MemoryStore) Entities() []models.Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Entity, len(m.entityOrder))
	for i, k := range m.entityOrder {
		out[i] = models.Entity{Name: k.Name, Type: k.Type}
	}
	return out
}

// Relationships returns every stored relationship in insertion order.
func (m *MemoryStore) Relationships() []models.Relationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Relationship, len(m.relOrder))
	copy(out, m.relOrder)
	return out
}

// Mentions returns the entities documentID mentions, sorted by name then type.
func (m *MemoryStore) Mentions(documentID string) []models.EntityKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.EntityKey
	for mn := range m.mentions {
		if mn.document == documentID {
			out = append(out, mn.entity)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := strings.Compare(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Close implements Store.
func (m *MemoryStore) Close(_ context.Context) error {
	return nil
}
