// Package ingest drives one source document through entity extraction,
// graph upserts, relationship inference and vector indexing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/infer"
	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/pkg/textutil"
)

// DefaultMaxChars is the character budget applied to document text.
const DefaultMaxChars = 3000

// FramesSuffix is appended to a video identifier to name the pseudo-document
// holding its frame captions.
const FramesSuffix = "#frames"

// ModalityVideo is recorded for caption ingestion.
const ModalityVideo = "video"

// ErrEmptyDocumentID is returned when a source has no identifier.
var ErrEmptyDocumentID = errors.New("empty document id")

// EntityExtractor identifies entities in text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]models.Entity, error)
}

// RelationshipInferencer proposes relationships between entities.
type RelationshipInferencer interface {
	Infer(ctx context.Context, entities []models.Entity) (infer.Result, error)
}

// Indexer stores text in the vector index.
type Indexer interface {
	Index(ctx context.Context, texts []string, metadatas []map[string]any) (int, error)
}

// Report describes what one ingestion wrote. Graph and vector failures are
// recorded separately; neither hides the other.
type Report struct {
	Document      string              `json:"document"`
	Modality      string              `json:"modality,omitempty"`
	Truncated     bool                `json:"truncated"`
	Entities      []models.Entity     `json:"entities"`
	Mentions      models.IngestReport `json:"mentions"`
	Triples       []models.Triple     `json:"triples"`
	Relationships models.IngestReport `json:"relationships"`
	Warnings      []infer.PairWarning `json:"warnings,omitempty"`
	ChunksIndexed int                 `json:"chunks_indexed"`
	GraphError    string              `json:"graph_error,omitempty"`
	VectorError   string              `json:"vector_error,omitempty"`
	GraphErr      error               `json:"-"`
	VectorErr     error               `json:"-"`
}

// Err joins the graph and vector failures, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.GraphErr, r.VectorErr)
}

// Partial reports whether any item-level upsert failed.
func (r Report) Partial() bool {
	return r.Mentions.Failed() > 0 || r.Relationships.Failed() > 0
}

func (r *Report) setGraphErr(err error) {
	r.GraphErr = err
	r.GraphError = err.Error()
}

func (r *Report) setVectorErr(err error) {
	r.VectorErr = err
	r.VectorError = err.Error()
}

// Options configures a Pipeline. Zero values select the defaults.
type Options struct {
	MaxChars int
}

// Pipeline wires the ingestion collaborators together.
type Pipeline struct {
	extractor  EntityExtractor
	inferencer RelationshipInferencer
	store      graph.Store
	index      Indexer
	maxChars   int
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline. index may be nil to skip vector indexing.
func NewPipeline(ex EntityExtractor, inf RelationshipInferencer, store graph.Store, index Indexer, opts Options, logger *slog.Logger) *Pipeline {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor:  ex,
		inferencer: inf,
		store:      store,
		index:      index,
		maxChars:   opts.MaxChars,
		logger:     logger,
	}
}

// Ingest processes one document. The returned error is non-nil only when the
// document cannot be processed at all; path failures are in the Report.
func (p *Pipeline) Ingest(ctx context.Context, doc models.SourceDocument) (Report, error) {
	report := Report{Document: doc.DocumentID, Modality: doc.Modality}
	if doc.DocumentID == "" {
		return report, ErrEmptyDocumentID
	}

	text := textutil.Truncate(doc.Text, p.maxChars)
	report.Truncated = len(text) < len(doc.Text)
	if strings.TrimSpace(text) == "" {
		p.logger.Warn("ingest: document has no text", "document", doc.DocumentID)
		return report, nil
	}

	if err := p.ingestGraph(ctx, doc.DocumentID, text, &report); err != nil {
		report.setGraphErr(err)
		p.logger.Error("ingest: graph path failed", "document", doc.DocumentID, "error", err)
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingest %s: %w", doc.DocumentID, err)
	}

	if p.index != nil {
		meta := map[string]any{"source": doc.DocumentID}
		if doc.Modality != "" {
			meta["modality"] = doc.Modality
		}
		n, err := p.index.Index(ctx, []string{text}, []map[string]any{meta})
		if err != nil {
			report.setVectorErr(err)
			p.logger.Error("ingest: vector path failed", "document", doc.DocumentID, "error", err)
		}
		report.ChunksIndexed = n
	}

	metrics.Inc(metrics.DocumentsIngested)
	p.logger.Info("ingest: document processed",
		"document", doc.DocumentID,
		"entities", len(report.Entities),
		"relationships", report.Relationships.Succeeded,
		"skipped", report.Relationships.Skipped,
		"chunks", report.ChunksIndexed,
	)
	return report, nil
}

func (p *Pipeline) ingestGraph(ctx context.Context, documentID, text string, report *Report) error {
	entities, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return fmt.Errorf("extracting entities: %w", err)
	}
	report.Entities = entities
	return p.linkEntities(ctx, documentID, entities, report)
}

// linkEntities upserts entities with their mentions, then infers and
// upserts relationships between them.
func (p *Pipeline) linkEntities(ctx context.Context, documentID string, entities []models.Entity, report *Report) error {
	mentions, err := p.store.UpsertEntities(ctx, entities, documentID)
	report.Mentions = mentions
	if err != nil {
		return fmt.Errorf("upserting entities: %w", err)
	}

	result, err := p.inferencer.Infer(ctx, entities)
	if err != nil {
		return fmt.Errorf("inferring relationships: %w", err)
	}
	report.Triples = result.Triples
	report.Warnings = result.Warnings

	if len(result.Triples) == 0 {
		return nil
	}
	rels, err := p.store.UpsertRelationships(ctx, result.Triples)
	report.Relationships = rels
	if err != nil {
		return fmt.Errorf("upserting relationships: %w", err)
	}
	return nil
}

// FramesDocumentID names the pseudo-document for a video's frame captions.
func FramesDocumentID(video string) string {
	return video + FramesSuffix
}

// IngestCaptions turns each distinct non-blank caption into a Concept
// entity mentioned by the video's frames pseudo-document, then infers and
// upserts relationships between them.
func (p *Pipeline) IngestCaptions(ctx context.Context, video string, captions []string) (Report, error) {
	docID := FramesDocumentID(video)
	report := Report{Document: docID, Modality: ModalityVideo}
	if video == "" {
		return report, ErrEmptyDocumentID
	}

	seen := make(map[string]bool, len(captions))
	var entities []models.Entity
	for _, c := range captions {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		entities = append(entities, models.Entity{Name: c, Type: models.EntityTypeConcept})
	}
	report.Entities = entities
	if len(entities) == 0 {
		p.logger.Warn("ingest: no usable captions", "video", video)
		return report, nil
	}

	if err := p.linkEntities(ctx, docID, entities, &report); err != nil {
		report.setGraphErr(err)
		p.logger.Error("ingest: caption graph path failed", "video", video, "error", err)
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingest captions %s: %w", video, err)
	}

	metrics.Inc(metrics.DocumentsIngested)
	p.logger.Info("ingest: captions processed", "video", video, "captions", len(entities), "relationships", report.Relationships.Succeeded)
	return report, nil
}
