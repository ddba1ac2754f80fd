// Package extract turns document text into typed entities with one oracle call.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
	"github.com/ajitpratap0/openclaw-graphrag/pkg/xmlutil"
)

// ErrMalformedExtraction is returned when the oracle output is not valid
// structured data or names an entity outside the fixed type set.
var ErrMalformedExtraction = errors.New("malformed extraction")

// entityExtractionPromptTemplate is the prompt used to identify entities in
// document text. Text is injected via an XML tag to prevent prompt injection.
const entityExtractionPromptTemplate = `Extract all named entities (people, organizations, places, dates, and concepts) from the text below.

Return them in JSON format with exactly this structure:
{"entities": [{"name": "...", "type": "Person | Organization | Location | Date | Concept"}]}

Use only these types: Person, Organization, Location, Date, Concept.
If no entities are present, return {"entities": []}.

%s

Extract entities as JSON:`

// capturedEntity is the raw JSON shape returned by the oracle.
type capturedEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type extractionResponse struct {
	Entities []capturedEntity `json:"entities"`
}

// Extractor identifies named entities using an oracle.
type Extractor struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// NewExtractor creates an Extractor backed by o.
func NewExtractor(o oracle.Oracle, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{oracle: o, logger: logger}
}

// Extract identifies entities in text. It never returns a partially parsed
// list: any malformed entry fails the whole call with ErrMalformedExtraction.
// Oracle failures are returned unchanged.
func (e *Extractor) Extract(ctx context.Context, text string) ([]models.Entity, error) {
	prompt := fmt.Sprintf(entityExtractionPromptTemplate, xmlutil.Tag("text", text))

	responseText, err := e.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	e.logger.Debug("entity extraction response", "response", responseText)

	entities, err := ParseEntities(responseText)
	if err != nil {
		e.logger.Warn("entity extraction: rejecting oracle output", "error", err)
		return nil, err
	}

	e.logger.Info("extracted entities", "count", len(entities))
	return entities, nil
}

// ParseEntities parses oracle output into entities. Both the wrapped
// {"entities": [...]} form and a bare array are accepted. Duplicate
// (name, type) pairs are collapsed, keeping first-seen order.
func ParseEntities(raw string) ([]models.Entity, error) {
	captured, err := decode(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.EntityKey]bool, len(captured))
	entities := make([]models.Entity, 0, len(captured))
	for i := range captured {
		name := strings.TrimSpace(captured[i].Name)
		if name == "" {
			return nil, fmt.Errorf("%w: entity %d has an empty name", ErrMalformedExtraction, i)
		}
		et, ok := models.ParseEntityType(captured[i].Type)
		if !ok {
			return nil, fmt.Errorf("%w: entity %q has unknown type %q", ErrMalformedExtraction, name, captured[i].Type)
		}
		ent := models.Entity{Name: name, Type: et}
		if seen[ent.Key()] {
			continue
		}
		seen[ent.Key()] = true
		entities = append(entities, ent)
	}
	return entities, nil
}

// decode unmarshals the oracle output, falling back to a JSON repair pass for
// near-miss output such as trailing commas or Markdown fences.
func decode(raw string) ([]capturedEntity, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedExtraction)
	}

	if out, ok := unmarshalEither(raw); ok {
		return out, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrMalformedExtraction, err, raw)
	}
	if out, ok := unmarshalEither(repaired); ok {
		return out, nil
	}
	return nil, fmt.Errorf("%w: not an entity list (raw: %s)", ErrMalformedExtraction, raw)
}

func unmarshalEither(s string) ([]capturedEntity, bool) {
	var wrapped struct {
		Entities *[]capturedEntity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(s), &wrapped); err == nil && wrapped.Entities != nil {
		return *wrapped.Entities, true
	}
	var list []capturedEntity
	if err := json.Unmarshal([]byte(s), &list); err == nil && list != nil {
		return list, true
	}
	return nil, false
}

// stripFences removes a surrounding Markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
