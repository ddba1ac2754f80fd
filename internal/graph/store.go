// Package graph persists entities, document mentions and inferred
// relationships in a property graph.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

var (
	// ErrGraphUnavailable is returned when the graph backend cannot be reached.
	// It aborts the current operation.
	ErrGraphUnavailable = errors.New("graph unavailable")

	// ErrInvalidLabel is returned when a relationship label sanitizes to an
	// empty or reserved token.
	ErrInvalidLabel = errors.New("invalid relationship label")

	// ErrInvalidEntity is recorded for entities with an empty name or unknown type.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrEmptyDocumentID is returned when an upsert names no document.
	ErrEmptyDocumentID = errors.New("empty document id")
)

// MentionsType is the edge kind linking a Document to an Entity it mentions.
const MentionsType = "MENTIONS"

// Store defines the interface for property graph persistence.
type Store interface {
	// UpsertEntities merges each entity and a mention edge from documentID to
	// it. Repeating the call with the same input leaves the graph unchanged.
	UpsertEntities(ctx context.Context, entities []models.Entity, documentID string) (models.IngestReport, error)

	// UpsertRelationships merges one edge per triple between existing
	// entities matched by name. Triples with a missing endpoint are skipped.
	UpsertRelationships(ctx context.Context, triples []models.Triple) (models.IngestReport, error)

	// Query runs a Cypher statement and returns its rows.
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// Stats returns node and edge counts.
	Stats(ctx context.Context) (models.GraphStats, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

var reservedTypes = map[string]bool{
	MentionsType: true,
	// Sentinel the inference prompt asks for when a pair is unrelated.
	"NONE": true,
}

// SanitizeRelationshipLabel converts raw oracle text into a relationship
// type token: uppercased, every run of characters other than Unicode letters
// and digits collapsed to one underscore, leading and trailing underscores
// removed. "is a part-of!!" becomes "IS_A_PART_OF", "relación con" becomes
// "RELACIÓN_CON".
func SanitizeRelationshipLabel(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	pendingSep := false
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	label := b.String()
	if label == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidLabel, raw)
	}
	if reservedTypes[label] {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidLabel, label)
	}
	return label, nil
}

// LeadingKeyword returns the uppercased first keyword of a Cypher statement:
// its first whitespace-delimited token, cut at the first character that is
// not a letter, so "MATCH(n)" reads as MATCH.
func LeadingKeyword(cypher string) string {
	fields := strings.Fields(cypher)
	if len(fields) == 0 {
		return ""
	}
	tok := fields[0]
	if i := strings.IndexFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		tok = tok[:i]
	}
	return strings.ToUpper(tok)
}

// quoteType backtick-quotes a sanitized relationship type for splicing into
// Cypher. Sanitized labels never contain backticks.
func quoteType(label string) string {
	return "`" + label + "`"
}

func validateEntity(e models.Entity) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEntity)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntity, e.Type)
	}
	return nil
}

func entityItem(e models.Entity) string {
	return fmt.Sprintf("%s [%s]", e.Name, e.Type)
}

func tripleItem(t models.Triple) string {
	return fmt.Sprintf("%s -%s-> %s", t.Source, t.Label, t.Target)
}
