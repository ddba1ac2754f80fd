package qa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
)

// ErrInvalidQuery is returned when a candidate query does not start with an
// allowed keyword. Rejected queries are never executed.
var ErrInvalidQuery = errors.New("invalid query")

// DefaultAllowedKeywords is the read-or-merge family of leading clauses.
var DefaultAllowedKeywords = []string{"MATCH", "OPTIONAL", "WITH", "RETURN", "UNWIND", "CALL", "MERGE"}

// Validator checks the leading keyword of a candidate query against an
// allow-list.
type Validator struct {
	allowed map[string]bool
}

// NewValidator creates a Validator. An empty list selects DefaultAllowedKeywords.
func NewValidator(keywords []string) *Validator {
	if len(keywords) == 0 {
		keywords = DefaultAllowedKeywords
	}
	allowed := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			allowed[k] = true
		}
	}
	return &Validator{allowed: allowed}
}

// Validate returns nil if the first keyword of query is allowed. The keyword
// is the first whitespace-delimited token, cut at the first character that
// is not a letter so "MATCH(n)" reads as MATCH.
func (v *Validator) Validate(query string) error {
	kw := graph.LeadingKeyword(query)
	if kw == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if !v.allowed[kw] {
		return fmt.Errorf("%w: leading keyword %q is not allowed", ErrInvalidQuery, kw)
	}
	return nil
}
