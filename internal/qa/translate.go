// Package qa answers natural-language questions over the knowledge graph
// and the vector index.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
)

const cypherPromptTemplate = `You are a Cypher expert for a Neo4j graph with this schema:

- All nodes are labeled :Entity
- Entities have properties: name (string), type (Person | Organization | Concept | Location | Date)
- Documents are labeled :Document with property filename
- Documents point to the entities they mention with MENTIONS relationships
- Relationships between entities are uppercase verbs, for example: MANAGES, IS_DURATION_OF, ADVOCATES, FOUNDED_IN

Translate the following natural language question into a valid read-only Cypher query.
Always use :Entity, and filter by type using WHERE when needed.
Respond with ONLY the Cypher query.

Question: %q`

// Translator turns a question into a candidate Cypher query.
type Translator struct {
	oracle oracle.Oracle
}

// NewTranslator creates a Translator backed by o.
func NewTranslator(o oracle.Oracle) *Translator {
	return &Translator{oracle: o}
}

// Translate makes one oracle call and returns the trimmed candidate query
// with any Markdown code fence removed.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	resp, err := t.oracle.Complete(ctx, fmt.Sprintf(cypherPromptTemplate, question))
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return stripCodeFence(resp), nil
}

// stripCodeFence removes a surrounding ``` or ```cypher fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "cypher")
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
