package models

// Chunk is a bounded, overlapping span of document text stored in the vector index.
type Chunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source returns the originating document identifier recorded in the metadata.
func (c Chunk) Source() string {
	if v, ok := c.Metadata["source"].(string); ok {
		return v
	}
	return ""
}

// RetrievedChunk is a chunk returned by a similarity search.
type RetrievedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// SourceDocument is plain text produced by an external text source (PDF
// reader, OCR, transcription, captioning) together with its identifier.
type SourceDocument struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	Modality   string `json:"modality,omitempty"`
}
