// Package source loads plain text for ingestion from local files.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

// ErrUnsupportedFormat is returned for files this package cannot turn into
// text, such as audio, video or images.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Modalities recorded on loaded documents.
const (
	ModalityText = "text"
	ModalityPDF  = "pdf"
)

// TextSource produces plain text for one source unit.
type TextSource interface {
	Load(ctx context.Context, path string) (models.SourceDocument, error)
}

// FileSource reads .txt, .md and .pdf files. The document identifier is the
// file's base name.
type FileSource struct{}

// NewFileSource creates a FileSource.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Supported reports whether path has an extension FileSource can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	}
	return false
}

// Load implements TextSource.
func (s *FileSource) Load(ctx context.Context, path string) (models.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return models.SourceDocument{}, err
	}
	doc := models.SourceDocument{DocumentID: filepath.Base(path)}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, fmt.Errorf("reading %s: %w", path, err)
		}
		doc.Text = string(data)
		doc.Modality = ModalityText
	case ".pdf":
		text, err := readPDF(ctx, path)
		if err != nil {
			return doc, err
		}
		doc.Text = text
		doc.Modality = ModalityPDF
	default:
		return doc, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return doc, nil
}

// readPDF concatenates the plain text of every page, skipping pages that
// fail to extract.
func readPDF(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
