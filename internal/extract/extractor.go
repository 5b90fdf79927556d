// Package extract turns document bytes into plain text for chunking.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

// Extractor extracts plain text from documents. It is safe for concurrent use.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// DetectType returns the document type tag for a file name. Everything that is
// not a PDF is treated as text; whether it really is text is decided on load.
func DetectType(name string) models.DocumentType {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return models.DocumentPDF
	}
	return models.DocumentText
}

// NewDocument builds a Document for content read from source.
func NewDocument(source string, content []byte) *models.Document {
	return &models.Document{
		ID:      uuid.NewString(),
		Source:  source,
		Type:    DetectType(source),
		Content: content,
	}
}

// ReadDocument reads the file at path into a Document.
func ReadDocument(path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return NewDocument(path, content), nil
}

// Extract returns the plain text of doc. Unknown types and content that cannot be
// decoded as text fail with models.ErrLoader.
func (e *Extractor) Extract(doc *models.Document) (string, error) {
	var (
		text string
		err  error
	)
	switch doc.Type {
	case models.DocumentPDF:
		text, err = extractPDF(doc.Content)
	case models.DocumentText:
		text, err = e.extractText(doc.Content, doc.Ext())
	case models.DocumentSourceTree:
		return "", fmt.Errorf("%w: %s: source trees are ingested file by file", models.ErrLoader, doc.Source)
	default:
		return "", fmt.Errorf("%w: %s: unknown document type %q", models.ErrLoader, doc.Source, doc.Type)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", models.ErrLoader, doc.Source, err)
	}
	return text, nil
}

// ExtractBytes extracts text from content based on the given extension, which
// includes the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	doc := &models.Document{Source: "content" + ext, Type: DetectType(ext), Content: content}
	return e.Extract(doc)
}

func (e *Extractor) extractText(content []byte, ext string) (string, error) {
	switch ext {
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractOffice(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
