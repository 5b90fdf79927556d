// Package models defines the data carried through ingestion, indexing and retrieval.
package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DocumentType tags a Document with the loader family that understands it.
type DocumentType string

const (
	DocumentPDF        DocumentType = "pdf"
	DocumentText       DocumentType = "text"
	DocumentSourceTree DocumentType = "source-tree"
)

// ParseDocumentType returns the DocumentType named by s.
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(strings.ToLower(strings.TrimSpace(s))); t {
	case DocumentPDF, DocumentText, DocumentSourceTree:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown document type %q", ErrLoader, s)
	}
}

// Document is raw content plus where it came from. It is not modified after loading.
type Document struct {
	ID      string       `json:"id"`
	Source  string       `json:"source"`
	Type    DocumentType `json:"type"`
	Content []byte       `json:"-"`
	// Metadata is copied onto every index entry produced from the document.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Ext returns the lower-cased extension of the document source, e.g. ".docx".
func (d *Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Source))
}

// Chunk is a window of a document's extracted text.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Index      int    `json:"index"`
	// Start is the offset of the chunk in the extracted text, in characters.
	Start int    `json:"start"`
	Text  string `json:"text"`
}
