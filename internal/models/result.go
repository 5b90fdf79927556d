package models

import "time"

// IngestResult reports what a single document ingest appended to the index.
type IngestResult struct {
	DocumentID  string `json:"document_id"`
	Source      string `json:"source"`
	ChunksAdded int    `json:"chunks_added"`
}

// TreeResult reports the ingest of a directory tree, file by file. Files that
// could not be decoded as text are skipped and counted.
type TreeResult struct {
	FilesIngested int `json:"files_ingested"`
	FilesSkipped  int `json:"files_skipped"`
	ChunksAdded   int `json:"chunks_added"`
}

// RepositoryResult reports a repository ingest.
type RepositoryResult struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
	TreeResult
}

// IngestionStatus is the outcome stored in the ingestion ledger.
type IngestionStatus string

const (
	IngestionSucceeded IngestionStatus = "succeeded"
	IngestionFailed    IngestionStatus = "failed"
)

// IngestionRecord is one row of the ingestion ledger.
type IngestionRecord struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Type        DocumentType    `json:"type"`
	Digest      string          `json:"digest,omitempty"`
	ChunksAdded int             `json:"chunks_added"`
	Status      IngestionStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
