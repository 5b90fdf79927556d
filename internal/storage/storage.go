// Package storage records ingestion history and reports disk usage of the data paths.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Ledger is the append-only history of ingestions. It mirrors the vector index:
// records are never updated or deleted, and ingesting the same content twice
// yields two records with the same digest.
type Ledger interface {
	// Record stores rec, assigning ID and CreatedAt when they are empty.
	Record(ctx context.Context, rec *models.IngestionRecord) error
	// List returns the most recent records first.
	List(ctx context.Context, offset, limit int) ([]*models.IngestionRecord, error)
	Stats(ctx context.Context) (*LedgerStats, error)
	Close() error
}

// LedgerStats summarizes the ledger.
type LedgerStats struct {
	Total       int64 `json:"total"`
	Succeeded   int64 `json:"succeeded"`
	Failed      int64 `json:"failed"`
	ChunksAdded int64 `json:"chunks_added"`
}
