// Package vector provides the persistent nearest-neighbour index of embedded chunks.
package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// Index is an append-only store of (vector, text, source) entries. Implementations
// serialize appends against queries: a query sees all or none of an Append batch.
type Index interface {
	// Append adds entries in order. Vectors must have the index dimensions.
	Append(ctx context.Context, entries []*models.Entry) error
	// Query returns up to k entries most similar to vector, most similar first.
	// An empty index yields an empty result.
	Query(ctx context.Context, vector []float32, k int) ([]models.ScoredEntry, error)
	// Persist makes every appended entry durable.
	Persist() error
	// Load replaces the contents with the last persisted state, if any.
	Load() error
	Size() int
	Type() string
	Close() error
}

// Options configures an index.
type Options struct {
	// Path is the on-disk location of the index.
	Path       string
	Dimensions int
	// Identity names the embedding space of the stored vectors; see embedding.Identity.
	Identity string
}

func (o Options) validate() error {
	if o.Dimensions <= 0 {
		return fmt.Errorf("%w: index dimensions must be positive, got %d", models.ErrInvalidConfiguration, o.Dimensions)
	}
	return nil
}

func checkEntries(entries []*models.Entry, dimensions int) error {
	for i, e := range entries {
		if e == nil {
			return fmt.Errorf("entry %d is nil", i)
		}
		if len(e.Vector) != dimensions {
			return fmt.Errorf("entry %d: vector dimension mismatch: got %d, expected %d", i, len(e.Vector), dimensions)
		}
	}
	return nil
}

func checkIdentity(stored, configured string) error {
	if stored != "" && configured != "" && stored != configured {
		return fmt.Errorf("%w: index was built with embedder %q but %q is configured; re-ingest into a new index",
			models.ErrInvalidConfiguration, stored, configured)
	}
	return nil
}
