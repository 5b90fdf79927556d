// Package keyword provides BM25 keyword search over indexed chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when FuzzyEnabled is true.
	Fuzziness int
}

// Index defines keyword search operations over chunk entries.
type Index interface {
	IndexEntries(ctx context.Context, entries []*models.Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Close() error
	// DocCount returns the total number of chunks in the index.
	DocCount() (uint64, error)
}

// Result is a single keyword search hit.
type Result struct {
	ID     string
	Score  float64
	Text   string
	Source string
}
