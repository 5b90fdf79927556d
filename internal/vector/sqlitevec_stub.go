//go:build !cgo

package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

var errSQLiteVecUnavailable = errors.New("sqlite-vec index requires a cgo build")

// SQLiteVecIndex is unavailable without cgo.
type SQLiteVecIndex struct{}

// OpenSQLiteVecIndex always fails without cgo.
func OpenSQLiteVecIndex(opts Options) (*SQLiteVecIndex, error) {
	return nil, errSQLiteVecUnavailable
}

func (s *SQLiteVecIndex) Type() string { return string(TypeSQLiteVec) }

func (s *SQLiteVecIndex) Append(ctx context.Context, entries []*models.Entry) error {
	return errSQLiteVecUnavailable
}

func (s *SQLiteVecIndex) Query(ctx context.Context, vector []float32, k int) ([]models.ScoredEntry, error) {
	return nil, errSQLiteVecUnavailable
}

func (s *SQLiteVecIndex) Persist() error { return errSQLiteVecUnavailable }
func (s *SQLiteVecIndex) Load() error    { return errSQLiteVecUnavailable }
func (s *SQLiteVecIndex) Size() int      { return 0 }
func (s *SQLiteVecIndex) Close() error   { return nil }
