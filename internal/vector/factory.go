package vector

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// IndexType names an index backend.
type IndexType string

const (
	// TypeMemory keeps entries in memory with a snapshot file. Good for small corpora.
	TypeMemory IndexType = "memory"
	// TypeSQLiteVec stores entries in SQLite with the sqlite-vec extension. Requires cgo.
	TypeSQLiteVec IndexType = "sqlite-vec"
)

// New creates the index of the given type. The index is empty until Load is called.
func New(indexType string, opts Options) (Index, error) {
	switch IndexType(indexType) {
	case TypeMemory, "":
		idx, err := NewMemoryIndex(opts)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case TypeSQLiteVec:
		idx, err := OpenSQLiteVecIndex(opts)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: unknown index type %q (supported: memory, sqlite-vec)", models.ErrInvalidConfiguration, indexType)
	}
}
