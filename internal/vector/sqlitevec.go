//go:build cgo

package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

func init() {
	sqlite_vec.Auto()
}

const sqliteVecSchema = `
CREATE TABLE IF NOT EXISTS entries (
    rowid       INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL UNIQUE,
    text        TEXT NOT NULL,
    source      TEXT NOT NULL,
    document_id TEXT NOT NULL DEFAULT '',
    chunk_index INTEGER NOT NULL DEFAULT 0,
    metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// SQLiteVecIndex stores entries in SQLite and answers queries with a sqlite-vec
// vec0 table. Vectors are stored L2-normalized so the euclidean distance maps to
// cosine similarity.
type SQLiteVecIndex struct {
	mu   sync.RWMutex
	db   *sql.DB
	opts Options
}

// OpenSQLiteVecIndex opens or creates the database at opts.Path.
func OpenSQLiteVecIndex(opts Options) (*SQLiteVecIndex, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: sqlite-vec index requires a path", models.ErrInvalidConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite3", opts.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	db.SetMaxOpenConns(1)

	idx := &SQLiteVecIndex{db: db, opts: opts}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteVecIndex) init() error {
	if _, err := s.db.Exec(sqliteVecSchema); err != nil {
		return fmt.Errorf("init index schema: %w", err)
	}
	vecDDL := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_entries USING vec0(embedding float[%d])", s.opts.Dimensions)
	if _, err := s.db.Exec(vecDDL); err != nil {
		return fmt.Errorf("init vec table: %w", err)
	}

	dims, err := s.meta("dimensions")
	if err != nil {
		return err
	}
	if dims != "" && dims != fmt.Sprint(s.opts.Dimensions) {
		return fmt.Errorf("%w: index database has %s dimensions, embedder produces %d",
			models.ErrInvalidConfiguration, dims, s.opts.Dimensions)
	}
	identity, err := s.meta("identity")
	if err != nil {
		return err
	}
	if err := checkIdentity(identity, s.opts.Identity); err != nil {
		return err
	}
	if identity == "" {
		if err := s.setMeta("identity", s.opts.Identity); err != nil {
			return err
		}
		if err := s.setMeta("dimensions", fmt.Sprint(s.opts.Dimensions)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteVecIndex) meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index meta %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteVecIndex) setMeta(key, value string) error {
	_, err := s.db.Exec("INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	if err != nil {
		return fmt.Errorf("write index meta %s: %w", key, err)
	}
	return nil
}

// Type returns the index type identifier.
func (s *SQLiteVecIndex) Type() string {
	return string(TypeSQLiteVec)
}

// Append inserts entries in one transaction.
func (s *SQLiteVecIndex) Append(ctx context.Context, entries []*models.Entry) error {
	if err := checkEntries(entries, s.opts.Dimensions); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	entryStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (id, text, source, document_id, chunk_index, metadata) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer entryStmt.Close()
	vecStmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_entries (rowid, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", e.ID, err)
		}
		res, err := entryStmt.ExecContext(ctx, e.ID, e.Text, e.Source, e.DocumentID, e.ChunkIndex, string(meta))
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		vec := append([]float32(nil), e.Vector...)
		utils.NormalizeL2(vec)
		blob, err := sqlite_vec.SerializeFloat32(vec)
		if err != nil {
			return fmt.Errorf("serialize embedding for %s: %w", e.ID, err)
		}
		if _, err := vecStmt.ExecContext(ctx, rowid, blob); err != nil {
			return fmt.Errorf("insert embedding for %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Query runs a k-nearest-neighbour search over vec_entries.
func (s *SQLiteVecIndex) Query(ctx context.Context, vector []float32, k int) ([]models.ScoredEntry, error) {
	if len(vector) != s.opts.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), s.opts.Dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	q := append([]float32(nil), vector...)
	utils.NormalizeL2(q)
	blob, err := sqlite_vec.SerializeFloat32(q)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT rowid, distance FROM vec_entries
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT e.id, e.text, e.source, e.document_id, e.chunk_index, e.metadata, knn.distance
		FROM knn
		JOIN entries e ON e.rowid = knn.rowid
		ORDER BY knn.distance, e.rowid
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredEntry
	for rows.Next() {
		var (
			e        models.Entry
			meta     string
			distance float64
		)
		if err := rows.Scan(&e.ID, &e.Text, &e.Source, &e.DocumentID, &e.ChunkIndex, &meta, &distance); err != nil {
			return nil, err
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", e.ID, err)
			}
		}
		results = append(results, models.ScoredEntry{Entry: &e, Score: 1 - distance*distance/2})
	}
	return results, rows.Err()
}

// Persist checkpoints the write-ahead log into the main database file.
func (s *SQLiteVecIndex) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint index: %w", err)
	}
	return nil
}

// Load is a no-op: the database is the persisted state.
func (s *SQLiteVecIndex) Load() error {
	return nil
}

// Size returns the number of entries, or 0 if the count fails.
func (s *SQLiteVecIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database.
func (s *SQLiteVecIndex) Close() error {
	return s.db.Close()
}
