package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingestions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		type TEXT NOT NULL,
		digest TEXT NOT NULL DEFAULT '',
		chunks_added INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ingestions_created_at ON ingestions(created_at);
	CREATE INDEX IF NOT EXISTS idx_ingestions_digest ON ingestions(digest);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts rec.
func (s *SQLiteLedger) Record(ctx context.Context, rec *models.IngestionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = models.IngestionSucceeded
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestions (id, source, type, digest, chunks_added, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, string(rec.Type), rec.Digest, rec.ChunksAdded, string(rec.Status), rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingestion: %w", err)
	}
	return nil
}

// List returns records newest first.
func (s *SQLiteLedger) List(ctx context.Context, offset, limit int) ([]*models.IngestionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, type, digest, chunks_added, status, error, created_at
		 FROM ingestions ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.IngestionRecord
	for rows.Next() {
		var (
			rec            models.IngestionRecord
			docType, state string
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &docType, &rec.Digest, &rec.ChunksAdded, &state, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Type = models.DocumentType(docType)
		rec.Status = models.IngestionStatus(state)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Stats returns record counts by status and the total chunks added.
func (s *SQLiteLedger) Stats(ctx context.Context) (*LedgerStats, error) {
	var st LedgerStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(chunks_added), 0)
		 FROM ingestions`,
		string(models.IngestionSucceeded), string(models.IngestionFailed),
	).Scan(&st.Total, &st.Succeeded, &st.Failed, &st.ChunksAdded)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger stats: %w", err)
	}
	return &st, nil
}

// Close closes the database.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
