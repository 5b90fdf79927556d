package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestSQLiteLedger_RecordList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "ingestions.db")
	ledger, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	recs := []*models.IngestionRecord{
		{Source: "notes.txt", Type: models.DocumentText, Digest: "sha256:aa", ChunksAdded: 3, CreatedAt: base},
		{Source: "notes.txt", Type: models.DocumentText, Digest: "sha256:aa", ChunksAdded: 3, CreatedAt: base.Add(time.Minute)},
		{Source: "https://example.com/r.git", Type: models.DocumentSourceTree, Status: models.IngestionFailed,
			Error: "source unavailable", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range recs {
		if err := ledger.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if r.ID == "" {
			t.Error("ID should be assigned")
		}
	}
	if recs[0].Status != models.IngestionSucceeded {
		t.Errorf("default status = %q", recs[0].Status)
	}

	got, err := ledger.List(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d records, want 3", len(got))
	}
	if got[0].Source != "https://example.com/r.git" || got[0].Status != models.IngestionFailed || got[0].Error == "" {
		t.Errorf("newest record = %+v", got[0])
	}
	if got[1].ID == got[2].ID || got[1].Digest != got[2].Digest {
		t.Errorf("duplicate ingest should be two records with one digest: %+v %+v", got[1], got[2])
	}
	if !got[2].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got[2].CreatedAt, base)
	}

	page, _ := ledger.List(ctx, 1, 1)
	if len(page) != 1 || page[0].ID != got[1].ID {
		t.Errorf("offset page = %+v", page)
	}
}

func TestSQLiteLedger_Stats(t *testing.T) {
	ledger, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ingestions.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	ctx := context.Background()

	empty, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 || empty.ChunksAdded != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	_ = ledger.Record(ctx, &models.IngestionRecord{Source: "a", Type: models.DocumentText, ChunksAdded: 2})
	_ = ledger.Record(ctx, &models.IngestionRecord{Source: "b", Type: models.DocumentPDF, ChunksAdded: 5})
	_ = ledger.Record(ctx, &models.IngestionRecord{Source: "c", Type: models.DocumentPDF, Status: models.IngestionFailed})

	st, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := LedgerStats{Total: 3, Succeeded: 2, Failed: 1, ChunksAdded: 7}
	if *st != want {
		t.Errorf("Stats = %+v, want %+v", *st, want)
	}
}

func TestSQLiteLedger_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestions.db")
	ledger, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = ledger.Record(context.Background(), &models.IngestionRecord{Source: "a", Type: models.DocumentText})
	ledger.Close()

	reopened, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, _ := reopened.List(context.Background(), 0, 0)
	if len(got) != 1 {
		t.Errorf("records after reopen = %d, want 1", len(got))
	}
}
