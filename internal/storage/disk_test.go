package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) string {
		t.Helper()
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	snapshot := write("index/vectors.gob", "12345")
	ledger := write("db/ingestions.db", "abc")
	write("index/bleve/store/root.bolt", "0123456789")
	write("index/bleve/index_meta.json", "{}")
	bleveDir := filepath.Join(dir, "index", "bleve")

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{name: "no paths", want: 0},
		{name: "single file", paths: []string{snapshot}, want: 5},
		{name: "directory is summed recursively", paths: []string{bleveDir}, want: 12},
		{name: "data paths together", paths: []string{snapshot, ledger, bleveDir}, want: 20},
		{name: "empty and missing paths count zero", paths: []string{"", filepath.Join(dir, "missing"), ledger}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatalf("DiskUsageBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
