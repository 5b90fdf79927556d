package vector

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const snapshotVersion = 1

// snapshot is the gob-encoded on-disk form of a MemoryIndex.
type snapshot struct {
	Version    int
	Identity   string
	Dimensions int
	Entries    []snapshotEntry
}

type snapshotEntry struct {
	ID         string
	Vector     []float32
	Text       string
	Source     string
	DocumentID string
	ChunkIndex int
	Metadata   map[string]string
}

// MemoryIndex keeps entries in memory and searches them by brute-force cosine
// similarity. Persist writes a snapshot next to Path and renames it into place,
// so a crash leaves either the previous or the new snapshot.
type MemoryIndex struct {
	mu      sync.RWMutex
	opts    Options
	entries []*models.Entry
	// persistMu serializes Persist from snapshot to rename, so the file on
	// disk never goes back to an older, smaller entry set.
	persistMu sync.Mutex
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(opts Options) (*MemoryIndex, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &MemoryIndex{opts: opts}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(TypeMemory)
}

// Append copies entries into the index.
func (m *MemoryIndex) Append(ctx context.Context, entries []*models.Entry) error {
	if err := checkEntries(entries, m.opts.Dimensions); err != nil {
		return err
	}
	batch := make([]*models.Entry, len(entries))
	for i, e := range entries {
		batch[i] = copyEntry(e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, batch...)
	return nil
}

// Query returns the top-k entries by cosine similarity. Ties keep insertion order.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]models.ScoredEntry, error) {
	if len(vector) != m.opts.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), m.opts.Dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	scored := make([]models.ScoredEntry, len(m.entries))
	for i, e := range m.entries {
		scored[i] = models.ScoredEntry{Entry: e, Score: utils.Cosine(vector, e.Vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	out := scored[:k]
	for i := range out {
		out[i].Entry = copyEntry(out[i].Entry)
	}
	return out, nil
}

// Persist writes all entries to Path. An empty Path disables persistence.
func (m *MemoryIndex) Persist() error {
	if m.opts.Path == "" {
		return nil
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.RLock()
	snap := snapshot{
		Version:    snapshotVersion,
		Identity:   m.opts.Identity,
		Dimensions: m.opts.Dimensions,
		Entries:    make([]snapshotEntry, len(m.entries)),
	}
	for i, e := range m.entries {
		snap.Entries[i] = snapshotEntry{
			ID:         e.ID,
			Vector:     e.Vector,
			Text:       e.Text,
			Source:     e.Source,
			DocumentID: e.DocumentID,
			ChunkIndex: e.ChunkIndex,
			Metadata:   e.Metadata,
		}
	}
	m.mu.RUnlock()

	dir := filepath.Dir(m.opts.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(m.opts.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.opts.Path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load replaces the in-memory entries with the snapshot at Path. A missing file
// leaves the index unchanged. A snapshot from another embedding space is rejected.
func (m *MemoryIndex) Load() error {
	if m.opts.Path == "" {
		return nil
	}
	f, err := os.Open(m.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode index %s: %w", m.opts.Path, err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported index version %d", snap.Version)
	}
	if snap.Dimensions != m.opts.Dimensions {
		return fmt.Errorf("%w: index file has %d dimensions, embedder produces %d",
			models.ErrInvalidConfiguration, snap.Dimensions, m.opts.Dimensions)
	}
	if err := checkIdentity(snap.Identity, m.opts.Identity); err != nil {
		return err
	}

	entries := make([]*models.Entry, len(snap.Entries))
	for i, se := range snap.Entries {
		entries[i] = &models.Entry{
			ID:         se.ID,
			Vector:     se.Vector,
			Text:       se.Text,
			Source:     se.Source,
			DocumentID: se.DocumentID,
			ChunkIndex: se.ChunkIndex,
			Metadata:   se.Metadata,
		}
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

// copyEntry returns a copy of e that shares no mutable state with it.
func copyEntry(e *models.Entry) *models.Entry {
	cp := *e
	cp.Vector = append([]float32(nil), e.Vector...)
	if e.Metadata != nil {
		cp.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// Size returns the number of entries.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op; call Persist first to keep the entries.
func (m *MemoryIndex) Close() error {
	return nil
}
