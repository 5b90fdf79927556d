// Package ingest implements the write path: documents are extracted to text,
// split into overlapping chunks, embedded and appended to the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/digest"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/repo"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 32

// Ingestor appends documents to the index. Ingests are independent units of
// work; a failure is not rolled back, so entries appended before it remain.
// Ingestor is safe for concurrent use.
type Ingestor struct {
	extractor    *extract.Extractor
	chunker      *Chunker
	embedder     embedding.Embedder
	index        vector.Index
	keywordIndex keyword.Index
	ledger       storage.Ledger
	fetcher      repo.Fetcher
	walkOpts     repo.WalkOptions
	batchSize    int
	logger       *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ing *Ingestor) {
		if l != nil {
			ing.logger = l
		}
	}
}

// WithKeywordIndex also indexes chunk text for keyword search.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(ing *Ingestor) { ing.keywordIndex = idx }
}

// WithLedger records every ingest in l.
func WithLedger(l storage.Ledger) Option {
	return func(ing *Ingestor) { ing.ledger = l }
}

// WithFetcher enables repository ingestion. opts filters the files of fetched trees.
func WithFetcher(f repo.Fetcher, opts repo.WalkOptions) Option {
	return func(ing *Ingestor) {
		ing.fetcher = f
		ing.walkOpts = opts
	}
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.batchSize = n
		}
	}
}

// NewIngestor creates an Ingestor writing to index with vectors from embedder.
func NewIngestor(chunker *Chunker, embedder embedding.Embedder, index vector.Index, opts ...Option) *Ingestor {
	ing := &Ingestor{
		extractor: extract.NewExtractor(),
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest extracts, chunks, embeds and appends doc, then persists the index.
// Unknown types and undecodable content fail with models.ErrLoader and leave
// the index unchanged.
func (ing *Ingestor) Ingest(ctx context.Context, doc *models.Document) (*models.IngestResult, error) {
	n, err := ing.ingest(ctx, doc)
	ing.record(ctx, doc.Source, doc.Type, digest.Bytes(doc.Content), n, err)
	if err != nil {
		return nil, err
	}
	if err := ing.persist(); err != nil {
		return nil, err
	}
	return &models.IngestResult{DocumentID: doc.ID, Source: doc.Source, ChunksAdded: n}, nil
}

// IngestFile reads path and ingests it.
func (ing *Ingestor) IngestFile(ctx context.Context, path string) (*models.IngestResult, error) {
	doc, err := extract.ReadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLoader, err)
	}
	return ing.Ingest(ctx, doc)
}

// IngestDirectory ingests every file under dir accepted by opts. Files that
// cannot be decoded are skipped. Each file gets its own ledger record.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string, opts repo.WalkOptions) (*models.TreeResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	res, err := ing.ingestTree(ctx, dir, opts, func(f repo.File) string { return f.Path }, true)
	if perr := ing.persist(); perr != nil && err == nil {
		err = perr
	}
	return res, err
}

// IngestRepository clones url at branch (empty for the configured default),
// ingests its files and releases the workspace on every exit path. Fetch
// failures wrap models.ErrSourceUnavailable and add nothing to the index.
func (ing *Ingestor) IngestRepository(ctx context.Context, url, branch string) (*models.RepositoryResult, error) {
	if ing.fetcher == nil {
		return nil, fmt.Errorf("%w: repository ingestion is not configured", models.ErrSourceUnavailable)
	}
	ws, err := ing.fetcher.Fetch(ctx, url, branch)
	if err != nil {
		ing.record(ctx, url, models.DocumentSourceTree, "", 0, err)
		return nil, err
	}
	defer func() {
		if err := ing.fetcher.Release(ws); err != nil {
			ing.logger.Warn("failed to release workspace", zap.String("dir", ws.Dir), zap.Error(err))
		}
	}()

	base := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	tree, err := ing.ingestTree(ctx, ws.Dir, ing.walkOpts, func(f repo.File) string { return base + "/" + f.RelPath }, false)
	ing.record(ctx, url, models.DocumentSourceTree, "", tree.ChunksAdded, err)
	if perr := ing.persist(); perr != nil && err == nil {
		err = perr
	}
	res := &models.RepositoryResult{URL: url, Branch: ws.Branch, TreeResult: *tree}
	if err != nil {
		return res, err
	}
	ing.logger.Info("repository ingested",
		zap.String("url", url),
		zap.Int("files", tree.FilesIngested),
		zap.Int("skipped", tree.FilesSkipped),
		zap.Int("chunks", tree.ChunksAdded))
	return res, nil
}

// ingestTree walks root and ingests each file, naming it with source. It never
// returns a nil result.
func (ing *Ingestor) ingestTree(ctx context.Context, root string, opts repo.WalkOptions, source func(repo.File) string, recordFiles bool) (*models.TreeResult, error) {
	res := &models.TreeResult{}
	err := repo.Walk(root, opts, func(f repo.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := os.ReadFile(f.Path)
		if err != nil {
			ing.logger.Debug("skipping unreadable file", zap.String("path", f.Path), zap.Error(err))
			res.FilesSkipped++
			return nil
		}
		doc := extract.NewDocument(source(f), content)
		n, err := ing.ingest(ctx, doc)
		if recordFiles {
			ing.record(ctx, doc.Source, doc.Type, digest.Bytes(content), n, err)
		}
		if errors.Is(err, models.ErrLoader) {
			ing.logger.Debug("skipping undecodable file", zap.String("path", f.RelPath), zap.Error(err))
			res.FilesSkipped++
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", f.RelPath, err)
		}
		res.FilesIngested++
		res.ChunksAdded += n
		return nil
	})
	return res, err
}

// ingest runs the pipeline for one document and returns the number of entries appended.
func (ing *Ingestor) ingest(ctx context.Context, doc *models.Document) (int, error) {
	text, err := ing.extractor.Extract(doc)
	if err != nil {
		return 0, err
	}
	chunks := ing.chunker.Chunk(doc.ID, doc.Source, Preprocess(text))
	if len(chunks) == 0 {
		ing.logger.Debug("document has no text", zap.String("source", doc.Source))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := embedding.EmbedInBatches(ctx, ing.embedder, texts, ing.batchSize)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", doc.Source, err)
	}

	entries := make([]*models.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = &models.Entry{
			ID:         uuid.NewString(),
			Vector:     vectors[i],
			Text:       ch.Text,
			Source:     ch.Source,
			DocumentID: ch.DocumentID,
			ChunkIndex: ch.Index,
			Metadata:   entryMetadata(doc),
		}
	}
	if err := ing.index.Append(ctx, entries); err != nil {
		return 0, fmt.Errorf("append %s: %w", doc.Source, err)
	}
	if ing.keywordIndex != nil {
		if err := ing.keywordIndex.IndexEntries(ctx, entries); err != nil {
			ing.logger.Warn("keyword indexing failed", zap.String("source", doc.Source), zap.Error(err))
		}
	}
	ing.logger.Debug("document ingested",
		zap.String("source", doc.Source),
		zap.String("type", string(doc.Type)),
		zap.Int("chunks", len(entries)))
	return len(entries), nil
}

func entryMetadata(doc *models.Document) map[string]string {
	m := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		m[k] = v
	}
	m["type"] = string(doc.Type)
	if ext := filepath.Ext(doc.Source); ext != "" {
		m["ext"] = strings.ToLower(ext)
	}
	return m
}

func (ing *Ingestor) persist() error {
	if err := ing.index.Persist(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// record writes a ledger row. Ledger failures are logged, never returned.
func (ing *Ingestor) record(ctx context.Context, source string, docType models.DocumentType, sum string, chunks int, ingestErr error) {
	if ing.ledger == nil {
		return
	}
	rec := &models.IngestionRecord{
		Source:      source,
		Type:        docType,
		Digest:      sum,
		ChunksAdded: chunks,
		Status:      models.IngestionSucceeded,
	}
	if ingestErr != nil {
		rec.Status = models.IngestionFailed
		rec.Error = ingestErr.Error()
	}
	if err := ing.ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		ing.logger.Warn("failed to record ingestion", zap.String("source", source), zap.Error(err))
	}
}
