package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/repo"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Logger       *zap.Logger
	Ledger       *storage.SQLiteLedger
	Embedder     embedding.Embedder
	Generator    llm.Generator
	VectorIndex  vector.Index
	KeywordIndex keyword.Index
	Ingestor     *ingest.Ingestor
	Answerer     *rag.Answerer
}

// Close persists the vector index and releases every component.
func (c *Components) Close() { c.close(true) }

func (c *Components) close(persist bool) {
	if c.VectorIndex != nil {
		if persist {
			if err := c.VectorIndex.Persist(); err != nil {
				c.Logger.Warn("vector index persist failed", zap.String("path", c.Config.Storage.IndexPath), zap.Error(err))
			}
		}
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Ledger != nil {
		_ = c.Ledger.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	_ = c.Logger.Sync()
}

func walkOptions(cfg *config.Config) repo.WalkOptions {
	return repo.WalkOptions{
		IgnoreDirs:   cfg.Repository.IgnoreDirs,
		MaxFileBytes: cfg.Repository.MaxFileBytes,
		Extensions:   cfg.Repository.Extensions,
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (comps *Components, err error) {
	c := &Components{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.close(false)
		}
	}()

	for _, p := range []string{cfg.Storage.IndexPath, cfg.Storage.LedgerPath, cfg.Storage.KeywordIndexPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	c.Ledger, err = storage.NewSQLiteLedger(cfg.Storage.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	c.Embedder, err = embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("embedder initialized", zap.String("name", c.Embedder.Name()), zap.Int("dimensions", c.Embedder.Dimensions()))

	c.Generator, err = llm.New(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	idx, err := vector.New(cfg.Index.Type, vector.Options{
		Path:       cfg.Storage.IndexPath,
		Dimensions: c.Embedder.Dimensions(),
		Identity:   embedding.Identity(c.Embedder),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := idx.Load(); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to load vector index %s: %w", cfg.Storage.IndexPath, err)
	}
	c.VectorIndex = idx
	logger.Info("vector index loaded",
		zap.String("type", idx.Type()),
		zap.String("path", cfg.Storage.IndexPath),
		zap.Int("entries", idx.Size()))

	ingOpts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithLedger(c.Ledger),
		ingest.WithBatchSize(cfg.Embedding.BatchSize),
		ingest.WithFetcher(repo.NewGitFetcher(cfg.Storage.WorkspaceDir, cfg.Repository.Depth, cfg.Repository.Branch, logger), walkOptions(cfg)),
	}
	ragOpts := []rag.Option{
		rag.WithLogger(logger),
		rag.WithTopK(cfg.Retrieval.TopK),
		rag.WithMaxContextChars(cfg.Generation.MaxContextChars),
	}
	if cfg.Retrieval.Hybrid {
		kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = kw
		ingOpts = append(ingOpts, ingest.WithKeywordIndex(kw))
		ragOpts = append(ragOpts, rag.WithKeywordIndex(kw, cfg.Retrieval.KeywordWeight))
	}

	chunker, err := ingest.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	c.Ingestor = ingest.NewIngestor(chunker, c.Embedder, c.VectorIndex, ingOpts...)
	c.Answerer = rag.NewAnswerer(c.Embedder, c.VectorIndex, c.Generator, ragOpts...)
	return c, nil
}
