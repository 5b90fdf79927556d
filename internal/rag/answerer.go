// Package rag answers prompts with retrieval-augmented generation: the prompt is
// embedded, the nearest chunks are read from the index and placed into the
// prompt handed to the generative model.
package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

const (
	DefaultTopK            = 4
	DefaultMaxContextChars = 12000
	DefaultKeywordWeight   = 0.3
)

// Answerer runs the read path. It holds no per-call state and is safe for
// concurrent use.
type Answerer struct {
	embedder        embedding.Embedder
	index           vector.Index
	generator       llm.Generator
	keywordIndex    keyword.Index
	keywordWeight   float64
	topK            int
	maxContextChars int
	logger          *zap.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Answerer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithKeywordIndex enables hybrid retrieval with the given keyword weight in [0,1].
func WithKeywordIndex(idx keyword.Index, weight float64) Option {
	return func(a *Answerer) {
		a.keywordIndex = idx
		a.keywordWeight = weight
	}
}

// WithTopK sets how many chunks are placed in the prompt.
func WithTopK(k int) Option {
	return func(a *Answerer) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithMaxContextChars sets the context budget in characters. Zero disables it.
func WithMaxContextChars(n int) Option {
	return func(a *Answerer) {
		a.maxContextChars = n
	}
}

// NewAnswerer creates an Answerer. embedder must be the one used at ingestion.
func NewAnswerer(embedder embedding.Embedder, index vector.Index, generator llm.Generator, opts ...Option) *Answerer {
	a := &Answerer{
		embedder:        embedder,
		index:           index,
		generator:       generator,
		keywordWeight:   DefaultKeywordWeight,
		topK:            DefaultTopK,
		maxContextChars: DefaultMaxContextChars,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TopK returns the default number of retrieved chunks.
func (a *Answerer) TopK() int { return a.topK }

// Retrieve returns up to k chunks for query, best first. An empty index yields
// an empty result. Failures wrap models.ErrRetrievalUnavailable.
func (a *Answerer) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = a.topK
	}
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", models.ErrRetrievalUnavailable, err)
	}
	semantic, err := a.index.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: query index: %w", models.ErrRetrievalUnavailable, err)
	}
	if a.keywordIndex == nil {
		return fromSemantic(semantic), nil
	}

	hits, err := a.keywordIndex.Search(ctx, query, k, nil)
	if err != nil {
		a.logger.Warn("keyword search failed, using vector results only", zap.Error(err))
		return fromSemantic(semantic), nil
	}
	fused := Fuse(semantic, hits, a.keywordWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

// Answer retrieves context for prompt, builds the augmented prompt and returns
// the model's completion verbatim. Retrieval failures degrade to generation
// without context; model failures are returned.
func (a *Answerer) Answer(ctx context.Context, prompt string) (string, error) {
	chunks, err := a.Retrieve(ctx, prompt, a.topK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		a.logger.Warn("retrieval unavailable, generating without context", zap.Error(err))
		chunks = nil
	}
	full := BuildPrompt(prompt, chunks, a.maxContextChars)
	a.logger.Debug("generating",
		zap.String("model", a.generator.Name()),
		zap.Int("chunks", len(chunks)),
		zap.Int("prompt_chars", len(full)))
	return a.generator.Generate(ctx, full)
}
