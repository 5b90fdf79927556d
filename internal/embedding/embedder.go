// Package embedding maps text to fixed-length vectors.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. Vectors returned by one Embedder
// are comparable only with vectors from an Embedder with the same Name.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the embedding space, e.g. "ollama/nomic-embed-text".
	Name() string
	Close() error
}

// Identity is the string recorded next to persisted vectors to detect a change
// of embedding space between runs.
func Identity(e Embedder) string {
	return fmt.Sprintf("%s/%d", e.Name(), e.Dimensions())
}

// EmbedInBatches embeds texts in groups of at most batchSize, preserving order.
func EmbedInBatches(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
