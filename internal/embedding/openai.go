package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/sashabaranov/go-openai"
)

// OpenAIOptions configures an OpenAIEmbedder.
type OpenAIOptions struct {
	// Provider names the embedding space, e.g. "ollama" or "openai".
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Ollama exposes
// one under /v1, so the same client serves local and hosted models.
type OpenAIEmbedder struct {
	client     *openai.Client
	provider   string
	model      string
	dimensions int
}

// NewOpenAIEmbedder returns an embedder for opts.
func NewOpenAIEmbedder(opts OpenAIOptions) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		provider:   opts.Provider,
		model:      opts.Model,
		dimensions: opts.Dimensions,
	}
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts with one request. Results are reordered by the index
// the server reports, normalized to unit length and checked against Dimensions.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s embeddings: %v", models.ErrModelUnavailable, e.provider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s embeddings: got %d vectors for %d texts", e.provider, len(resp.Data), len(texts))
	}
	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: %s returned %d-dimensional vectors, embedding.dimensions is %d",
				models.ErrInvalidConfiguration, e.Name(), len(d.Embedding), e.dimensions)
		}
		utils.NormalizeL2(d.Embedding)
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Name returns "<provider>/<model>".
func (e *OpenAIEmbedder) Name() string { return e.provider + "/" + e.model }

// Close is a no-op; the HTTP client holds no per-embedder resources.
func (e *OpenAIEmbedder) Close() error { return nil }
