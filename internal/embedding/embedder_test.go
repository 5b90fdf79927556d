package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "the quick brown fox")
	b, _ := e.Embed(ctx, "the quick brown fox")
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
	if math.Abs(utils.Norm(a)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", utils.Norm(a))
	}
}

func TestHashEmbedder_SharedTokensAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "what is the value of X in the config")
	near, _ := e.Embed(ctx, "the config says the value of X is 42")
	far, _ := e.Embed(ctx, "bananas grow on tropical trees")
	if utils.Cosine(q, near) <= utils.Cosine(q, far) {
		t.Errorf("cosine(near)=%f should exceed cosine(far)=%f", utils.Cosine(q, near), utils.Cosine(q, far))
	}
}

func TestHashEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).Embed(ctx, "x"); err == nil {
		t.Error("expected error for canceled context")
	}
}

type countingEmbedder struct {
	*HashEmbedder
	batches []int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, len(texts))
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestEmbedInBatches(t *testing.T) {
	e := &countingEmbedder{HashEmbedder: NewHashEmbedder(16)}
	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	vecs, err := EmbedInBatches(context.Background(), e, texts, 3)
	if err != nil {
		t.Fatalf("EmbedInBatches: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if want := []int{3, 3, 1}; len(e.batches) != 3 || e.batches[0] != want[0] || e.batches[2] != want[2] {
		t.Errorf("batches = %v, want %v", e.batches, want)
	}
	for i, text := range texts {
		single, _ := e.Embed(context.Background(), text)
		if utils.Cosine(single, vecs[i]) < 0.9999 {
			t.Errorf("vector %d is out of order", i)
		}
	}
}

// fakeEmbeddingsServer answers /v1/embeddings with vectors whose first
// component encodes the input position, listed in reverse order.
func fakeEmbeddingsServer(t *testing.T, dims int, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			vec[1] = 1
			data = append(data, item{Object: "embedding", Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
}

func TestOpenAIEmbedder_OrdersAndNormalizes(t *testing.T) {
	srv := fakeEmbeddingsServer(t, 4, http.StatusOK)
	defer srv.Close()
	e := NewOpenAIEmbedder(OpenAIOptions{Provider: "ollama", BaseURL: srv.URL + "/v1", APIKey: "ollama", Model: "nomic-embed-text", Dimensions: 4})
	vecs, err := e.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i, v := range vecs {
		if math.Abs(utils.Norm(v)-1) > 1e-5 {
			t.Errorf("vector %d not normalized", i)
		}
		// first/second component ratio recovers the input position.
		if got := int(math.Round(float64(v[0] / v[1]))); got != i+1 {
			t.Errorf("vector %d encodes position %d", i, got)
		}
	}
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("Name = %q", e.Name())
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := fakeEmbeddingsServer(t, 8, http.StatusOK)
	defer srv.Close()
	e := NewOpenAIEmbedder(OpenAIOptions{Provider: "ollama", BaseURL: srv.URL + "/v1", Model: "m", Dimensions: 4})
	_, err := e.Embed(context.Background(), "x")
	if !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("Embed error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestOpenAIEmbedder_ServerDown(t *testing.T) {
	srv := fakeEmbeddingsServer(t, 4, http.StatusServiceUnavailable)
	defer srv.Close()
	e := NewOpenAIEmbedder(OpenAIOptions{Provider: "ollama", BaseURL: srv.URL + "/v1", Model: "m", Dimensions: 4})
	_, err := e.Embed(context.Background(), "x")
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Errorf("Embed error = %v, want ErrModelUnavailable", err)
	}
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: config.ProviderHash, Dimensions: 32})
	if err != nil {
		t.Fatalf("New(hash): %v", err)
	}
	if e.Dimensions() != 32 || Identity(e) != "hash/32" {
		t.Errorf("hash embedder = %s", Identity(e))
	}
	e, err = New(config.EmbeddingConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", Model: "nomic-embed-text", Dimensions: 768})
	if err != nil {
		t.Fatalf("New(ollama): %v", err)
	}
	if Identity(e) != "ollama/nomic-embed-text/768" {
		t.Errorf("Identity = %q", Identity(e))
	}
	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}); !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("New(word2vec) error = %v", err)
	}
}
