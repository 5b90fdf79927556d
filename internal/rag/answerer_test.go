package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// recordingGenerator returns a scripted answer and keeps the prompts it saw.
type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

func (g *recordingGenerator) Name() string { return "fake/model" }

func (g *recordingGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// failingIndex fails every query.
type failingIndex struct{ vector.Index }

func (failingIndex) Query(ctx context.Context, v []float32, k int) ([]models.ScoredEntry, error) {
	return nil, errors.New("disk gone")
}

func newIndexWith(t *testing.T, e embedding.Embedder, texts ...string) vector.Index {
	t.Helper()
	idx, err := vector.NewMemoryIndex(vector.Options{Dimensions: e.Dimensions()})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	entries := make([]*models.Entry, len(texts))
	for i, text := range texts {
		entries[i] = &models.Entry{ID: fmt.Sprintf("e%d", i), Vector: vecs[i], Text: text, Source: "doc.txt"}
	}
	if err := idx.Append(context.Background(), entries); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestAnswerer_PromptContainsRetrievedChunk(t *testing.T) {
	e := embedding.NewHashEmbedder(256)
	idx := newIndexWith(t, e,
		"the config file sets X=42 for the service",
		"bananas are yellow and grow in bunches",
		"rivers flow downhill toward the sea",
	)
	gen := &recordingGenerator{answer: "X is 42."}
	a := NewAnswerer(e, idx, gen, WithTopK(1))

	got, err := a.Answer(context.Background(), "what does the config file set X to")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "X is 42." {
		t.Errorf("Answer = %q, want completion verbatim", got)
	}
	prompt := gen.lastPrompt()
	if !strings.Contains(prompt, "X=42") {
		t.Errorf("prompt does not contain retrieved chunk:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: what does the config file set X to") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
	if strings.Contains(prompt, "bananas") {
		t.Errorf("prompt contains more than top-1 chunk:\n%s", prompt)
	}
}

func TestAnswerer_EmptyIndex(t *testing.T) {
	e := embedding.NewHashEmbedder(64)
	idx, _ := vector.NewMemoryIndex(vector.Options{Dimensions: 64})
	gen := &recordingGenerator{answer: "I don't know."}
	a := NewAnswerer(e, idx, gen)

	chunks, err := a.Retrieve(context.Background(), "anything", 4)
	if err != nil || len(chunks) != 0 {
		t.Fatalf("Retrieve on empty index = %v, %v", chunks, err)
	}
	got, err := a.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "I don't know." {
		t.Errorf("Answer = %q", got)
	}
	if gen.lastPrompt() != "anything" {
		t.Errorf("context-free prompt = %q, want the bare question", gen.lastPrompt())
	}
}

func TestAnswerer_RetrievalFailureDegrades(t *testing.T) {
	e := embedding.NewHashEmbedder(64)
	gen := &recordingGenerator{answer: "ok"}
	a := NewAnswerer(e, failingIndex{}, gen)

	if _, err := a.Retrieve(context.Background(), "q", 2); !errors.Is(err, models.ErrRetrievalUnavailable) {
		t.Errorf("Retrieve err = %v, want ErrRetrievalUnavailable", err)
	}
	got, err := a.Answer(context.Background(), "q")
	if err != nil || got != "ok" {
		t.Errorf("Answer = %q, %v; want degraded answer", got, err)
	}
}

func TestAnswerer_ModelUnavailable(t *testing.T) {
	e := embedding.NewHashEmbedder(64)
	idx, _ := vector.NewMemoryIndex(vector.Options{Dimensions: 64})
	gen := &recordingGenerator{err: fmt.Errorf("%w: connection refused", models.ErrModelUnavailable)}
	a := NewAnswerer(e, idx, gen)

	_, err := a.Answer(context.Background(), "q")
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("generator called %d times, want exactly 1", len(gen.prompts))
	}
}

func TestAnswerer_Hybrid(t *testing.T) {
	e := embedding.NewHashEmbedder(256)
	texts := []string{
		"parseConfig reads the YAML file from disk",
		"the server listens on port 8000 by default",
	}
	idx := newIndexWith(t, e, texts...)
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer kw.Close()
	_ = kw.IndexEntries(context.Background(), []*models.Entry{
		{ID: "e0", Text: texts[0], Source: "doc.txt"},
		{ID: "e1", Text: texts[1], Source: "doc.txt"},
	})

	a := NewAnswerer(e, idx, &recordingGenerator{}, WithKeywordIndex(kw, 0.5))
	chunks, err := a.Retrieve(context.Background(), "parseConfig", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) == 0 || chunks[0].EntryID != "e0" {
		t.Fatalf("chunks = %+v, want e0 first", chunks)
	}
	if chunks[0].KeywordScore != 1 {
		t.Errorf("keyword score = %f, want 1 for the best BM25 hit", chunks[0].KeywordScore)
	}
}
