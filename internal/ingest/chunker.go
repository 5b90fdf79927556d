package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into overlapping character windows. Windows end at the
// latest paragraph break, else sentence end, else word boundary in their second
// half, and are cut hard when none exists. Every window starts exactly overlap
// characters before the previous one ends, so windows cover the text without gaps.
type Chunker struct {
	size    int
	overlap int
}

type span struct {
	start, end int
}

// NewChunker creates a chunker with the given size and overlap, in characters.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", models.ErrInvalidConfiguration, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by adjacent chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunk texts of text in order. Whitespace-only text yields nil.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	spans := c.spans(runes)
	if spans == nil {
		return nil
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(runes[sp.start:sp.end])
	}
	return out
}

// Chunk splits text into Chunks attributed to the given document.
func (c *Chunker) Chunk(docID, source, text string) []*models.Chunk {
	runes := []rune(text)
	spans := c.spans(runes)
	if spans == nil {
		return nil
	}
	chunks := make([]*models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = &models.Chunk{
			DocumentID: docID,
			Source:     source,
			Index:      i,
			Start:      sp.start,
			Text:       string(runes[sp.start:sp.end]),
		}
	}
	return chunks
}

func (c *Chunker) spans(r []rune) []span {
	if strings.TrimSpace(string(r)) == "" {
		return nil
	}
	var out []span
	start := 0
	for {
		end := start + c.size
		if end >= len(r) {
			return append(out, span{start, len(r)})
		}
		cut := c.breakpoint(r, start, end)
		out = append(out, span{start, cut})
		start = cut - c.overlap
	}
}

// breakpoint picks where the window [start, end) should end. end < len(r).
// The result is always greater than start+overlap so the next window advances.
func (c *Chunker) breakpoint(r []rune, start, end int) int {
	lo := start + c.overlap + 1
	if half := start + c.size/2; half > lo {
		lo = half
	}
	if lo > end {
		return end
	}
	for i := end; i >= lo; i-- {
		if i >= 2 && r[i-1] == '\n' && r[i-2] == '\n' {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if isSentenceEnd(r[i-1]) && unicode.IsSpace(r[i]) {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
