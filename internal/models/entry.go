package models

// Entry is one row of the vector index: the vector, the chunk text it was computed
// from, and where that text came from.
type Entry struct {
	ID         string            `json:"id"`
	Vector     []float32         `json:"-"`
	Text       string            `json:"text"`
	Source     string            `json:"source"`
	DocumentID string            `json:"document_id"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ScoredEntry is an index entry with its similarity to a query vector.
type ScoredEntry struct {
	Entry *Entry
	Score float64
}

// RetrievedChunk is a single element of a retrieval result, most similar first.
type RetrievedChunk struct {
	EntryID       string  `json:"entry_id"`
	Text          string  `json:"text"`
	Source        string  `json:"source"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score,omitempty"`
}
