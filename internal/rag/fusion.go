package rag

import (
	"sort"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
)

// NormalizeKeywordScores normalizes BM25 scores to [0,1] by the maximum score.
func NormalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// Fuse merges semantic and keyword hits into one ranking with
// score = keywordWeight*keyword + (1-keywordWeight)*semantic. Chunks found by
// only one side score zero on the other. Ties keep semantic order first.
func Fuse(semantic []models.ScoredEntry, keywordHits []*keyword.Result, keywordWeight float64) []models.RetrievedChunk {
	keywordScores := NormalizeKeywordScores(keywordHits)

	byID := make(map[string]*models.RetrievedChunk, len(semantic)+len(keywordHits))
	order := make([]string, 0, len(semantic)+len(keywordHits))
	for _, s := range semantic {
		if _, seen := byID[s.Entry.ID]; seen {
			continue
		}
		byID[s.Entry.ID] = &models.RetrievedChunk{
			EntryID:       s.Entry.ID,
			Text:          s.Entry.Text,
			Source:        s.Entry.Source,
			SemanticScore: s.Score,
		}
		order = append(order, s.Entry.ID)
	}
	for _, k := range keywordHits {
		c, ok := byID[k.ID]
		if !ok {
			c = &models.RetrievedChunk{EntryID: k.ID, Text: k.Text, Source: k.Source}
			byID[k.ID] = c
			order = append(order, k.ID)
		}
		c.KeywordScore = keywordScores[k.ID]
	}

	out := make([]models.RetrievedChunk, len(order))
	for i, id := range order {
		c := byID[id]
		c.Score = keywordWeight*c.KeywordScore + (1-keywordWeight)*c.SemanticScore
		out[i] = *c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// fromSemantic converts vector hits to retrieved chunks without fusion.
func fromSemantic(semantic []models.ScoredEntry) []models.RetrievedChunk {
	out := make([]models.RetrievedChunk, len(semantic))
	for i, s := range semantic {
		out[i] = models.RetrievedChunk{
			EntryID:       s.Entry.ID,
			Text:          s.Entry.Text,
			Source:        s.Entry.Source,
			Score:         s.Score,
			SemanticScore: s.Score,
		}
	}
	return out
}
