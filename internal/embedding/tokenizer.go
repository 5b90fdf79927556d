package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	clsTokenID   = 101
	sepTokenID   = 102
	vocabBuckets = 30000
)

// Tokenizer produces token IDs for BERT-style models.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps lower-cased word tokens to hashed vocabulary IDs, framed by
// [CLS] and [SEP] and padded to maxTokens.
type HashTokenizer struct{}

// Tokenize returns padded input_ids, attention_mask and token_type_ids.
func (HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0], attentionMask[0] = clsTokenID, 1
	pos := 1
	for _, tok := range Tokens(text) {
		if pos >= maxTokens-1 {
			break
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		// Keep clear of the reserved low IDs.
		inputIDs[pos] = int64(h.Sum32()%(vocabBuckets-1000)) + 1000
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos], attentionMask[pos] = sepTokenID, 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// Tokens splits text into lower-cased runs of letters and digits.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
