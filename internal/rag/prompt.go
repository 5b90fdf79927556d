package rag

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// stuffTemplate places every retrieved chunk into one prompt ahead of the question.
const stuffTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{context}

Question: {question}
Helpful Answer:`

const chunkSeparator = "\n\n"

// SelectContext returns the chunk texts that fit in maxChars once joined,
// dropping the lowest-ranked chunks first. chunks must be ordered best first.
// If the best chunk alone exceeds the budget it is cut to maxChars.
// maxChars <= 0 disables the budget.
func SelectContext(chunks []models.RetrievedChunk, maxChars int) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if maxChars <= 0 || len(texts) == 0 {
		return texts
	}
	total := 0
	for i, t := range texts {
		n := len([]rune(t))
		if i > 0 {
			n += len(chunkSeparator)
		}
		if total+n > maxChars {
			if i == 0 {
				return []string{string([]rune(t)[:maxChars])}
			}
			return texts[:i]
		}
		total += n
	}
	return texts
}

// BuildPrompt assembles the prompt sent to the model. Without context the
// question is sent on its own.
func BuildPrompt(question string, chunks []models.RetrievedChunk, maxContextChars int) string {
	texts := SelectContext(chunks, maxContextChars)
	if len(texts) == 0 {
		return question
	}
	r := strings.NewReplacer("{context}", strings.Join(texts, chunkSeparator), "{question}", question)
	return r.Replace(stuffTemplate)
}
