package rag

import (
	"context"
	"sort"
	"strings"
)

// TermProximityReranker reorders retrieved documents by combining the
// retrieval score with an exact-phrase and term-frequency bonus. Documents
// below MinScore are dropped.
type TermProximityReranker struct {
	// MinScore filters out documents whose combined score falls below it.
	MinScore float64
}

func (r *TermProximityReranker) Rerank(ctx context.Context, query string, docs []ScoredDocument) ([]ScoredDocument, error) {
	terms := queryTerms(query)
	phrase := strings.ToLower(strings.TrimSpace(query))

	reranked := make([]ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		lower := strings.ToLower(doc.Content)
		score := doc.Score
		if phrase != "" && strings.Contains(lower, phrase) {
			score += 0.5
		}
		for _, term := range terms {
			score += 0.05 * float64(strings.Count(lower, term))
		}
		if score < r.MinScore {
			continue
		}
		doc.Score = score
		reranked = append(reranked, doc)
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}
