package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus() []Document {
	return []Document{
		{ID: "go", Content: "Go is a statically typed programming language designed at Google."},
		{ID: "python", Content: "Python is a dynamically typed programming language popular for scripting."},
		{ID: "cooking", Content: "Slow roasting vegetables brings out their natural sweetness."},
	}
}

func TestKeywordRetrieverRanksByOverlap(t *testing.T) {
	retriever := NewKeywordRetriever(testCorpus())

	docs, err := retriever.Retrieve(context.Background(), "statically typed language", 3)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "go", docs[0].ID)
	assert.Equal(t, 1.0, docs[0].Score)
}

func TestKeywordRetrieverLimitsResults(t *testing.T) {
	retriever := NewKeywordRetriever(testCorpus())

	docs, err := retriever.Retrieve(context.Background(), "typed programming language", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestKeywordRetrieverNoMatches(t *testing.T) {
	retriever := NewKeywordRetriever(testCorpus())

	docs, err := retriever.Retrieve(context.Background(), "quantum entanglement", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestKeywordRetrieverAdd(t *testing.T) {
	retriever := NewKeywordRetriever(nil)
	retriever.Add(Document{ID: "new", Content: "fresh document about databases"})

	docs, err := retriever.Retrieve(context.Background(), "databases", 3)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].ID)
}

func TestTermProximityReranker(t *testing.T) {
	reranker := &TermProximityReranker{}
	docs := []ScoredDocument{
		{Document: Document{ID: "a", Content: "mentions typed once"}, Score: 0.9},
		{Document: Document{ID: "b", Content: "statically typed language, statically typed language"}, Score: 0.5},
	}

	reranked, err := reranker.Rerank(context.Background(), "statically typed language", docs)
	require.NoError(t, err)
	require.Len(t, reranked, 2)
	assert.Equal(t, "b", reranked[0].ID)
}

func TestTermProximityRerankerMinScore(t *testing.T) {
	reranker := &TermProximityReranker{MinScore: 0.5}
	docs := []ScoredDocument{
		{Document: Document{ID: "weak", Content: "unrelated text"}, Score: 0.1},
	}

	reranked, err := reranker.Rerank(context.Background(), "statically typed", docs)
	require.NoError(t, err)
	assert.Empty(t, reranked)
}
