package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// KeywordRetriever scores indexed documents by term overlap with the query.
// It needs no embedding model, which makes it useful for tests and small
// corpora.
type KeywordRetriever struct {
	docs []Document
}

// NewKeywordRetriever indexes the given documents.
func NewKeywordRetriever(docs []Document) *KeywordRetriever {
	return &KeywordRetriever{docs: docs}
}

// Add indexes additional documents.
func (r *KeywordRetriever) Add(docs ...Document) {
	r.docs = append(r.docs, docs...)
}

func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		k = 4
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var scored []ScoredDocument
	for _, doc := range r.docs {
		score := overlapScore(terms, doc.Content)
		if score > 0 {
			scored = append(scored, ScoredDocument{Document: doc, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, ".,!?\"'()")
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

func overlapScore(terms []string, content string) float64 {
	lower := strings.ToLower(content)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return float64(matched) / float64(len(terms))
}

// VectorStoreRetriever adapts a langchaingo vector store for similarity
// search.
type VectorStoreRetriever struct {
	store   vectorstores.VectorStore
	options []vectorstores.Option
}

// NewVectorStoreRetriever wraps a langchaingo vector store, e.g. pgvector or
// an in-memory store.
func NewVectorStoreRetriever(store vectorstores.VectorStore, options ...vectorstores.Option) *VectorStoreRetriever {
	return &VectorStoreRetriever{store: store, options: options}
}

// AddDocuments embeds and stores the given documents in the underlying
// vector store.
func (r *VectorStoreRetriever) AddDocuments(ctx context.Context, docs []Document) error {
	lcDocs := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		meta := map[string]any{"id": doc.ID}
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		lcDocs = append(lcDocs, schema.Document{PageContent: doc.Content, Metadata: meta})
	}
	if _, err := r.store.AddDocuments(ctx, lcDocs, r.options...); err != nil {
		return fmt.Errorf("failed to add documents to vector store: %w", err)
	}
	return nil
}

func (r *VectorStoreRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		k = 4
	}
	results, err := r.store.SimilaritySearch(ctx, query, k, r.options...)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	scored := make([]ScoredDocument, 0, len(results))
	for i, res := range results {
		id, _ := res.Metadata["id"].(string)
		if id == "" {
			id = fmt.Sprintf("result-%d", i)
		}
		scored = append(scored, ScoredDocument{
			Document: Document{ID: id, Content: res.PageContent, Metadata: res.Metadata},
			Score:    float64(res.Score),
		})
	}
	return scored, nil
}
