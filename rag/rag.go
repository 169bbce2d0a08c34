// Package rag provides retrieval-augmented generation building blocks: document
// loaders, splitters, retrievers, rerankers and a graph-based answer pipeline.
package rag

import "context"

// Document is a unit of retrievable content.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source returns the document's source from metadata, or its ID.
func (d Document) Source() string {
	if s, ok := d.Metadata["source"].(string); ok && s != "" {
		return s
	}
	return d.ID
}

// ScoredDocument pairs a document with a relevance score.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// Loader loads documents from some source.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

// Splitter splits documents into smaller chunks.
type Splitter interface {
	Split(docs []Document) ([]Document, error)
}

// Retriever finds the documents most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]ScoredDocument, error)
}

// Reranker reorders retrieved documents by relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []ScoredDocument) ([]ScoredDocument, error)
}
