package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

const defaultRAGSystemPrompt = "You are a helpful assistant. Answer the question using only the provided context. " +
	"If the context does not contain the answer, say you don't know."

// PipelineConfig configures a retrieval-augmented generation graph.
type PipelineConfig struct {
	Model     llms.Model
	Retriever Retriever
	// Reranker reorders retrieved documents. Used only when UseReranking is
	// set.
	Reranker Reranker
	// TopK is the number of documents to retrieve. Default 4.
	TopK int
	// ScoreThreshold drops documents scored below it after retrieval.
	ScoreThreshold float64
	// RewriteQuery adds a query-rewrite step before retrieval.
	RewriteQuery bool
	// UseReranking adds a rerank step after retrieval.
	UseReranking bool
	// IncludeCitations appends a numbered source list to the answer.
	IncludeCitations bool
	// SystemPrompt overrides the default answering instruction.
	SystemPrompt string
}

func (c *PipelineConfig) defaults() {
	if c.TopK <= 0 {
		c.TopK = 4
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultRAGSystemPrompt
	}
}

// NewPipeline builds a RAG graph. Input state needs a "question" string; the
// final state carries "answer", "documents" and, with citations enabled,
// "citations".
func NewPipeline(cfg PipelineConfig) (*graph.Runnable, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	cfg.defaults()

	workflow := graph.NewStateGraph()

	if cfg.RewriteQuery {
		workflow.AddNode("rewrite_query", "Rewrite the question for retrieval", cfg.rewriteQuery)
	}
	workflow.AddNode("retrieve", "Retrieve relevant documents", cfg.retrieve)
	if cfg.UseReranking {
		workflow.AddNode("rerank", "Rerank retrieved documents", cfg.rerank)
	}
	workflow.AddNode("generate", "Generate an answer from the context", cfg.generate)
	if cfg.IncludeCitations {
		workflow.AddNode("format_citations", "Attach source citations", cfg.formatCitations)
	}

	if cfg.RewriteQuery {
		workflow.SetEntryPoint("rewrite_query")
		workflow.AddEdge("rewrite_query", "retrieve")
	} else {
		workflow.SetEntryPoint("retrieve")
	}
	if cfg.UseReranking {
		workflow.AddEdge("retrieve", "rerank")
		workflow.AddEdge("rerank", "generate")
	} else {
		workflow.AddEdge("retrieve", "generate")
	}
	if cfg.IncludeCitations {
		workflow.AddEdge("generate", "format_citations")
		workflow.AddEdge("format_citations", graph.END)
	} else {
		workflow.AddEdge("generate", graph.END)
	}

	return workflow.Compile()
}

func (c *PipelineConfig) rewriteQuery(ctx context.Context, state graph.State) (any, error) {
	question := stateString(state, "question")
	prompt := fmt.Sprintf("Rewrite the following question as a concise search query. "+
		"Return only the query, nothing else.\n\nQuestion: %s", question)
	rewritten, err := llms.GenerateFromSinglePrompt(ctx, c.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite query: %w", err)
	}
	return graph.State{"query": strings.TrimSpace(rewritten)}, nil
}

func (c *PipelineConfig) retrieve(ctx context.Context, state graph.State) (any, error) {
	query := stateString(state, "query")
	if query == "" {
		query = stateString(state, "question")
	}
	if query == "" {
		return nil, errors.New("state has no question to retrieve for")
	}

	docs, err := c.Retriever.Retrieve(ctx, query, c.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if c.ScoreThreshold > 0 {
		kept := docs[:0]
		for _, doc := range docs {
			if doc.Score >= c.ScoreThreshold {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}
	return graph.State{"documents": docs}, nil
}

func (c *PipelineConfig) rerank(ctx context.Context, state graph.State) (any, error) {
	docs := stateDocuments(state)
	if c.Reranker == nil || len(docs) == 0 {
		return graph.State{}, nil
	}
	query := stateString(state, "query")
	if query == "" {
		query = stateString(state, "question")
	}
	reranked, err := c.Reranker.Rerank(ctx, query, docs)
	if err != nil {
		return nil, fmt.Errorf("reranking failed: %w", err)
	}
	return graph.State{"documents": reranked}, nil
}

func (c *PipelineConfig) generate(ctx context.Context, state graph.State) (any, error) {
	question := stateString(state, "question")
	docs := stateDocuments(state)

	var contextBlock strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&contextBlock, "[%d] %s\n\n", i+1, doc.Content)
	}
	if contextBlock.Len() == 0 {
		contextBlock.WriteString("(no relevant documents found)\n")
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Context:\n%s\nQuestion: %s", contextBlock.String(), question)),
	}
	resp, err := c.Model.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}
	return graph.State{"answer": strings.TrimSpace(resp.Choices[0].Content)}, nil
}

func (c *PipelineConfig) formatCitations(ctx context.Context, state graph.State) (any, error) {
	docs := stateDocuments(state)
	if len(docs) == 0 {
		return graph.State{}, nil
	}

	var citations []string
	var sb strings.Builder
	sb.WriteString(stateString(state, "answer"))
	sb.WriteString("\n\nSources:\n")
	for i, doc := range docs {
		citation := fmt.Sprintf("[%d] %s", i+1, doc.Source())
		citations = append(citations, citation)
		sb.WriteString(citation)
		sb.WriteString("\n")
	}
	return graph.State{
		"answer":    strings.TrimRight(sb.String(), "\n"),
		"citations": citations,
	}, nil
}

func stateString(state graph.State, key string) string {
	s, _ := state[key].(string)
	return s
}

func stateDocuments(state graph.State) []ScoredDocument {
	docs, _ := state["documents"].([]ScoredDocument)
	return docs
}
