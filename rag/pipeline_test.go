package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

// MockLLM returns canned responses in order.
type MockLLM struct {
	responses []llms.ContentResponse
	prompts   []string
	callCount int
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, tc.Text)
			}
		}
	}
	if m.callCount < len(m.responses) {
		resp := m.responses[m.callCount]
		m.callCount++
		return &resp, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "No more responses"}},
	}, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func textResponse(content string) llms.ContentResponse {
	return llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func TestPipelineAnswersFromContext(t *testing.T) {
	model := &MockLLM{responses: []llms.ContentResponse{
		textResponse("Go was designed at Google."),
	}}
	pipeline, err := NewPipeline(PipelineConfig{
		Model:     model,
		Retriever: NewKeywordRetriever(testCorpus()),
	})
	require.NoError(t, err)

	state, err := pipeline.Invoke(context.Background(), graph.State{"question": "Who designed the Go programming language?"})
	require.NoError(t, err)
	assert.Equal(t, "Go was designed at Google.", state["answer"])

	docs := state["documents"].([]ScoredDocument)
	require.NotEmpty(t, docs)
	assert.Equal(t, "go", docs[0].ID)

	// The generation prompt carries the retrieved context.
	joined := ""
	for _, p := range model.prompts {
		joined += p + "\n"
	}
	assert.Contains(t, joined, "designed at Google")
}

func TestPipelineWithCitations(t *testing.T) {
	model := &MockLLM{responses: []llms.ContentResponse{
		textResponse("An answer."),
	}}
	pipeline, err := NewPipeline(PipelineConfig{
		Model:            model,
		Retriever:        NewKeywordRetriever(testCorpus()),
		IncludeCitations: true,
	})
	require.NoError(t, err)

	state, err := pipeline.Invoke(context.Background(), graph.State{"question": "statically typed programming language"})
	require.NoError(t, err)

	answer := state["answer"].(string)
	assert.Contains(t, answer, "An answer.")
	assert.Contains(t, answer, "Sources:")
	assert.Contains(t, answer, "[1] go")

	citations := state["citations"].([]string)
	assert.NotEmpty(t, citations)
}

func TestPipelineRewritesQuery(t *testing.T) {
	model := &MockLLM{responses: []llms.ContentResponse{
		textResponse("roasting vegetables"),
		textResponse("Roast them slowly."),
	}}
	pipeline, err := NewPipeline(PipelineConfig{
		Model:        model,
		Retriever:    NewKeywordRetriever(testCorpus()),
		RewriteQuery: true,
	})
	require.NoError(t, err)

	state, err := pipeline.Invoke(context.Background(), graph.State{
		"question": "hey so like, how should I cook veggies in the oven??",
	})
	require.NoError(t, err)
	assert.Equal(t, "roasting vegetables", state["query"])
	assert.Equal(t, "Roast them slowly.", state["answer"])

	docs := state["documents"].([]ScoredDocument)
	require.NotEmpty(t, docs)
	assert.Equal(t, "cooking", docs[0].ID)
}

func TestPipelineWithReranking(t *testing.T) {
	model := &MockLLM{responses: []llms.ContentResponse{
		textResponse("done"),
	}}
	pipeline, err := NewPipeline(PipelineConfig{
		Model:        model,
		Retriever:    NewKeywordRetriever(testCorpus()),
		UseReranking: true,
		Reranker:     &TermProximityReranker{},
	})
	require.NoError(t, err)

	state, err := pipeline.Invoke(context.Background(), graph.State{
		"question": "typed programming language",
	})
	require.NoError(t, err)
	docs := state["documents"].([]ScoredDocument)
	require.NotEmpty(t, docs)
	// Reranking bumps scores above the raw retrieval overlap.
	assert.Greater(t, docs[0].Score, 1.0)
}

func TestPipelineNoDocuments(t *testing.T) {
	model := &MockLLM{responses: []llms.ContentResponse{
		textResponse("I don't know."),
	}}
	pipeline, err := NewPipeline(PipelineConfig{
		Model:     model,
		Retriever: NewKeywordRetriever(nil),
	})
	require.NoError(t, err)

	state, err := pipeline.Invoke(context.Background(), graph.State{"question": "anything at all"})
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", state["answer"])
}

func TestPipelineValidation(t *testing.T) {
	_, err := NewPipeline(PipelineConfig{Retriever: NewKeywordRetriever(nil)})
	assert.Error(t, err)

	_, err = NewPipeline(PipelineConfig{Model: &MockLLM{}})
	assert.Error(t, err)
}

func TestPipelineMissingQuestion(t *testing.T) {
	pipeline, err := NewPipeline(PipelineConfig{
		Model:     &MockLLM{},
		Retriever: NewKeywordRetriever(nil),
	})
	require.NoError(t, err)

	_, err = pipeline.Invoke(context.Background(), graph.State{})
	assert.Error(t, err)
}
