package prebuilt

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

func TestSummarizingChatAgentShortConversation(t *testing.T) {
	llm := &MockLLM{
		responses: []llms.ContentResponse{
			{Choices: []*llms.ContentChoice{{Content: "hi there"}}},
		},
	}

	agent, err := CreateSummarizingChatAgent(llm, SummaryConfig{})
	require.NoError(t, err)

	state, err := agent.Invoke(context.Background(), graph.State{
		"messages": llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
	})
	require.NoError(t, err)

	assert.Len(t, graph.Messages(state), 2)
	_, hasSummary := state["summary"]
	assert.False(t, hasSummary)
}

func TestSummarizingChatAgentTriggersSummary(t *testing.T) {
	llm := &MockLLM{
		responses: []llms.ContentResponse{
			{Choices: []*llms.ContentChoice{{Content: "answer"}}},
			{Choices: []*llms.ContentChoice{{Content: "the user talked about sports"}}},
		},
	}

	agent, err := CreateSummarizingChatAgent(llm, SummaryConfig{MaxMessages: 6, KeepLast: 2})
	require.NoError(t, err)

	var history []llms.MessageContent
	for i := 0; i < 6; i++ {
		history = append(history, llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("message %d", i)))
	}

	state, err := agent.Invoke(context.Background(), graph.State{"messages": history})
	require.NoError(t, err)

	assert.Equal(t, "the user talked about sports", state["summary"])
	// Only KeepLast messages survive.
	msgs := graph.Messages(state)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[1].Role)
}

func TestSummarizingChatAgentUsesSummaryInContext(t *testing.T) {
	var captured []llms.MessageContent
	llm := &capturingLLM{response: "ok", capture: &captured}

	agent, err := CreateSummarizingChatAgent(llm, SummaryConfig{})
	require.NoError(t, err)

	_, err = agent.Invoke(context.Background(), graph.State{
		"summary":  "user likes tennis",
		"messages": llms.TextParts(llms.ChatMessageTypeHuman, "what sport do I like?"),
	})
	require.NoError(t, err)

	require.NotEmpty(t, captured)
	require.Equal(t, llms.ChatMessageTypeSystem, captured[0].Role)
	text := captured[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, text, "user likes tennis")
}

type capturingLLM struct {
	response string
	capture  *[]llms.MessageContent
}

func (c *capturingLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	*c.capture = messages
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: c.response}},
	}, nil
}

func (c *capturingLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return c.response, nil
}
