package prebuilt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

// MockLLM implements llms.Model for testing
type MockLLM struct {
	responses []llms.ContentResponse
	callCount int
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.callCount >= len(m.responses) {
		return &llms.ContentResponse{
			Choices: []*llms.ContentChoice{
				{Content: "No more responses"},
			},
		}, nil
	}
	resp := m.responses[m.callCount]
	m.callCount++
	return &resp, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func routeResponse(next string) llms.ContentResponse {
	return llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:   "call_route",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      "route",
							Arguments: `{"next":"` + next + `"}`,
						},
					},
				},
			},
		},
	}
}

func echoWorker(t *testing.T, reply string) *graph.Runnable {
	t.Helper()
	g := graph.NewMessageGraph()
	g.AddNode("work", "", func(ctx context.Context, state graph.State) (any, error) {
		return graph.State{"messages": llms.TextParts(llms.ChatMessageTypeAI, reply)}, nil
	})
	g.AddEdge("work", graph.END)
	g.SetEntryPoint("work")
	runnable, err := g.Compile()
	require.NoError(t, err)
	return runnable
}

func TestSupervisorRoutesToWorkerThenFinishes(t *testing.T) {
	llm := &MockLLM{
		responses: []llms.ContentResponse{
			routeResponse("researcher"),
			routeResponse("FINISH"),
		},
	}

	supervisor, err := CreateSupervisor(llm, map[string]*graph.Runnable{
		"researcher": echoWorker(t, "research done"),
	})
	require.NoError(t, err)

	state, err := supervisor.Invoke(context.Background(), graph.State{
		"messages": llms.TextParts(llms.ChatMessageTypeHuman, "investigate the topic"),
	})
	require.NoError(t, err)

	msgs := graph.Messages(state)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[1].Role)
	assert.Equal(t, 2, llm.callCount)
}

func TestSupervisorMultipleWorkers(t *testing.T) {
	llm := &MockLLM{
		responses: []llms.ContentResponse{
			routeResponse("researcher"),
			routeResponse("writer"),
			routeResponse("FINISH"),
		},
	}

	supervisor, err := CreateSupervisor(llm, map[string]*graph.Runnable{
		"researcher": echoWorker(t, "findings"),
		"writer":     echoWorker(t, "article"),
	})
	require.NoError(t, err)

	state, err := supervisor.Invoke(context.Background(), graph.State{
		"messages": llms.TextParts(llms.ChatMessageTypeHuman, "write about Go"),
	})
	require.NoError(t, err)

	msgs := graph.Messages(state)
	require.Len(t, msgs, 3)
}

func TestSupervisorRequiresMembers(t *testing.T) {
	_, err := CreateSupervisor(&MockLLM{}, nil)
	assert.Error(t, err)
}

func TestSupervisorRejectsEmptyModelResponse(t *testing.T) {
	llm := &MockLLM{
		responses: []llms.ContentResponse{{}},
	}

	supervisor, err := CreateSupervisor(llm, map[string]*graph.Runnable{
		"researcher": echoWorker(t, "x"),
	})
	require.NoError(t, err)

	_, err = supervisor.Invoke(context.Background(), graph.State{
		"messages": llms.TextParts(llms.ChatMessageTypeHuman, "go"),
	})
	assert.ErrorContains(t, err, "no choices")
}

func TestSupervisorRejectsFreeTextAnswer(t *testing.T) {
	llm := &MockLLM{
		responses: []llms.ContentResponse{
			{Choices: []*llms.ContentChoice{{Content: "I think the researcher should go"}}},
		},
	}

	supervisor, err := CreateSupervisor(llm, map[string]*graph.Runnable{
		"researcher": echoWorker(t, "x"),
	})
	require.NoError(t, err)

	_, err = supervisor.Invoke(context.Background(), graph.State{
		"messages": llms.TextParts(llms.ChatMessageTypeHuman, "go"),
	})
	assert.ErrorContains(t, err, "did not select a next step")
}
