// Package memoryagent implements a chat agent that extracts long-term
// memories from conversations. The model is given an upsert_memory tool and
// relevant memories from past conversations are surfaced into its system
// prompt, so knowledge accumulates across threads for the same user.
package memoryagent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
	"github.com/jemygraw/agentflow/store"
)

const memorySearchLimit = 10

// NewGraph builds the memory agent graph:
//
//	call_model -> store_memory -> call_model -> ... -> END
//
// call_model answers with the user's memories in context; when it emits
// upsert_memory tool calls, store_memory executes them concurrently and
// control returns to call_model so it can respond after saving.
//
// A nil model is resolved from Context.Model via NewModelFromContext.
func NewGraph(model llms.Model, st store.Store, rc Context) (*graph.Runnable, error) {
	if rc.UserID == "" {
		return nil, fmt.Errorf("memoryagent: Context.UserID is required")
	}
	if model == nil {
		resolved, err := NewModelFromContext(rc)
		if err != nil {
			return nil, err
		}
		model = resolved
	}

	g := graph.NewMessageGraph()

	g.AddNode("call_model", "Chat with memories in context", func(ctx context.Context, state graph.State) (any, error) {
		return callModel(ctx, model, st, rc, state)
	})
	g.AddNode("store_memory", "Execute upsert_memory tool calls", func(ctx context.Context, state graph.State) (any, error) {
		return storeMemory(ctx, st, rc, state)
	})

	g.SetEntryPoint("call_model")
	g.AddConditionalEdge("call_model", routeMessage)
	g.AddEdge("store_memory", "call_model")

	return g.Compile()
}

func callModel(ctx context.Context, model llms.Model, st store.Store, rc Context, state graph.State) (any, error) {
	messages := graph.Messages(state)

	memories, err := st.Search(ctx, []string{"memories", rc.UserID}, recentText(messages, 3), memorySearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}

	sys := strings.NewReplacer(
		"{user_info}", formatMemories(memories),
		"{time}", time.Now().Format(time.RFC3339),
	).Replace(rc.systemPrompt())

	prompt := append(
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, sys)},
		messages...,
	)

	resp, err := model.GenerateContent(ctx, prompt, llms.WithTools([]llms.Tool{upsertMemoryTool}))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	choice := resp.Choices[0]
	aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		aiMsg.Parts = append(aiMsg.Parts, tc)
	}

	return graph.State{"messages": aiMsg}, nil
}

func storeMemory(ctx context.Context, st store.Store, rc Context, state graph.State) (any, error) {
	messages := graph.Messages(state)
	if len(messages) == 0 {
		return nil, nil
	}

	toolCalls := extractToolCalls(messages[len(messages)-1])

	// Execute all upserts concurrently, preserving order for the results.
	results := make([]string, len(toolCalls))
	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func(i int, tc llms.ToolCall) {
			defer wg.Done()
			args, err := parseUpsertMemoryArgs(tc.FunctionCall.Arguments)
			if err == nil {
				results[i], err = UpsertMemory(ctx, st, rc.UserID, args)
			}
			if err != nil {
				log.Warn("upsert_memory failed: %v", err)
				results[i] = fmt.Sprintf("Error: %v", err)
			}
		}(i, tc)
	}
	wg.Wait()

	toolMessages := make([]llms.MessageContent, 0, len(toolCalls))
	for i, tc := range toolCalls {
		toolMessages = append(toolMessages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    results[i],
				},
			},
		})
	}

	return graph.State{"messages": toolMessages}, nil
}

func routeMessage(ctx context.Context, state graph.State) string {
	messages := graph.Messages(state)
	if len(messages) == 0 {
		return graph.END
	}
	if len(extractToolCalls(messages[len(messages)-1])) > 0 {
		return "store_memory"
	}
	return graph.END
}

func extractToolCalls(msg llms.MessageContent) []llms.ToolCall {
	var calls []llms.ToolCall
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.ToolCall); ok && tc.FunctionCall != nil {
			calls = append(calls, tc)
		}
	}
	return calls
}

// recentText joins the text of the last n messages into a search query.
func recentText(messages []llms.MessageContent, n int) string {
	start := len(messages) - n
	if start < 0 {
		start = 0
	}

	var parts []string
	for _, msg := range messages[start:] {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, text.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func formatMemories(memories []*store.SearchedItem) string {
	if len(memories) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n<memories>\n")
	for _, mem := range memories {
		fmt.Fprintf(&sb, "[%s]: %v (similarity: %.2f)\n", mem.Key, mem.Value, mem.Score)
	}
	sb.WriteString("</memories>")
	return sb.String()
}
