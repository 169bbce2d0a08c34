package prebuilt

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

// SummaryConfig tunes the summarizing chat agent.
type SummaryConfig struct {
	// MaxMessages triggers summarization once the transcript grows past it.
	// Default 6.
	MaxMessages int

	// KeepLast is how many recent messages survive a summarization.
	// Default 2.
	KeepLast int
}

func (c *SummaryConfig) defaults() {
	if c.MaxMessages <= 0 {
		c.MaxMessages = 6
	}
	if c.KeepLast <= 0 {
		c.KeepLast = 2
	}
}

// replaceMessages is a state update that overwrites the transcript instead
// of appending, used when summarization drops old messages.
type replaceMessages []llms.MessageContent

// CreateSummarizingChatAgent creates a chat agent that keeps its context
// window bounded: once the transcript exceeds MaxMessages, a summarization
// step folds the older messages into a running summary and keeps only the
// most recent KeepLast messages. The summary is prepended to the model's
// context as a system message on later turns.
func CreateSummarizingChatAgent(model llms.Model, cfg SummaryConfig) (*graph.Runnable, error) {
	cfg.defaults()

	workflow := graph.NewStateGraph()
	workflow.SetSchema(graph.NewSchema().RegisterReducer("messages", summaryMessagesReducer))

	workflow.AddNode("conversation", "Chat with running summary in context", func(ctx context.Context, state graph.State) (any, error) {
		messages := graph.Messages(state)

		var prompt []llms.MessageContent
		if summary, _ := state["summary"].(string); summary != "" {
			prompt = append(prompt, llms.TextParts(llms.ChatMessageTypeSystem,
				"Summary of conversation earlier: "+summary))
		}
		prompt = append(prompt, messages...)

		resp, err := model.GenerateContent(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("model returned no choices")
		}

		return graph.State{
			"messages": llms.TextParts(llms.ChatMessageTypeAI, resp.Choices[0].Content),
		}, nil
	})

	workflow.AddNode("summarize_conversation", "Fold old messages into the summary", func(ctx context.Context, state graph.State) (any, error) {
		messages := graph.Messages(state)
		summary, _ := state["summary"].(string)

		request := "Create a summary of the conversation above:"
		if summary != "" {
			request = fmt.Sprintf(
				"This is summary of the conversation to date: %s\n\n"+
					"Extend the summary by taking into account the new messages above:", summary)
		}

		prompt := append(append([]llms.MessageContent{}, messages...),
			llms.TextParts(llms.ChatMessageTypeHuman, request))

		resp, err := model.GenerateContent(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("summarization failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("summarizer model returned no choices")
		}

		kept := messages
		if len(kept) > cfg.KeepLast {
			kept = kept[len(kept)-cfg.KeepLast:]
		}

		return graph.State{
			"summary":  resp.Choices[0].Content,
			"messages": replaceMessages(kept),
		}, nil
	})

	workflow.SetEntryPoint("conversation")
	workflow.AddConditionalEdge("conversation", func(ctx context.Context, state graph.State) string {
		if len(graph.Messages(state)) > cfg.MaxMessages {
			return "summarize_conversation"
		}
		return graph.END
	})
	workflow.AddEdge("summarize_conversation", graph.END)

	return workflow.Compile()
}

// summaryMessagesReducer appends messages like the message schema, except a
// replaceMessages update overwrites the transcript.
func summaryMessagesReducer(current, update any) (any, error) {
	if repl, ok := update.(replaceMessages); ok {
		return []llms.MessageContent(repl), nil
	}
	return graph.AddMessages(current, update)
}
