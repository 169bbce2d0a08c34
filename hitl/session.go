package hitl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/store"
	"github.com/jemygraw/agentflow/store/memory"
)

const sessionSystemPrompt = "You are a helpful assistant talking to a user. Your reply is streamed " +
	"and the user may interject mid-reply. Answer the current input, taking the conversation history into account."

const regeneratePrompt = "The user interjected while you were replying. Write a new reply that takes " +
	"the interjection into account.\n\nOriginal input: %s\n\nYour partial reply so far:\n%s\n\nUser interjection: %s"

// Interruption is the payload of a mid-stream interrupt: the output produced
// so far and the user's interjection. It is also the value to resume with,
// optionally after editing the interjection.
type Interruption struct {
	PartialOutput string `json:"partial_output"`
	Interjection  string `json:"interjection"`
}

// SessionConfig configures a streaming chat session.
type SessionConfig struct {
	Streamer TokenStreamer

	// Interjections delivers user messages typed while the model is
	// streaming, e.g. from a LineWatcher.
	Interjections <-chan string

	// OnToken observes each streamed token, e.g. to print it. Optional.
	OnToken func(token string)

	// SystemPrompt overrides the default instruction.
	SystemPrompt string

	// Checkpoints persists per-thread conversation state. Defaults to an
	// in-memory store.
	Checkpoints store.CheckpointStore
}

// Session is a checkpointed streaming conversation. A mid-stream interjection
// surfaces as a *graph.GraphInterrupt whose InterruptValue is an
// Interruption; Resume folds the interjection in and regenerates.
type Session struct {
	runnable *graph.CheckpointableRunnable
}

// NewSessionGraph builds the session workflow: stream_response, then either
// update_context (after an interjection) or record_history.
func NewSessionGraph(cfg SessionConfig) (*graph.Runnable, error) {
	if cfg.Streamer == nil {
		return nil, errors.New("streamer is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = sessionSystemPrompt
	}

	workflow := graph.NewMessageGraph()
	workflow.AddNode("stream_response", "Stream the reply, watching for interjections", cfg.streamResponse)
	workflow.AddNode("update_context", "Fold the interjection in and regenerate", cfg.updateContext)
	workflow.AddNode("record_history", "Append the turn to the conversation history", cfg.recordHistory)

	workflow.SetEntryPoint("stream_response")
	workflow.AddConditionalEdge("stream_response", func(ctx context.Context, state graph.State) string {
		interrupted, _ := state["interrupt_requested"].(bool)
		if interrupted {
			return "update_context"
		}
		return "record_history"
	})
	workflow.AddEdge("update_context", "record_history")
	workflow.AddEdge("record_history", graph.END)

	return workflow.Compile()
}

// NewSession builds a checkpointed session.
func NewSession(cfg SessionConfig) (*Session, error) {
	runnable, err := NewSessionGraph(cfg)
	if err != nil {
		return nil, err
	}
	checkpoints := cfg.Checkpoints
	if checkpoints == nil {
		checkpoints = memory.NewMemoryCheckpointStore()
	}
	return &Session{
		runnable: graph.NewCheckpointableRunnable(runnable, graph.CheckpointConfig{
			Store:    checkpoints,
			AutoSave: true,
		}),
	}, nil
}

// Run executes one conversation turn. When the user interjects mid-stream the
// returned error is a *graph.GraphInterrupt carrying an Interruption; pass it
// to Resume to continue.
func (s *Session) Run(ctx context.Context, threadID, userInput string) (graph.State, error) {
	return s.runnable.Invoke(ctx, graph.State{
		"user_input":          userInput,
		"user_interrupt":      "",
		"interrupt_requested": false,
	}, graph.WithThreadID(threadID))
}

// Resume continues an interrupted turn: the interjection becomes part of the
// context and the reply is regenerated.
func (s *Session) Resume(ctx context.Context, threadID string, interruption Interruption) (graph.State, error) {
	config := graph.WithThreadID(threadID)
	config.ResumeValue = interruption
	return s.runnable.Invoke(ctx, graph.State{}, config)
}

// History returns the checkpointed conversation messages for a thread.
func (s *Session) History(ctx context.Context, threadID string) ([]llms.MessageContent, error) {
	state, err := s.runnable.State(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return graph.Messages(state), nil
}

func (c *SessionConfig) streamResponse(ctx context.Context, state graph.State) (any, error) {
	// A resumed turn carries the interruption payload instead of streaming
	// again.
	if rv := graph.ResumeValue(ctx); rv != nil {
		if interruption, ok := rv.(Interruption); ok {
			return graph.State{
				"streaming_content":   interruption.PartialOutput,
				"user_interrupt":      interruption.Interjection,
				"interrupt_requested": true,
			}, nil
		}
		return nil, fmt.Errorf("unexpected resume value type %T", rv)
	}

	userInput, _ := state["user_input"].(string)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.SystemPrompt),
	}
	messages = append(messages, graph.Messages(state)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userInput))

	var partial strings.Builder
	var interjection string
	errInterjected := errors.New("interjected")

	err := c.Streamer.Stream(ctx, messages, func(token string) error {
		partial.WriteString(token)
		if c.OnToken != nil {
			c.OnToken(token)
		}
		if c.Interjections != nil {
			select {
			case line, ok := <-c.Interjections:
				if ok && line != "" {
					interjection = line
					return errInterjected
				}
			default:
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errInterjected) {
		return nil, fmt.Errorf("streaming failed: %w", err)
	}

	if interjection != "" {
		return graph.Interrupt(ctx, Interruption{
			PartialOutput: partial.String(),
			Interjection:  interjection,
		})
	}

	return graph.State{
		"ai_response":         partial.String(),
		"streaming_content":   partial.String(),
		"interrupt_requested": false,
	}, nil
}

func (c *SessionConfig) updateContext(ctx context.Context, state graph.State) (any, error) {
	userInput, _ := state["user_input"].(string)
	partial, _ := state["streaming_content"].(string)
	interjection, _ := state["user_interrupt"].(string)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.SystemPrompt),
	}
	messages = append(messages, graph.Messages(state)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman,
		fmt.Sprintf(regeneratePrompt, userInput, partial, interjection)))

	var reply strings.Builder
	err := c.Streamer.Stream(ctx, messages, func(token string) error {
		reply.WriteString(token)
		if c.OnToken != nil {
			c.OnToken(token)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate reply: %w", err)
	}

	return graph.State{
		"ai_response":         reply.String(),
		"interrupt_requested": false,
	}, nil
}

func (c *SessionConfig) recordHistory(ctx context.Context, state graph.State) (any, error) {
	userInput, _ := state["user_input"].(string)
	response, _ := state["ai_response"].(string)
	interjection, _ := state["user_interrupt"].(string)

	turn := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, userInput),
	}
	if interjection != "" {
		turn = append(turn, llms.TextParts(llms.ChatMessageTypeHuman, "[interjected] "+interjection))
	}
	turn = append(turn, llms.TextParts(llms.ChatMessageTypeAI, response))

	return graph.State{"messages": turn}, nil
}
