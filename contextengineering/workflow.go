// Package contextengineering implements the four context engineering
// strategies as one research workflow graph: write context to state and
// long-term memory, select relevant context from multiple sources, compress
// conversations and findings, and isolate work in specialist sub-agents.
package contextengineering

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
	"github.com/jemygraw/agentflow/store"
)

// ToolResult records one research tool invocation.
type ToolResult struct {
	Tool   string `json:"tool"`
	Query  string `json:"query"`
	Result string `json:"result"`
	Round  int    `json:"round"`
}

// Config configures the research workflow.
type Config struct {
	// Model answers analysis, compression and specialist prompts.
	Model llms.Model

	// Store is the long-term memory every round writes to and selects from.
	Store store.Store

	// Namespace scopes the workflow's long-term memory.
	// Defaults to ["context", "research"].
	Namespace []string

	// Tools are invoked with the round's query during the research step.
	Tools []tools.Tool

	// Specialists maps a specialist name to its role description. The
	// isolate step runs one sub-agent per entry. Defaults to technology,
	// education and business analysts.
	Specialists map[string]string

	// RoundQueries are follow-up queries for rounds after the first.
	RoundQueries []string

	// MaxRounds bounds the write-select-compress-isolate loop. Default 3.
	MaxRounds int

	// TokenizerModel selects the tiktoken encoding for token accounting.
	TokenizerModel string
}

func (c *Config) defaults() {
	if len(c.Namespace) == 0 {
		c.Namespace = []string{"context", "research"}
	}
	if c.Specialists == nil {
		c.Specialists = map[string]string{
			"technology": "analyze technical feasibility and implementation challenges",
			"education":  "evaluate learning impact and classroom applications",
			"business":   "analyze market outlook and commercial value",
		}
	}
	if len(c.RoundQueries) == 0 {
		c.RoundQueries = []string{
			"Analyze the main implementation challenges in detail",
			"Analyze the market outlook and commercial value",
			"Summarize the key findings and recommendations",
		}
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 3
	}
}

type workflow struct {
	cfg     Config
	counter *TokenCounter
}

// NewGraph builds the multi-round research workflow:
//
//	write_analysis -> research -> select_context -> compress_conversation
//	  -> compress_findings -> isolate_specialists -> (next round | END)
//
// The initial state must contain "research_topic"; "current_query" defaults
// to the topic.
func NewGraph(cfg Config) (*graph.Runnable, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("contextengineering: Config.Model is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("contextengineering: Config.Store is required")
	}
	cfg.defaults()

	w := &workflow{cfg: cfg, counter: NewTokenCounter(cfg.TokenizerModel)}

	g := graph.NewStateGraph()
	g.SetSchema(graph.NewMessageSchema().
		RegisterReducer("tool_results", graph.AppendReducer).
		RegisterReducer("processing_steps", graph.AppendReducer))

	g.AddNode("write_analysis", "Write analysis to state and memory", w.writeAnalysis)
	g.AddNode("research", "Run research tools", w.research)
	g.AddNode("select_context", "Select relevant context", w.selectContext)
	g.AddNode("compress_conversation", "Compress the conversation so far", w.compressConversation)
	g.AddNode("compress_findings", "Compress findings to key points", w.compressFindings)
	g.AddNode("isolate_specialists", "Run isolated specialist analyses", w.isolateSpecialists)
	g.AddNode("prepare_next_round", "Advance to the next round", w.prepareNextRound)

	g.SetEntryPoint("write_analysis")
	g.AddEdge("write_analysis", "research")
	g.AddEdge("research", "select_context")
	g.AddEdge("select_context", "compress_conversation")
	g.AddEdge("compress_conversation", "compress_findings")
	g.AddEdge("compress_findings", "isolate_specialists")
	g.AddConditionalEdge("isolate_specialists", w.route)
	g.AddEdge("prepare_next_round", "write_analysis")

	return g.Compile()
}

func (w *workflow) route(ctx context.Context, state graph.State) string {
	if round(state) < w.cfg.MaxRounds {
		return "prepare_next_round"
	}
	return graph.END
}

func (w *workflow) writeAnalysis(ctx context.Context, state graph.State) (any, error) {
	topic := topic(state)
	query := currentQuery(state)
	roundNum := round(state)

	prompt := fmt.Sprintf(`As a research assistant, analyze the topic %q.

Current query: %s
Round: %d

Provide:
1. Key concepts of the topic
2. Possible research directions
3. Focus areas to watch
4. Concrete suggestions for the current query`, topic, query, roundNum)

	analysis, err := llms.GenerateFromSinglePrompt(ctx, w.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("analysis generation failed: %w", err)
	}

	key := fmt.Sprintf("analysis_%s_round_%d", keyify(topic), roundNum)
	err = w.cfg.Store.Put(ctx, w.cfg.Namespace, key, map[string]any{
		"type":     "initial_analysis",
		"topic":    topic,
		"query":    query,
		"round":    roundNum,
		"analysis": analysis,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write analysis to memory: %w", err)
	}
	log.Debug("wrote analysis %s (%d chars)", key, len(analysis))

	return graph.State{
		"initial_analysis":   analysis,
		"conversation_round": roundNum,
		"processing_steps":   fmt.Sprintf("round %d: wrote initial analysis", roundNum),
		"messages":           llms.TextParts(llms.ChatMessageTypeAI, analysis),
	}, nil
}

func (w *workflow) research(ctx context.Context, state graph.State) (any, error) {
	query := currentQuery(state)
	roundNum := round(state)

	results := make([]any, 0, len(w.cfg.Tools))
	for i, t := range w.cfg.Tools {
		result, err := t.Call(ctx, query)
		if err != nil {
			log.Warn("tool %s failed: %v", t.Name(), err)
			result = fmt.Sprintf("Error: %v", err)
		}

		tr := ToolResult{Tool: t.Name(), Query: query, Result: result, Round: roundNum}
		results = append(results, tr)

		key := fmt.Sprintf("tool_result_%s_round_%d_call_%d", t.Name(), roundNum, i+1)
		putErr := w.cfg.Store.Put(ctx, w.cfg.Namespace, key, map[string]any{
			"type":   "tool_result",
			"tool":   tr.Tool,
			"query":  tr.Query,
			"result": tr.Result,
			"round":  tr.Round,
		})
		if putErr != nil {
			return nil, fmt.Errorf("failed to write tool result to memory: %w", putErr)
		}
	}

	return graph.State{
		"tool_results":     results,
		"processing_steps": fmt.Sprintf("round %d: ran %d research tools", roundNum, len(results)),
	}, nil
}

func (w *workflow) prepareNextRound(ctx context.Context, state graph.State) (any, error) {
	next := round(state) + 1

	query := "Provide a final summary"
	if next-2 >= 0 && next-2 < len(w.cfg.RoundQueries) {
		query = w.cfg.RoundQueries[next-2]
	}

	return graph.State{
		"conversation_round": next,
		"current_query":      query,
		"processing_steps":   fmt.Sprintf("starting round %d", next),
	}, nil
}

func topic(state graph.State) string {
	s, _ := state["research_topic"].(string)
	return s
}

func currentQuery(state graph.State) string {
	if s, ok := state["current_query"].(string); ok && s != "" {
		return s
	}
	return topic(state)
}

func round(state graph.State) int {
	if n, ok := state["conversation_round"].(int); ok && n > 0 {
		return n
	}
	return 1
}

func keyify(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
