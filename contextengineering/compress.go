package contextengineering

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
)

// compressConversation summarizes the round's accumulated context into a
// short summary and records token savings.
func (w *workflow) compressConversation(ctx context.Context, state graph.State) (any, error) {
	roundNum := round(state)
	long := w.contextDump(state)

	prompt := fmt.Sprintf(`Compress the following conversation history into a concise summary, preserving key information:

%s

Provide a short but complete summary that keeps every important decision and finding.`, long)

	summary, err := llms.GenerateFromSinglePrompt(ctx, w.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("conversation compression failed: %w", err)
	}

	before := w.counter.Count(long)
	after := w.counter.Count(summary)
	log.Debug("compressed conversation: %d -> %d tokens", before, after)

	return graph.State{
		"conversation_summary": summary,
		"token_usage": map[string]int{
			"before_compression": before,
			"after_compression":  after,
		},
		"processing_steps": fmt.Sprintf("round %d: compressed conversation (%d -> %d tokens)", roundNum, before, after),
	}, nil
}

// compressFindings distills the findings into a handful of key points.
func (w *workflow) compressFindings(ctx context.Context, state graph.State) (any, error) {
	roundNum := round(state)

	findings := fmt.Sprintf(`Detailed research findings:

Initial analysis: %s

Conversation summary: %s

Selected memories: %d relevant records`,
		stringValue(state, "initial_analysis"),
		stringValue(state, "conversation_summary"),
		len(selectedMemories(state)),
	)

	prompt := fmt.Sprintf(`Compress the following research findings into their core points:

%s

Extract the 3-5 most important findings, one sentence each.`, findings)

	compressed, err := llms.GenerateFromSinglePrompt(ctx, w.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("findings compression failed: %w", err)
	}

	return graph.State{
		"compressed_findings": compressed,
		"processing_steps":    fmt.Sprintf("round %d: compressed findings", roundNum),
	}, nil
}

// contextDump renders the state pieces the compression step works from.
func (w *workflow) contextDump(state graph.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research topic: %s\n", topic(state))
	fmt.Fprintf(&sb, "Current query: %s\n", currentQuery(state))
	fmt.Fprintf(&sb, "Initial analysis: %s\n", stringValue(state, "initial_analysis"))

	if results, ok := state["tool_results"].([]any); ok {
		for _, r := range results {
			if tr, ok := r.(ToolResult); ok {
				fmt.Fprintf(&sb, "Tool %s(%s): %s\n", tr.Tool, tr.Query, tr.Result)
			}
		}
	}

	for _, mem := range selectedMemories(state) {
		fmt.Fprintf(&sb, "Memory %s: %s\n", mem.Key, mem.Content)
	}
	return sb.String()
}

func stringValue(state graph.State, key string) string {
	s, _ := state[key].(string)
	return s
}

func selectedMemories(state graph.State) []SelectedMemory {
	mems, _ := state["selected_memories"].([]SelectedMemory)
	return mems
}
