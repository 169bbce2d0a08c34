package contextengineering

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/tools"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
)

const maxSelectedMemories = 10

// SelectedMemory is one memory chosen for the current round's context.
type SelectedMemory struct {
	Key     string         `json:"key"`
	Type    string         `json:"type"`
	Round   any            `json:"round"`
	Value   map[string]any `json:"value"`
	Score   float64        `json:"score"`
	Content string         `json:"content"`
}

// selectContext picks relevant context from long-term memory and the round's
// tool results, and chooses which tools fit the current query.
func (w *workflow) selectContext(ctx context.Context, state graph.State) (any, error) {
	query := currentQuery(state)
	roundNum := round(state)

	items, err := w.cfg.Store.Search(ctx, w.cfg.Namespace, query, maxSelectedMemories)
	if err != nil {
		return nil, fmt.Errorf("memory search failed: %w", err)
	}

	selected := make([]SelectedMemory, 0, len(items))
	for _, item := range items {
		memType, _ := item.Value["type"].(string)
		selected = append(selected, SelectedMemory{
			Key:     item.Key,
			Type:    memType,
			Round:   item.Value["round"],
			Value:   item.Value,
			Score:   item.Score,
			Content: preview(fmt.Sprintf("%v", item.Value), 150),
		})
	}
	log.Debug("selected %d memories for round %d", len(selected), roundNum)

	return graph.State{
		"selected_memories": selected,
		"relevant_tools":    SelectTools(w.cfg.Tools, query),
		"processing_steps":  fmt.Sprintf("round %d: selected %d memories", roundNum, len(selected)),
	}, nil
}

// SelectTools returns the names of tools whose name or description shares
// terms with the query, keeping all tools when nothing matches.
func SelectTools(available []tools.Tool, query string) []string {
	terms := strings.Fields(strings.ToLower(query))

	var matched []string
	for _, t := range available {
		haystack := strings.ToLower(t.Name() + " " + t.Description())
		for _, term := range terms {
			if len(term) >= 3 && strings.Contains(haystack, term) {
				matched = append(matched, t.Name())
				break
			}
		}
	}

	if len(matched) == 0 {
		for _, t := range available {
			matched = append(matched, t.Name())
		}
	}
	return matched
}

// preview truncates s to at most n runes, never splitting a multi-byte
// character.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
