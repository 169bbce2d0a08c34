package memoryagent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/store"
)

// upsertMemoryArgs is the argument payload the model emits for the
// upsert_memory tool.
type upsertMemoryArgs struct {
	// Content is the main content of the memory,
	// e.g. "User expressed interest in learning about French."
	Content string `json:"content"`

	// Context is additional relevant context for the memory,
	// e.g. "This was mentioned while discussing career options in Europe."
	Context string `json:"context"`

	// MemoryID, when set, updates an existing memory instead of creating
	// a new one.
	MemoryID string `json:"memory_id,omitempty"`
}

// UpsertMemory inserts or updates a memory in the user's namespace and
// returns a confirmation string for the tool result message.
func UpsertMemory(ctx context.Context, st store.Store, userID string, args upsertMemoryArgs) (string, error) {
	memoryID := args.MemoryID
	if memoryID == "" {
		memoryID = uuid.New().String()
	}

	err := st.Put(ctx, []string{"memories", userID}, memoryID, map[string]any{
		"content": args.Content,
		"context": args.Context,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store memory: %w", err)
	}
	return fmt.Sprintf("Stored memory %s", memoryID), nil
}

// upsertMemoryTool is the tool definition bound to the chat model.
var upsertMemoryTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name: "upsert_memory",
		Description: "Upsert a memory in the database. If a memory conflicts with an existing " +
			"one, update the existing one by passing in memory_id instead of creating a duplicate. " +
			"If the user corrects a memory, update it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The main content of the memory.",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "Additional context for the memory.",
				},
				"memory_id": map[string]any{
					"type":        "string",
					"description": "The memory to overwrite. Only provide if updating an existing memory.",
				},
			},
			"required":             []string{"content", "context"},
			"additionalProperties": false,
		},
	},
}

func parseUpsertMemoryArgs(raw string) (upsertMemoryArgs, error) {
	var args upsertMemoryArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return args, fmt.Errorf("invalid upsert_memory arguments: %w", err)
	}
	return args, nil
}
