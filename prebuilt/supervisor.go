package prebuilt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

// CreateSupervisor creates a supervisor graph that orchestrates multiple
// worker agents. The supervisor picks the next worker with a forced "route"
// tool call, each worker runs and reports back, and the supervisor finishes
// by routing to FINISH.
func CreateSupervisor(model llms.Model, members map[string]*graph.Runnable) (*graph.Runnable, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("prebuilt: supervisor needs at least one member")
	}

	memberNames := make([]string, 0, len(members))
	for name := range members {
		memberNames = append(memberNames, name)
	}
	sort.Strings(memberNames)

	workflow := graph.NewMessageGraph()

	routeTool := llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "route",
			Description: "Select the next role.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"next": map[string]any{
						"type": "string",
						"enum": append(append([]string{}, memberNames...), "FINISH"),
					},
				},
				"required": []string{"next"},
			},
		},
	}

	systemPrompt := fmt.Sprintf(
		"You are a supervisor tasked with managing a conversation between the following workers: %s. "+
			"Given the following user request, respond with the worker to act next. Each worker will "+
			"perform a task and respond with their results and status. When finished, respond with FINISH. "+
			"You MUST use the 'route' tool to select the next worker or to finish. Do not provide any "+
			"other text response.",
		strings.Join(memberNames, ", "),
	)

	workflow.AddNode("supervisor", "Supervisor orchestration node", func(ctx context.Context, state graph.State) (any, error) {
		messages := graph.Messages(state)

		inputMessages := append(
			[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt)},
			messages...,
		)

		// Force the tool choice so the model cannot answer in free text.
		resp, err := model.GenerateContent(ctx, inputMessages,
			llms.WithTools([]llms.Tool{routeTool}),
			llms.WithToolChoice(llms.ToolChoice{
				Type:     "function",
				Function: &llms.FunctionReference{Name: "route"},
			}),
		)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("supervisor model returned no choices")
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			return nil, fmt.Errorf("supervisor did not select a next step")
		}

		var args struct {
			Next string `json:"next"`
		}
		if err := json.Unmarshal([]byte(choice.ToolCalls[0].FunctionCall.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse route arguments: %w", err)
		}

		return graph.State{"next": args.Next}, nil
	})

	for name, member := range members {
		agent := member
		workflow.AddNode(name, "Agent: "+name, func(ctx context.Context, state graph.State) (any, error) {
			result, err := agent.Invoke(ctx, state)
			if err != nil {
				return nil, err
			}
			// Only the member's new messages flow back into shared state.
			return graph.State{"messages": diffMessages(graph.Messages(state), graph.Messages(result))}, nil
		})
		workflow.AddEdge(name, "supervisor")
	}

	workflow.SetEntryPoint("supervisor")
	workflow.AddConditionalEdge("supervisor", func(ctx context.Context, state graph.State) string {
		next, ok := state["next"].(string)
		if !ok || next == "FINISH" {
			return graph.END
		}
		return next
	})

	return workflow.Compile()
}

// diffMessages returns the suffix of after that was appended beyond before.
func diffMessages(before, after []llms.MessageContent) []llms.MessageContent {
	if len(after) <= len(before) {
		return nil
	}
	return after[len(before):]
}
