package prebuilt

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
)

// TeamConfig configures the research/write/review collaboration agent.
type TeamConfig struct {
	// Model powers all three roles.
	Model llms.Model

	// MaxRevisions bounds how many times the reviewer may send the draft
	// back to the writer. Default 3.
	MaxRevisions int
}

const teamApprovalMarker = "APPROVED"

// CreateTeamAgent creates a three-role collaboration graph:
//
//	researcher -> writer -> reviewer -> (writer | END)
//
// The researcher gathers findings for the task, the writer drafts content
// from them, and the reviewer either approves the draft (setting
// "final_output") or sends feedback back to the writer.
func CreateTeamAgent(cfg TeamConfig) (*graph.Runnable, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("prebuilt: TeamConfig.Model is required")
	}
	if cfg.MaxRevisions <= 0 {
		cfg.MaxRevisions = 3
	}

	workflow := graph.NewStateGraph()

	workflow.AddNode("researcher", "Collect and analyze information", func(ctx context.Context, state graph.State) (any, error) {
		task, _ := state["task"].(string)

		research, err := roleCall(ctx, cfg.Model,
			"You are a professional researcher. Collect and analyze information about the given "+
				"topic. Provide detailed findings including key points and important data.",
			"Research the following topic: "+task)
		if err != nil {
			return nil, fmt.Errorf("research step failed: %w", err)
		}
		return graph.State{"research": research}, nil
	})

	workflow.AddNode("writer", "Draft content from research", func(ctx context.Context, state graph.State) (any, error) {
		task, _ := state["task"].(string)
		research, _ := state["research"].(string)
		feedback, _ := state["feedback"].(string)

		user := fmt.Sprintf("Task: %s\n\nResearch findings: %s", task, research)
		if feedback != "" {
			user += "\n\nReviewer feedback on the previous draft: " + feedback
		}

		draft, err := roleCall(ctx, cfg.Model,
			"You are a professional content writer. Based on the research findings, write clear, "+
				"well-structured content. Focus on logic and readability.",
			user)
		if err != nil {
			return nil, fmt.Errorf("writing step failed: %w", err)
		}
		return graph.State{"draft": draft}, nil
	})

	workflow.AddNode("reviewer", "Review the draft", func(ctx context.Context, state graph.State) (any, error) {
		task, _ := state["task"].(string)
		draft, _ := state["draft"].(string)
		revisions, _ := state["revisions"].(int)

		feedback, err := roleCall(ctx, cfg.Model,
			"You are a strict content reviewer. Check the content for accuracy, completeness and "+
				"quality. If the content is satisfactory, reply with the single word "+
				teamApprovalMarker+". Otherwise give concrete improvement suggestions.",
			fmt.Sprintf("Task: %s\n\nCurrent content: %s", task, draft))
		if err != nil {
			return nil, fmt.Errorf("review step failed: %w", err)
		}

		update := graph.State{
			"feedback":  feedback,
			"revisions": revisions + 1,
		}
		if strings.Contains(feedback, teamApprovalMarker) {
			update["final_output"] = draft
		}
		return update, nil
	})

	workflow.SetEntryPoint("researcher")
	workflow.AddEdge("researcher", "writer")
	workflow.AddEdge("writer", "reviewer")
	workflow.AddConditionalEdge("reviewer", func(ctx context.Context, state graph.State) string {
		if out, _ := state["final_output"].(string); out != "" {
			return graph.END
		}
		if revisions, _ := state["revisions"].(int); revisions >= cfg.MaxRevisions {
			return graph.END
		}
		return "writer"
	})

	return workflow.Compile()
}

func roleCall(ctx context.Context, model llms.Model, system, user string) (string, error) {
	resp, err := model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
