package prebuilt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
)

// PlanExecuteConfig configures the plan-and-execute agent.
type PlanExecuteConfig struct {
	// Model plans, executes and replans.
	Model llms.Model

	// SearchTool, when set, executes plan steps that mention searching.
	SearchTool tools.Tool

	// MaxSteps bounds how many plan steps may execute. Default 5.
	MaxSteps int

	// MaxReplans bounds replanning rounds. Default 3.
	MaxReplans int
}

func (c *PlanExecuteConfig) defaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 5
	}
	if c.MaxReplans <= 0 {
		c.MaxReplans = 3
	}
}

// PastStep records one executed plan step and its result.
type PastStep struct {
	Step   string `json:"step"`
	Result string `json:"result"`
}

const plannerPrompt = `You are a task planning expert. Create an execution plan for the user's goal.
Return ONLY JSON in exactly this shape, with no other text:

{
    "steps": [
        "first step",
        "second step",
        "third step"
    ]
}

The plan should:
1. Contain independent, executable steps
2. Avoid redundant steps
3. End with a step that draws the final conclusion`

const replannerPromptTemplate = `You are a task planning expert. Update the plan based on the executed steps.

Goal: %s

Original plan: %s

Executed steps: %s

Return ONLY JSON in exactly one of these shapes, with no other text.

If enough information has been collected to answer:
{
    "action": {
        "response": "the complete answer..."
    }
}

If execution should continue:
{
    "action": {
        "steps": [
            "next concrete task 1",
            "next concrete task 2"
        ]
    }
}`

// CreatePlanExecuteAgent creates a plan-and-execute agent graph:
//
//	planner -> agent -> replan -> (agent | END)
//
// The planner emits a JSON step list, the agent executes the first step
// (through SearchTool for search-like steps), and the replanner either
// returns the final response or a revised plan.
func CreatePlanExecuteAgent(cfg PlanExecuteConfig) (*graph.Runnable, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("prebuilt: PlanExecuteConfig.Model is required")
	}
	cfg.defaults()

	workflow := graph.NewStateGraph()
	workflow.SetSchema(graph.NewSchema().RegisterReducer("past_steps", graph.AppendReducer))

	workflow.AddNode("planner", "Create the initial plan", func(ctx context.Context, state graph.State) (any, error) {
		input, _ := state["input"].(string)

		content, err := llms.GenerateFromSinglePrompt(ctx, cfg.Model, plannerPrompt+"\n\nGoal: "+input)
		if err != nil {
			return nil, fmt.Errorf("planning failed: %w", err)
		}

		var plan struct {
			Steps []string `json:"steps"`
		}
		if err := json.Unmarshal([]byte(extractJSON(content)), &plan); err != nil || len(plan.Steps) == 0 {
			log.Warn("planner returned unparseable plan, using the goal as a single step")
			plan.Steps = []string{input}
		}
		return graph.State{"plan": plan.Steps}, nil
	})

	workflow.AddNode("agent", "Execute the current plan step", func(ctx context.Context, state graph.State) (any, error) {
		plan := planSteps(state)
		if len(plan) == 0 {
			return nil, fmt.Errorf("no plan steps to execute")
		}
		task := plan[0]

		var result string
		var err error
		if cfg.SearchTool != nil && looksLikeSearch(task) {
			result, err = cfg.SearchTool.Call(ctx, task)
			if err != nil {
				log.Warn("search failed, falling back to the model: %v", err)
				result, err = llms.GenerateFromSinglePrompt(ctx, cfg.Model,
					"The search tool failed. Answer from your own knowledge:\n"+task)
			}
		} else {
			prompt := fmt.Sprintf("For the following plan:\n%s\n\nExecute step 1: %s",
				strings.Join(plan, "\n"), task)
			result, err = llms.GenerateFromSinglePrompt(ctx, cfg.Model, prompt)
		}
		if err != nil {
			return nil, fmt.Errorf("step execution failed: %w", err)
		}

		return graph.State{
			"past_steps": PastStep{Step: task, Result: result},
			"plan":       plan[1:],
		}, nil
	})

	workflow.AddNode("replan", "Revise the plan or answer", func(ctx context.Context, state graph.State) (any, error) {
		replans, _ := state["replan_count"].(int)
		if replans >= cfg.MaxReplans {
			return graph.State{"response": "Stopped after too many replanning rounds."}, nil
		}

		input, _ := state["input"].(string)
		prompt := fmt.Sprintf(replannerPromptTemplate,
			input, strings.Join(planSteps(state), "; "), formatPastSteps(state))

		content, err := cfg.Model.GenerateContent(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		})
		if err != nil {
			return nil, fmt.Errorf("replanning failed: %w", err)
		}
		if len(content.Choices) == 0 {
			return nil, fmt.Errorf("replanner model returned no choices")
		}

		var action struct {
			Action struct {
				Response string   `json:"response"`
				Steps    []string `json:"steps"`
			} `json:"action"`
		}
		if err := json.Unmarshal([]byte(extractJSON(content.Choices[0].Content)), &action); err != nil {
			// Unparseable replan output: run whatever plan remains.
			if len(planSteps(state)) == 0 {
				return graph.State{"response": content.Choices[0].Content}, nil
			}
			return graph.State{"replan_count": replans + 1}, nil
		}

		if action.Action.Response != "" {
			return graph.State{"response": action.Action.Response}, nil
		}
		if len(action.Action.Steps) > 0 {
			return graph.State{"plan": action.Action.Steps, "replan_count": replans + 1}, nil
		}
		return graph.State{"replan_count": replans + 1}, nil
	})

	workflow.SetEntryPoint("planner")
	workflow.AddEdge("planner", "agent")
	workflow.AddEdge("agent", "replan")
	workflow.AddConditionalEdge("replan", func(ctx context.Context, state graph.State) string {
		if response, _ := state["response"].(string); response != "" {
			return graph.END
		}
		if steps, _ := state["past_steps"].([]any); len(steps) >= cfg.MaxSteps {
			return graph.END
		}
		if len(planSteps(state)) == 0 {
			return graph.END
		}
		return "agent"
	})

	return workflow.Compile()
}

func planSteps(state graph.State) []string {
	steps, _ := state["plan"].([]string)
	return steps
}

func formatPastSteps(state graph.State) string {
	steps, _ := state["past_steps"].([]any)
	var sb strings.Builder
	for _, s := range steps {
		if ps, ok := s.(PastStep); ok {
			fmt.Fprintf(&sb, "%s -> %s\n", ps.Step, ps.Result)
		}
	}
	return sb.String()
}

func looksLikeSearch(task string) bool {
	lower := strings.ToLower(task)
	return strings.Contains(lower, "search") || strings.Contains(lower, "look up") ||
		strings.Contains(lower, "query") || strings.Contains(lower, "find")
}

// extractJSON strips markdown fences and surrounding prose from a model
// response that should contain a JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
