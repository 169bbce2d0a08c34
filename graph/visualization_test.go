package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMermaid(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("plan", "Plan the work", func(ctx context.Context, state State) (any, error) { return nil, nil })
	g.AddNode("execute", "", func(ctx context.Context, state State) (any, error) { return nil, nil })
	g.AddEdge("plan", "execute")
	g.AddEdge("execute", END)
	g.AddConditionalEdge("execute", func(ctx context.Context, state State) string { return END })
	g.SetEntryPoint("plan")

	out := g.Mermaid()

	assert.True(t, strings.HasPrefix(out, "graph TD"), out)
	assert.Contains(t, out, "__start__ --> plan")
	assert.Contains(t, out, `plan["Plan the work"]`)
	assert.Contains(t, out, "plan --> execute")
	assert.Contains(t, out, "execute --> __end__")
	assert.Contains(t, out, "execute -.-> __end__")
}
