package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Mermaid renders the graph as a mermaid flowchart, the same shape the
// framework's notebook tooling draws.
func (g *StateGraph) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("\t__start__([start])\n")
	sb.WriteString(fmt.Sprintf("\t__start__ --> %s\n", g.entryPoint))

	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		node := g.nodes[name]
		if node.Description != "" {
			sb.WriteString(fmt.Sprintf("\t%s[\"%s\"]\n", name, node.Description))
		} else {
			sb.WriteString(fmt.Sprintf("\t%s[%s]\n", name, name))
		}
	}
	sb.WriteString("\t__end__([end])\n")

	for _, edge := range g.edges {
		to := edge.To
		if to == END {
			to = "__end__"
		}
		sb.WriteString(fmt.Sprintf("\t%s --> %s\n", edge.From, to))
	}

	conditionals := make([]string, 0, len(g.conditionalEdges))
	for from := range g.conditionalEdges {
		conditionals = append(conditionals, from)
	}
	sort.Strings(conditionals)
	for _, from := range conditionals {
		sb.WriteString(fmt.Sprintf("\t%s -.-> __end__\n", from))
	}

	return sb.String()
}
