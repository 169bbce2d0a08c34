package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSteps bounds a single invocation when Config.MaxSteps is unset.
const DefaultMaxSteps = 100

// BackoffStrategy selects the delay curve between retries.
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	ExponentialBackoff
	LinearBackoff
)

// RetryPolicy defines how node failures are retried.
type RetryPolicy struct {
	MaxRetries      int
	BackoffStrategy BackoffStrategy
	BaseDelay       time.Duration // default 1s
	RetryableErrors []string      // substrings; empty means retry nothing
}

// StateGraph is a buildable graph of named nodes and edges.
type StateGraph struct {
	nodes            map[string]Node
	edges            []Edge
	conditionalEdges map[string]Condition
	entryPoint       string
	retryPolicy      *RetryPolicy
	schema           *Schema
}

// NewStateGraph creates an empty graph with a plain overwrite schema.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:            make(map[string]Node),
		conditionalEdges: make(map[string]Condition),
		schema:           NewSchema(),
	}
}

// NewMessageGraph creates a graph whose "messages" key accumulates chat
// messages.
func NewMessageGraph() *StateGraph {
	g := NewStateGraph()
	g.SetSchema(NewMessageSchema())
	return g
}

// AddNode registers a node.
func (g *StateGraph) AddNode(name, description string, fn NodeFunc) {
	g.nodes[name] = Node{Name: name, Description: description, Function: fn}
}

// AddEdge adds a static edge. Multiple edges from one node fan out.
func (g *StateGraph) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge routes from a node through a runtime condition.
func (g *StateGraph) AddConditionalEdge(from string, condition Condition) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the node execution starts from.
func (g *StateGraph) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy applied to every node.
func (g *StateGraph) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetSchema replaces the state schema.
func (g *StateGraph) SetSchema(schema *Schema) {
	g.schema = schema
}

// Schema returns the graph's state schema.
func (g *StateGraph) Schema() *Schema {
	return g.schema
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph) Compile() (*Runnable, error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	return &Runnable{graph: g}, nil
}

// Runnable is a compiled graph ready for execution.
type Runnable struct {
	graph *StateGraph
}

// Graph returns the underlying graph.
func (r *Runnable) Graph() *StateGraph {
	return r.graph
}

// Invoke executes the graph to completion.
func (r *Runnable) Invoke(ctx context.Context, initialState State) (State, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the graph with per-invocation configuration.
// On interruption it returns the state so far together with a *GraphInterrupt.
func (r *Runnable) InvokeWithConfig(ctx context.Context, initialState State, config *Config) (State, error) {
	state := initialState
	if state == nil {
		state = r.graph.schema.Init()
	}

	currentNodes := []string{r.graph.entryPoint}
	maxSteps := DefaultMaxSteps

	if config != nil {
		ctx = WithConfig(ctx, config)
		if len(config.ResumeFrom) > 0 {
			currentNodes = config.ResumeFrom
		}
		if config.ResumeValue != nil {
			ctx = WithResumeValue(ctx, config.ResumeValue)
		}
		if config.MaxSteps > 0 {
			maxSteps = config.MaxSteps
		}
	}

	for step := 0; len(currentNodes) > 0; step++ {
		if step >= maxSteps {
			return state, fmt.Errorf("%w (%d)", ErrMaxStepsExceeded, maxSteps)
		}

		activeNodes := currentNodes[:0:0]
		for _, node := range currentNodes {
			if node != END {
				activeNodes = append(activeNodes, node)
			}
		}
		currentNodes = activeNodes
		if len(currentNodes) == 0 {
			break
		}

		if config != nil && len(config.InterruptBefore) > 0 {
			for _, node := range currentNodes {
				if slices.Contains(config.InterruptBefore, node) {
					return state, &GraphInterrupt{Node: node, State: state, NextNodes: currentNodes}
				}
			}
		}

		results, errorsList := r.executeParallel(ctx, currentNodes, state)

		for _, err := range errorsList {
			if err == nil {
				continue
			}
			var nodeInterrupt *NodeInterrupt
			if errors.As(err, &nodeInterrupt) {
				return state, &GraphInterrupt{
					Node:           nodeInterrupt.Node,
					State:          state,
					NextNodes:      []string{nodeInterrupt.Node},
					InterruptValue: nodeInterrupt.Value,
				}
			}
			return nil, err
		}

		updates, gotoNodes := splitCommands(results)

		var err error
		state, err = r.mergeState(state, updates)
		if err != nil {
			return nil, err
		}

		nextNodes, err := r.nextNodes(ctx, currentNodes, state, gotoNodes)
		if err != nil {
			return nil, err
		}

		nodesRan := slices.Clone(currentNodes)
		currentNodes = nextNodes

		if config != nil {
			for _, listener := range config.OnStep {
				listener(ctx, stepName(nodesRan), state)
			}

			if len(config.InterruptAfter) > 0 {
				for _, node := range nodesRan {
					if slices.Contains(config.InterruptAfter, node) {
						return state, &GraphInterrupt{Node: node, State: state, NextNodes: nextNodes}
					}
				}
			}
		}

		// After a resume step the resume value must not leak into later
		// Interrupt calls.
		ctx = WithResumeValue(ctx, nil)
	}

	return state, nil
}

func stepName(nodes []string) string {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return fmt.Sprintf("step:[%s]", strings.Join(nodes, " "))
}

// executeParallel runs one superstep: every active node in its own goroutine.
func (r *Runnable) executeParallel(ctx context.Context, nodes []string, state State) ([]any, []error) {
	var wg sync.WaitGroup
	results := make([]any, len(nodes))
	errorsList := make([]error, len(nodes))

	for i, nodeName := range nodes {
		node, ok := r.graph.nodes[nodeName]
		if !ok {
			errorsList[i] = fmt.Errorf("%w: %s", ErrNodeNotFound, nodeName)
			continue
		}

		idx := i
		name := nodeName
		n := node

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					errorsList[idx] = fmt.Errorf("panic in node %s: %v", name, p)
				}
			}()

			res, err := r.executeWithRetry(ctx, n, state)
			if err != nil {
				var nodeInterrupt *NodeInterrupt
				if errors.As(err, &nodeInterrupt) {
					nodeInterrupt.Node = name
					errorsList[idx] = err
					return
				}
				errorsList[idx] = fmt.Errorf("error in node %s: %w", name, err)
				return
			}
			results[idx] = res
		}()
	}
	wg.Wait()
	return results, errorsList
}

func (r *Runnable) executeWithRetry(ctx context.Context, node Node, state State) (any, error) {
	policy := r.graph.retryPolicy
	attempts := 1
	if policy != nil {
		attempts = policy.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := node.Function(ctx, state)
		if err == nil {
			return res, nil
		}
		lastErr = err

		// Interrupts propagate immediately.
		var nodeInterrupt *NodeInterrupt
		if errors.As(err, &nodeInterrupt) {
			return nil, err
		}

		if policy == nil || attempt == attempts-1 || !policy.retryable(err) {
			break
		}

		select {
		case <-time.After(policy.delay(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (p *RetryPolicy) retryable(err error) bool {
	msg := err.Error()
	for _, pattern := range p.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (p *RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	switch p.BackoffStrategy {
	case ExponentialBackoff:
		return base * time.Duration(1<<attempt)
	case LinearBackoff:
		return base * time.Duration(attempt+1)
	default:
		return base
	}
}

// splitCommands separates plain state updates from Command results.
func splitCommands(results []any) ([]State, []string) {
	var gotoNodes []string
	updates := make([]State, 0, len(results))

	for _, res := range results {
		switch t := res.(type) {
		case nil:
		case *Command:
			if t.Update != nil {
				updates = append(updates, t.Update)
			}
			switch g := t.Goto.(type) {
			case string:
				gotoNodes = append(gotoNodes, g)
			case []string:
				gotoNodes = append(gotoNodes, g...)
			}
		case State:
			updates = append(updates, t)
		default:
			// Nodes must return State or *Command; anything else is a
			// programming error surfaced as an empty update.
		}
	}
	return updates, gotoNodes
}

func (r *Runnable) mergeState(current State, updates []State) (State, error) {
	state := current
	for _, update := range updates {
		var err error
		state, err = r.graph.schema.Update(state, update)
		if err != nil {
			return nil, fmt.Errorf("schema update failed: %w", err)
		}
	}
	return state, nil
}

func (r *Runnable) nextNodes(ctx context.Context, currentNodes []string, state State, gotoNodes []string) ([]string, error) {
	if len(gotoNodes) > 0 {
		// Command.Goto overrides edges; deduplicate and drop END.
		seen := make(map[string]bool)
		var next []string
		for _, n := range gotoNodes {
			if n != END && !seen[n] {
				seen[n] = true
				next = append(next, n)
			}
		}
		return next, nil
	}

	nextSet := make(map[string]bool)
	for _, nodeName := range currentNodes {
		if condition, ok := r.graph.conditionalEdges[nodeName]; ok {
			next := condition(ctx, state)
			if next == "" {
				return nil, fmt.Errorf("conditional edge returned empty next node from %s", nodeName)
			}
			nextSet[next] = true
			continue
		}

		found := false
		for _, edge := range r.graph.edges {
			if edge.From == nodeName {
				nextSet[edge.To] = true
				found = true
				// No break: multiple edges from one node fan out.
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, nodeName)
		}
	}

	next := make([]string, 0, len(nextSet))
	for node := range nextSet {
		next = append(next, node)
	}
	slices.Sort(next)
	return next, nil
}
