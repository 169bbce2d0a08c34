// Package graph implements a compact state graph runtime: nodes operate on a
// shared map state, updates flow through per-key reducers, supersteps fan out
// in parallel, and execution can be interrupted, resumed, streamed and
// checkpointed.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// END is the special node name marking the end of execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrMaxStepsExceeded is returned when execution runs longer than the
	// configured step budget.
	ErrMaxStepsExceeded = errors.New("max steps exceeded")
)

// State is the shared graph state.
type State = map[string]any

// NodeFunc is a node body. It receives the current state and returns a state
// update (merged through the schema) or a *Command.
type NodeFunc func(ctx context.Context, state State) (any, error)

// Node is a named unit of work in the graph.
type Node struct {
	Name        string
	Description string
	Function    NodeFunc
}

// Edge is a static transition between two nodes.
type Edge struct {
	From string
	To   string
}

// Condition picks the next node based on the current state.
type Condition func(ctx context.Context, state State) string

// Command lets a node both update state and steer execution.
type Command struct {
	// Update is merged into the state like a regular node result.
	Update State

	// Goto overrides static and conditional edges. It may be a node name
	// or a list of node names for fan-out.
	Goto any
}

// NodeInterrupt is raised inside a node (via Interrupt) to pause execution
// and hand control to a human.
type NodeInterrupt struct {
	// Node is filled in by the runtime.
	Node string
	// Value is the payload shown to the human (e.g. a question, or partial
	// output so far).
	Value any
}

func (e *NodeInterrupt) Error() string {
	return fmt.Sprintf("interrupt at node %s: %v", e.Node, e.Value)
}

// GraphInterrupt is returned from Invoke when execution pauses, either by
// configuration (InterruptBefore/InterruptAfter) or by a dynamic Interrupt
// call inside a node.
type GraphInterrupt struct {
	// Node that caused the interruption.
	Node string
	// State at the time of interruption.
	State State
	// NextNodes to resume from.
	NextNodes []string
	// InterruptValue is the payload of a dynamic interrupt, if any.
	InterruptValue any
}

func (e *GraphInterrupt) Error() string {
	if e.InterruptValue != nil {
		return fmt.Sprintf("graph interrupted at node %s with value: %v", e.Node, e.InterruptValue)
	}
	return fmt.Sprintf("graph interrupted at node %s", e.Node)
}

// Interrupt pauses execution and waits for input. When the graph is resumed
// with a resume value, the same call returns that value instead.
func Interrupt(ctx context.Context, value any) (any, error) {
	if resumeVal := ResumeValue(ctx); resumeVal != nil {
		return resumeVal, nil
	}
	return nil, &NodeInterrupt{Value: value}
}
