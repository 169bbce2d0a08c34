package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTwoStepGraph(t *testing.T) *Runnable {
	t.Helper()
	g := NewStateGraph()
	g.AddNode("first", "", func(ctx context.Context, state State) (any, error) {
		return State{"first": true}, nil
	})
	g.AddNode("second", "", func(ctx context.Context, state State) (any, error) {
		return State{"second": true}, nil
	})
	g.AddEdge("first", "second")
	g.AddEdge("second", END)
	g.SetEntryPoint("first")

	runnable, err := g.Compile()
	require.NoError(t, err)
	return runnable
}

func TestInterruptBefore(t *testing.T) {
	runnable := buildTwoStepGraph(t)

	state, err := runnable.InvokeWithConfig(context.Background(), State{}, WithInterruptBefore("second"))

	var interrupt *GraphInterrupt
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "second", interrupt.Node)
	assert.Equal(t, true, state["first"])
	assert.Nil(t, state["second"])

	// Resume from the interrupted node.
	resumed, err := runnable.InvokeWithConfig(context.Background(), state, &Config{
		ResumeFrom: interrupt.NextNodes,
	})
	require.NoError(t, err)
	assert.Equal(t, true, resumed["second"])
}

func TestInterruptAfter(t *testing.T) {
	runnable := buildTwoStepGraph(t)

	state, err := runnable.InvokeWithConfig(context.Background(), State{}, WithInterruptAfter("first"))

	var interrupt *GraphInterrupt
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "first", interrupt.Node)
	assert.Equal(t, true, state["first"])
	assert.Equal(t, []string{"second"}, interrupt.NextNodes)
}

func TestDynamicInterruptAndResume(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("ask", "", func(ctx context.Context, state State) (any, error) {
		answer, err := Interrupt(ctx, "what is your name?")
		if err != nil {
			return nil, err
		}
		return State{"name": answer}, nil
	})
	g.AddEdge("ask", END)
	g.SetEntryPoint("ask")

	runnable, err := g.Compile()
	require.NoError(t, err)

	state, err := runnable.Invoke(context.Background(), State{})

	var interrupt *GraphInterrupt
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "ask", interrupt.Node)
	assert.Equal(t, "what is your name?", interrupt.InterruptValue)

	resumed, err := runnable.InvokeWithConfig(context.Background(), state, &Config{
		ResumeFrom:  interrupt.NextNodes,
		ResumeValue: "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", resumed["name"])
}

func TestResumeValueDoesNotLeakToLaterSteps(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("ask1", "", func(ctx context.Context, state State) (any, error) {
		answer, err := Interrupt(ctx, "q1")
		if err != nil {
			return nil, err
		}
		return State{"a1": answer}, nil
	})
	g.AddNode("ask2", "", func(ctx context.Context, state State) (any, error) {
		answer, err := Interrupt(ctx, "q2")
		if err != nil {
			return nil, err
		}
		return State{"a2": answer}, nil
	})
	g.AddEdge("ask1", "ask2")
	g.AddEdge("ask2", END)
	g.SetEntryPoint("ask1")

	runnable, err := g.Compile()
	require.NoError(t, err)

	// First run interrupts at ask1.
	state, err := runnable.Invoke(context.Background(), State{})
	var interrupt *GraphInterrupt
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "ask1", interrupt.Node)

	// Resuming with an answer for ask1 must interrupt again at ask2
	// instead of reusing the same resume value.
	state, err = runnable.InvokeWithConfig(context.Background(), state, &Config{
		ResumeFrom:  interrupt.NextNodes,
		ResumeValue: "answer-1",
	})
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "ask2", interrupt.Node)
	assert.Equal(t, "answer-1", state["a1"])

	state, err = runnable.InvokeWithConfig(context.Background(), state, &Config{
		ResumeFrom:  interrupt.NextNodes,
		ResumeValue: "answer-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "answer-2", state["a2"])
}
