package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(ch <-chan StreamEvent) []StreamEvent {
	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestStreamEmitsStepsAndDone(t *testing.T) {
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

	events := collectEvents(runnable.Stream(context.Background(), State{}, nil))
	require.Len(t, events, 3)

	assert.Equal(t, StreamEventStep, events[0].Type)
	assert.Equal(t, "first", events[0].NodeName)
	assert.Equal(t, true, events[0].State["first"])

	assert.Equal(t, StreamEventStep, events[1].Type)
	assert.Equal(t, "second", events[1].NodeName)

	assert.Equal(t, StreamEventDone, events[2].Type)
	assert.Equal(t, true, events[2].State["second"])
}

func TestStreamDoesNotMutateCallerConfig(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("only", "", func(ctx context.Context, state State) (any, error) {
		return State{"ran": true}, nil
	})
	g.AddEdge("only", END)
	g.SetEntryPoint("only")

	runnable, err := g.Compile()
	require.NoError(t, err)

	var seen int
	config := &Config{
		OnStep: []StepListener{func(ctx context.Context, nodeName string, state State) {
			seen++
		}},
	}

	events := collectEvents(runnable.Stream(context.Background(), State{}, config))
	require.Len(t, events, 2)
	assert.Len(t, config.OnStep, 1)
	assert.Equal(t, 1, seen)

	// A second run over the same config must not replay the first run's
	// stream listener.
	events = collectEvents(runnable.Stream(context.Background(), State{}, config))
	require.Len(t, events, 2)
	assert.Len(t, config.OnStep, 1)
	assert.Equal(t, 2, seen)
}

func TestStreamEmitsInterrupt(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("ask", "", func(ctx context.Context, state State) (any, error) {
		_, err := Interrupt(ctx, "need input")
		return nil, err
	})
	g.AddEdge("ask", END)
	g.SetEntryPoint("ask")

	runnable, err := g.Compile()
	require.NoError(t, err)

	events := collectEvents(runnable.Stream(context.Background(), State{}, nil))
	require.Len(t, events, 1)

	assert.Equal(t, StreamEventInterrupt, events[0].Type)
	assert.Equal(t, "ask", events[0].NodeName)
	require.NotNil(t, events[0].Interrupt)
	assert.Equal(t, "need input", events[0].Interrupt.InterruptValue)
}

func TestStreamEmitsError(t *testing.T) {
	boom := errors.New("boom")
	g := NewStateGraph()
	g.AddNode("fail", "", func(ctx context.Context, state State) (any, error) {
		return nil, boom
	})
	g.AddEdge("fail", END)
	g.SetEntryPoint("fail")

	runnable, err := g.Compile()
	require.NoError(t, err)

	events := collectEvents(runnable.Stream(context.Background(), State{}, nil))
	require.Len(t, events, 1)
	assert.Equal(t, StreamEventError, events[0].Type)
	assert.ErrorIs(t, events[0].Err, boom)
}
