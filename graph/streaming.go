package graph

import (
	"context"
	"errors"
	"time"
)

// StreamEventType classifies streaming events.
type StreamEventType string

const (
	// StreamEventStep carries the merged state after a superstep.
	StreamEventStep StreamEventType = "step"
	// StreamEventInterrupt signals that execution paused.
	StreamEventInterrupt StreamEventType = "interrupt"
	// StreamEventError signals that execution failed.
	StreamEventError StreamEventType = "error"
	// StreamEventDone carries the final state.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is one event in a streaming execution.
type StreamEvent struct {
	Type      StreamEventType
	NodeName  string
	State     State
	Err       error
	Interrupt *GraphInterrupt
	Timestamp time.Time
}

// StreamBufferSize is the event channel buffer used by Stream.
const StreamBufferSize = 64

// Stream executes the graph and emits an event after every superstep. The
// returned channel closes when execution finishes, pauses or fails; the
// terminal event is Done, Interrupt or Error.
func (r *Runnable) Stream(ctx context.Context, initialState State, config *Config) <-chan StreamEvent {
	events := make(chan StreamEvent, StreamBufferSize)

	if config == nil {
		config = &Config{}
	}
	// Work on a copy so the caller's config is not mutated.
	streamConfig := *config
	streamConfig.OnStep = append(append([]StepListener{}, config.OnStep...), func(ctx context.Context, nodeName string, state State) {
		select {
		case events <- StreamEvent{
			Type:      StreamEventStep,
			NodeName:  nodeName,
			State:     state,
			Timestamp: time.Now(),
		}:
		case <-ctx.Done():
		}
	})

	go func() {
		defer close(events)

		state, err := r.InvokeWithConfig(ctx, initialState, &streamConfig)
		event := StreamEvent{Timestamp: time.Now(), State: state}

		var interrupt *GraphInterrupt
		switch {
		case err == nil:
			event.Type = StreamEventDone
		case asGraphInterrupt(err, &interrupt):
			event.Type = StreamEventInterrupt
			event.NodeName = interrupt.Node
			event.Interrupt = interrupt
		default:
			event.Type = StreamEventError
			event.Err = err
		}

		select {
		case events <- event:
		case <-ctx.Done():
		}
	}()

	return events
}

func asGraphInterrupt(err error, target **GraphInterrupt) bool {
	return errors.As(err, target)
}
