package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jemygraw/agentflow/store"
)

// CheckpointConfig configures checkpointing behavior.
type CheckpointConfig struct {
	// Store is the checkpoint storage backend.
	Store store.CheckpointStore

	// AutoSave saves a checkpoint after every superstep.
	AutoSave bool
}

// CheckpointableRunnable wraps a Runnable with per-thread checkpointing:
// every superstep is saved, and invocations with a known thread_id resume
// from the latest checkpoint.
type CheckpointableRunnable struct {
	runnable *Runnable
	config   CheckpointConfig
}

// NewCheckpointableRunnable wraps a compiled runnable.
func NewCheckpointableRunnable(runnable *Runnable, config CheckpointConfig) *CheckpointableRunnable {
	if config.Store == nil {
		panic("graph: CheckpointConfig.Store is required")
	}
	return &CheckpointableRunnable{runnable: runnable, config: config}
}

// Runnable returns the wrapped runnable.
func (cr *CheckpointableRunnable) Runnable() *Runnable {
	return cr.runnable
}

// Invoke executes the graph with checkpointing for the thread in config.
// New input is merged into the latest checkpointed state through the schema.
func (cr *CheckpointableRunnable) Invoke(ctx context.Context, input State, config *Config) (State, error) {
	if config == nil {
		config = &Config{}
	}
	threadID := config.ThreadID()

	state := input

	// Auto-resume: merge the new input over the latest checkpoint, and
	// continue from the interrupted node when there is one.
	if threadID != "" && config.ResumeFrom == nil {
		if latest, err := cr.config.Store.Latest(ctx, threadID); err == nil {
			merged, mergeErr := cr.runnable.graph.schema.Update(latest.State, input)
			if mergeErr != nil {
				return nil, fmt.Errorf("failed to merge input over checkpoint: %w", mergeErr)
			}
			state = merged
			if latest.NodeName != "" && latest.NodeName != END && isInterruptCheckpoint(latest) {
				config.ResumeFrom = []string{latest.NodeName}
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load latest checkpoint: %w", err)
		}
	}

	if cr.config.AutoSave {
		config.OnStep = append(config.OnStep, func(ctx context.Context, nodeName string, state State) {
			cr.save(ctx, threadID, nodeName, state, map[string]any{"event": "step"})
		})
	}

	result, err := cr.runnable.InvokeWithConfig(ctx, state, config)

	var interrupt *GraphInterrupt
	if errors.As(err, &interrupt) && len(interrupt.NextNodes) > 0 {
		// Record where to pick up so the next Invoke resumes here.
		cr.save(ctx, threadID, interrupt.NextNodes[0], result, map[string]any{"event": "interrupt"})
	} else if err == nil {
		cr.save(ctx, threadID, END, result, map[string]any{"event": "done"})
	}

	return result, err
}

func isInterruptCheckpoint(cp *store.Checkpoint) bool {
	event, _ := cp.Metadata["event"].(string)
	return event == "interrupt"
}

func (cr *CheckpointableRunnable) save(ctx context.Context, threadID, nodeName string, state State, metadata map[string]any) {
	if threadID == "" {
		return
	}
	checkpoint := &store.Checkpoint{
		ID:        "checkpoint_" + uuid.New().String(),
		ThreadID:  threadID,
		NodeName:  nodeName,
		State:     state,
		Metadata:  metadata,
		Timestamp: time.Now(),
		Version:   store.NextVersion(ctx, cr.config.Store, threadID),
	}
	// Checkpoint persistence must not fail the run.
	_ = cr.config.Store.Save(ctx, checkpoint)
}

// State returns the latest checkpointed state for a thread.
func (cr *CheckpointableRunnable) State(ctx context.Context, threadID string) (State, error) {
	latest, err := cr.config.Store.Latest(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return latest.State, nil
}

// UpdateState merges values into the latest checkpointed state and records a
// new checkpoint attributed to asNode.
func (cr *CheckpointableRunnable) UpdateState(ctx context.Context, threadID, asNode string, values State) error {
	current := cr.runnable.graph.schema.Init()
	if latest, err := cr.config.Store.Latest(ctx, threadID); err == nil {
		current = latest.State
	}

	merged, err := cr.runnable.graph.schema.Update(current, values)
	if err != nil {
		return fmt.Errorf("failed to update state with schema: %w", err)
	}

	checkpoint := &store.Checkpoint{
		ID:        "checkpoint_" + uuid.New().String(),
		ThreadID:  threadID,
		NodeName:  asNode,
		State:     merged,
		Metadata:  map[string]any{"event": "update_state", "updated_by": asNode},
		Timestamp: time.Now(),
		Version:   store.NextVersion(ctx, cr.config.Store, threadID),
	}
	return cr.config.Store.Save(ctx, checkpoint)
}

// History returns all checkpoints for a thread, oldest first. This is the
// basis for time-travel inspection.
func (cr *CheckpointableRunnable) History(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	return cr.config.Store.List(ctx, threadID)
}

// Clear removes all checkpoints for a thread.
func (cr *CheckpointableRunnable) Clear(ctx context.Context, threadID string) error {
	return cr.config.Store.Clear(ctx, threadID)
}
