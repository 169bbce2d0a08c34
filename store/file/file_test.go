package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jemygraw/agentflow/store"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ns := []string{"memories", "user-1"}
	require.NoError(t, s.Put(ctx, ns, "food", map[string]any{"content": "likes sushi"}))

	item, err := s.Get(ctx, ns, "food")
	require.NoError(t, err)
	assert.Equal(t, ns, item.Namespace)
	assert.Equal(t, "likes sushi", item.Value["content"])

	_, err = s.Get(ctx, ns, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	ns := []string{"notes"}
	require.NoError(t, s1.Put(ctx, ns, "plan", map[string]any{"topic": "quantum computing"}))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	item, err := s2.Get(ctx, ns, "plan")
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", item.Value["topic"])

	results, err := s2.Search(ctx, ns, "quantum", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "plan", results[0].Key)

	namespaces, err := s2.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"notes"}}, namespaces)

	require.NoError(t, s2.Delete(ctx, ns, "plan"))
	_, err = s2.Get(ctx, ns, "plan")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ns := []string{"user demo", "research/assistant"}
	key := "research_plan_AI in Healthcare"
	require.NoError(t, s.Put(ctx, ns, key, map[string]any{"type": "research_plan"}))

	item, err := s.Get(ctx, ns, key)
	require.NoError(t, err)
	assert.Equal(t, key, item.Key)
}

func TestFileCheckpointStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		cp := &store.Checkpoint{
			ID:        "cp-" + string(rune('0'+i)),
			ThreadID:  "thread-1",
			NodeName:  "step",
			State:     map[string]any{"round": float64(i)},
			Timestamp: time.Now(),
			Version:   i,
		}
		require.NoError(t, s.Save(ctx, cp))
	}
	require.NoError(t, s.Save(ctx, &store.Checkpoint{
		ID: "other", ThreadID: "thread-2", Version: 1, Timestamp: time.Now(),
	}))

	list, err := s.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Version)

	latest, err := s.Latest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)
	assert.Equal(t, float64(3), latest.State["round"])

	require.NoError(t, s.Clear(ctx, "thread-1"))
	list, err = s.List(ctx, "thread-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	// thread-2 untouched
	latest, err = s.Latest(ctx, "thread-2")
	require.NoError(t, err)
	assert.Equal(t, "other", latest.ID)
}
