package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jemygraw/agentflow/store"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ns := []string{"memories", "user-1"}

	err := s.Put(ctx, ns, "food", map[string]any{"content": "likes sushi"})
	require.NoError(t, err)

	item, err := s.Get(ctx, ns, "food")
	require.NoError(t, err)
	assert.Equal(t, ns, item.Namespace)
	assert.Equal(t, "food", item.Key)
	assert.Equal(t, "likes sushi", item.Value["content"])
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, item.CreatedAt, item.UpdatedAt)

	// Update preserves CreatedAt.
	err = s.Put(ctx, ns, "food", map[string]any{"content": "likes ramen"})
	require.NoError(t, err)

	updated, err := s.Get(ctx, ns, "food")
	require.NoError(t, err)
	assert.Equal(t, "likes ramen", updated.Value["content"])
	assert.Equal(t, item.CreatedAt, updated.CreatedAt)
	assert.True(t, !updated.UpdatedAt.Before(item.UpdatedAt))

	_, err = s.Get(ctx, ns, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Get(ctx, []string{"other"}, "food")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStoreSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ns := []string{"memories", "user-1"}

	require.NoError(t, s.Put(ctx, ns, "food", map[string]any{"content": "user likes sushi and ramen"}))
	require.NoError(t, s.Put(ctx, ns, "sport", map[string]any{"content": "user plays tennis"}))
	require.NoError(t, s.Put(ctx, ns, "city", map[string]any{"content": "user lives in berlin"}))

	results, err := s.Search(ctx, ns, "sushi", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "food", results[0].Key)
	assert.Equal(t, 1.0, results[0].Score)

	// Empty query matches everything.
	all, err := s.Search(ctx, ns, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Limit applies after scoring.
	limited, err := s.Search(ctx, ns, "user", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Unknown namespace yields no results.
	none, err := s.Search(ctx, []string{"nope"}, "sushi", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreDeleteAndNamespaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, []string{"a", "1"}, "k", map[string]any{"v": 1}))
	require.NoError(t, s.Put(ctx, []string{"b"}, "k", map[string]any{"v": 2}))

	namespaces, err := s.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "1"}, {"b"}}, namespaces)

	require.NoError(t, s.Delete(ctx, []string{"a", "1"}, "k"))
	// Idempotent delete.
	require.NoError(t, s.Delete(ctx, []string{"a", "1"}, "k"))

	namespaces, err = s.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b"}}, namespaces)
}

func TestMemoryCheckpointStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCheckpointStore()

	cp1 := &store.Checkpoint{
		ID:        "cp-1",
		ThreadID:  "thread-1",
		NodeName:  "call_model",
		State:     map[string]any{"foo": "bar"},
		Timestamp: time.Now(),
		Version:   1,
	}
	cp2 := &store.Checkpoint{
		ID:        "cp-2",
		ThreadID:  "thread-1",
		NodeName:  "store_memory",
		State:     map[string]any{"foo": "baz"},
		Timestamp: time.Now(),
		Version:   2,
	}

	require.NoError(t, s.Save(ctx, cp1))
	require.NoError(t, s.Save(ctx, cp2))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "call_model", loaded.NodeName)

	list, err := s.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, 2, list[1].Version)

	latest, err := s.Latest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "cp-2", latest.ID)

	require.NoError(t, s.Delete(ctx, "cp-1"))
	_, err = s.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Clear(ctx, "thread-1"))
	list, err = s.List(ctx, "thread-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Latest(ctx, "thread-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNextVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCheckpointStore()

	assert.Equal(t, 1, store.NextVersion(ctx, s, "t"))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "a", ThreadID: "t", Version: 3}))
	assert.Equal(t, 4, store.NextVersion(ctx, s, "t"))
}
