package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jemygraw/agentflow/store"
)

func TestSqliteStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSqliteStore(Options{Path: filepath.Join(t.TempDir(), "store.db")})
	require.NoError(t, err)
	defer s.Close()

	ns := []string{"memories", "user-1"}
	require.NoError(t, s.Put(ctx, ns, "food", map[string]any{"content": "likes sushi"}))
	require.NoError(t, s.Put(ctx, ns, "sport", map[string]any{"content": "plays tennis"}))

	item, err := s.Get(ctx, ns, "food")
	require.NoError(t, err)
	assert.Equal(t, "likes sushi", item.Value["content"])
	assert.Equal(t, ns, item.Namespace)

	_, err = s.Get(ctx, ns, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Upsert replaces the value.
	require.NoError(t, s.Put(ctx, ns, "food", map[string]any{"content": "likes ramen"}))
	item, err = s.Get(ctx, ns, "food")
	require.NoError(t, err)
	assert.Equal(t, "likes ramen", item.Value["content"])

	results, err := s.Search(ctx, ns, "tennis", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sport", results[0].Key)

	all, err := s.Search(ctx, ns, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	namespaces, err := s.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"memories", "user-1"}}, namespaces)

	require.NoError(t, s.Delete(ctx, ns, "food"))
	_, err = s.Get(ctx, ns, "food")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSqliteCheckpointStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSqliteCheckpointStore(Options{Path: filepath.Join(t.TempDir(), "checkpoints.db")})
	require.NoError(t, err)
	defer s.Close()

	threadID := "thread-1"
	for i := 1; i <= 3; i++ {
		cp := &store.Checkpoint{
			ID:        "cp-" + string(rune('0'+i)),
			ThreadID:  threadID,
			NodeName:  "step",
			State:     map[string]any{"round": float64(i)},
			Metadata:  map[string]any{"source": "test"},
			Timestamp: time.Now(),
			Version:   i,
		}
		require.NoError(t, s.Save(ctx, cp))
	}

	loaded, err := s.Load(ctx, "cp-2")
	require.NoError(t, err)
	assert.Equal(t, float64(2), loaded.State["round"])
	assert.Equal(t, "test", loaded.Metadata["source"])

	list, err := s.List(ctx, threadID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, 3, list[2].Version)

	latest, err := s.Latest(ctx, threadID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)

	require.NoError(t, s.Delete(ctx, "cp-1"))
	_, err = s.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Clear(ctx, threadID))
	list, err = s.List(ctx, threadID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Latest(ctx, threadID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
