package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceKeyRoundTrip(t *testing.T) {
	ns := []string{"memories", "user-1"}
	key := NamespaceKey(ns)
	assert.Equal(t, "memories/user-1", key)
	assert.Equal(t, ns, SplitNamespaceKey(key))
	assert.Nil(t, SplitNamespaceKey(""))
}

func TestScoreItem(t *testing.T) {
	item := &Item{
		Key:   "food",
		Value: map[string]any{"content": "User likes sushi and ramen"},
	}

	assert.Equal(t, 1.0, ScoreItem(item, "sushi"))
	assert.Equal(t, 1.0, ScoreItem(item, "SUSHI"))
	assert.Equal(t, 0.5, ScoreItem(item, "sushi pizza"))
	assert.Equal(t, 0.0, ScoreItem(item, "pizza"))
	assert.Equal(t, 0.0, ScoreItem(item, ""))
	// The key participates in matching.
	assert.Equal(t, 1.0, ScoreItem(item, "food"))
}
