// Package store provides namespaced long-term memory storage and checkpoint
// persistence for graph executions. Backends live in the subpackages memory,
// file, redis, sqlite and postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when an item or checkpoint does not exist.
var ErrNotFound = errors.New("store: not found")

// Item is a single memory record stored under a namespace tuple and key.
type Item struct {
	Namespace []string       `json:"namespace"`
	Key       string         `json:"key"`
	Value     map[string]any `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SearchedItem is an Item together with its relevance score for a query.
type SearchedItem struct {
	Item
	Score float64 `json:"score"`
}

// Store is a namespaced key-value memory store for cross-session data.
type Store interface {
	// Put creates or updates an item. CreatedAt is preserved on update.
	Put(ctx context.Context, namespace []string, key string, value map[string]any) error

	// Get retrieves an item, or ErrNotFound.
	Get(ctx context.Context, namespace []string, key string) (*Item, error)

	// Search returns items in the namespace scored against the query,
	// best first. An empty query matches everything with score 0.
	// limit <= 0 means no limit.
	Search(ctx context.Context, namespace []string, query string, limit int) ([]*SearchedItem, error)

	// Delete removes an item. Deleting a missing item is not an error.
	Delete(ctx context.Context, namespace []string, key string) error

	// ListNamespaces returns all namespaces that contain at least one item.
	ListNamespaces(ctx context.Context) ([][]string, error)
}

// Checkpoint is a saved graph state at a specific point in execution.
type Checkpoint struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	NodeName  string         `json:"node_name"`
	State     map[string]any `json:"state"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

// CheckpointStore persists per-thread graph checkpoints.
type CheckpointStore interface {
	// Save stores a checkpoint.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID, or ErrNotFound.
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns all checkpoints for a thread, oldest version first.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// Latest returns the highest-version checkpoint for a thread,
	// or ErrNotFound.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes a checkpoint by ID.
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints for a thread.
	Clear(ctx context.Context, threadID string) error
}

// NamespaceKey flattens a namespace tuple into a single string for backends
// that key on plain strings.
func NamespaceKey(namespace []string) string {
	return strings.Join(namespace, "/")
}

// SplitNamespaceKey is the inverse of NamespaceKey.
func SplitNamespaceKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, "/")
}

// ScoreItem scores an item against a free-text query by term overlap over
// the key and the JSON-encoded value. The score is the fraction of query
// terms present, 0 when nothing matches.
func ScoreItem(item *Item, query string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	var sb strings.Builder
	sb.WriteString(strings.ToLower(item.Key))
	if data, err := json.Marshal(item.Value); err == nil {
		sb.WriteByte(' ')
		sb.Write([]byte(strings.ToLower(string(data))))
	}
	haystack := sb.String()

	matched := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// LatestByList implements Latest for backends whose List is the only
// primitive, picking the highest version.
func LatestByList(ctx context.Context, cs CheckpointStore, threadID string) (*Checkpoint, error) {
	checkpoints, err := cs.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(checkpoints) == 0 {
		return nil, ErrNotFound
	}

	latest := checkpoints[0]
	for _, cp := range checkpoints[1:] {
		if cp.Version > latest.Version {
			latest = cp
		}
	}
	return latest, nil
}

// NextVersion returns the next checkpoint version for a thread.
func NextVersion(ctx context.Context, cs CheckpointStore, threadID string) int {
	version := 1
	if checkpoints, err := cs.List(ctx, threadID); err == nil {
		for _, cp := range checkpoints {
			if cp.Version >= version {
				version = cp.Version + 1
			}
		}
	}
	return version
}
