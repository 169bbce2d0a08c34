// Package memory provides in-process implementations of store.Store and
// store.CheckpointStore, suitable for demos and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/jemygraw/agentflow/store"
)

// MemoryStore is an in-memory namespaced key-value store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]*store.Item // namespace key -> item key -> item
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]map[string]*store.Item),
	}
}

// Put creates or updates an item.
func (s *MemoryStore) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nsKey := store.NamespaceKey(namespace)
	bucket, ok := s.items[nsKey]
	if !ok {
		bucket = make(map[string]*store.Item)
		s.items[nsKey] = bucket
	}

	now := time.Now()
	copied := make(map[string]any, len(value))
	maps.Copy(copied, value)

	if existing, ok := bucket[key]; ok {
		existing.Value = copied
		existing.UpdatedAt = now
		return nil
	}

	bucket[key] = &store.Item{
		Namespace: append([]string(nil), namespace...),
		Key:       key,
		Value:     copied,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Get retrieves an item by namespace and key.
func (s *MemoryStore) Get(ctx context.Context, namespace []string, key string) (*store.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.items[store.NamespaceKey(namespace)]
	if !ok {
		return nil, store.ErrNotFound
	}
	item, ok := bucket[key]
	if !ok {
		return nil, store.ErrNotFound
	}

	copied := *item
	return &copied, nil
}

// Search scores all items in the namespace against the query.
func (s *MemoryStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]*store.SearchedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.items[store.NamespaceKey(namespace)]
	results := make([]*store.SearchedItem, 0, len(bucket))
	for _, item := range bucket {
		score := store.ScoreItem(item, query)
		if query != "" && score == 0 {
			continue
		}
		copied := *item
		results = append(results, &store.SearchedItem{Item: copied, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes an item.
func (s *MemoryStore) Delete(ctx context.Context, namespace []string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bucket, ok := s.items[store.NamespaceKey(namespace)]; ok {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(s.items, store.NamespaceKey(namespace))
		}
	}
	return nil
}

// ListNamespaces returns all non-empty namespaces.
func (s *MemoryStore) ListNamespaces(ctx context.Context) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for nsKey := range s.items {
		keys = append(keys, nsKey)
	}
	sort.Strings(keys)

	namespaces := make([][]string, 0, len(keys))
	for _, nsKey := range keys {
		namespaces = append(namespaces, store.SplitNamespaceKey(nsKey))
	}
	return namespaces, nil
}

// MemoryCheckpointStore is an in-memory checkpoint store.
type MemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
	byThread    map[string][]string
}

var _ store.CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore creates an empty in-memory checkpoint store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
		byThread:    make(map[string][]string),
	}
}

// Save stores a checkpoint.
func (s *MemoryCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *checkpoint
	if _, exists := s.checkpoints[checkpoint.ID]; !exists {
		s.byThread[checkpoint.ThreadID] = append(s.byThread[checkpoint.ThreadID], checkpoint.ID)
	}
	s.checkpoints[checkpoint.ID] = &copied
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *MemoryCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *cp
	return &copied, nil
}

// List returns all checkpoints for a thread, oldest version first.
func (s *MemoryCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byThread[threadID]
	checkpoints := make([]*store.Checkpoint, 0, len(ids))
	for _, id := range ids {
		if cp, ok := s.checkpoints[id]; ok {
			copied := *cp
			checkpoints = append(checkpoints, &copied)
		}
	}
	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Version < checkpoints[j].Version
	})
	return checkpoints, nil
}

// Latest returns the highest-version checkpoint for a thread.
func (s *MemoryCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	return store.LatestByList(ctx, s, threadID)
}

// Delete removes a checkpoint.
func (s *MemoryCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil
	}
	delete(s.checkpoints, checkpointID)

	ids := s.byThread[cp.ThreadID]
	for i, id := range ids {
		if id == checkpointID {
			s.byThread[cp.ThreadID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *MemoryCheckpointStore) Clear(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byThread[threadID] {
		delete(s.checkpoints, id)
	}
	delete(s.byThread, threadID)
	return nil
}
