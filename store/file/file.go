// Package file provides JSON-file-backed implementations of store.Store and
// store.CheckpointStore. Each item and checkpoint is a single file under the
// root directory, so state survives process restarts.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jemygraw/agentflow/store"
)

// FileStore is a directory-backed namespaced key-value store.
type FileStore struct {
	root string
	mu   sync.Mutex
}

var _ store.Store = (*FileStore)(nil)

// NewFileStore creates a file store rooted at path, creating it if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(path, "items"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{root: path}, nil
}

func (s *FileStore) namespaceDir(namespace []string) string {
	return filepath.Join(s.root, "items", url.PathEscape(store.NamespaceKey(namespace)))
}

func (s *FileStore) itemPath(namespace []string, key string) string {
	return filepath.Join(s.namespaceDir(namespace), url.PathEscape(key)+".json")
}

// Put creates or updates an item.
func (s *FileStore) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	item := &store.Item{
		Namespace: append([]string(nil), namespace...),
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Preserve CreatedAt on update.
	if existing, err := s.readItem(namespace, key); err == nil {
		item.CreatedAt = existing.CreatedAt
	}

	if err := os.MkdirAll(s.namespaceDir(namespace), 0o755); err != nil {
		return fmt.Errorf("failed to create namespace directory: %w", err)
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := os.WriteFile(s.itemPath(namespace, key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write item: %w", err)
	}
	return nil
}

func (s *FileStore) readItem(namespace []string, key string) (*store.Item, error) {
	data, err := os.ReadFile(s.itemPath(namespace, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read item: %w", err)
	}

	var item store.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// Get retrieves an item.
func (s *FileStore) Get(ctx context.Context, namespace []string, key string) (*store.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readItem(namespace, key)
}

// Search scores all items in the namespace against the query.
func (s *FileStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]*store.SearchedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.namespaceDir(namespace))
	if err != nil {
		if os.IsNotExist(err) {
			return []*store.SearchedItem{}, nil
		}
		return nil, fmt.Errorf("failed to read namespace directory: %w", err)
	}

	var results []*store.SearchedItem
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		escaped := strings.TrimSuffix(entry.Name(), ".json")
		key, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}
		item, err := s.readItem(namespace, key)
		if err != nil {
			continue
		}
		score := store.ScoreItem(item, query)
		if query != "" && score == 0 {
			continue
		}
		results = append(results, &store.SearchedItem{Item: *item, Score: score})
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
func (s *FileStore) Delete(ctx context.Context, namespace []string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.itemPath(namespace, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// ListNamespaces returns all namespaces with at least one item.
func (s *FileStore) ListNamespaces(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, "items"))
	if err != nil {
		return nil, fmt.Errorf("failed to read items directory: %w", err)
	}

	var namespaces [][]string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		nsKey, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, "items", entry.Name()))
		if err != nil || len(files) == 0 {
			continue
		}
		namespaces = append(namespaces, store.SplitNamespaceKey(nsKey))
	}

	sort.Slice(namespaces, func(i, j int) bool {
		return store.NamespaceKey(namespaces[i]) < store.NamespaceKey(namespaces[j])
	})
	return namespaces, nil
}

// FileCheckpointStore persists checkpoints as JSON files.
type FileCheckpointStore struct {
	root string
	mu   sync.Mutex
}

var _ store.CheckpointStore = (*FileCheckpointStore)(nil)

// NewFileCheckpointStore creates a checkpoint store rooted at path.
func NewFileCheckpointStore(path string) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(filepath.Join(path, "checkpoints"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileCheckpointStore{root: path}, nil
}

func (s *FileCheckpointStore) checkpointPath(id string) string {
	return filepath.Join(s.root, "checkpoints", url.PathEscape(id)+".json")
}

// Save stores a checkpoint.
func (s *FileCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(s.checkpointPath(checkpoint.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *FileCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCheckpoint(checkpointID)
}

func (s *FileCheckpointStore) readCheckpoint(id string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(s.checkpointPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns all checkpoints for a thread, oldest version first.
func (s *FileCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, "checkpoints"))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	checkpoints := make([]*store.Checkpoint, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		escaped := strings.TrimSuffix(entry.Name(), ".json")
		id, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}
		cp, err := s.readCheckpoint(id)
		if err != nil {
			continue
		}
		if cp.ThreadID == threadID {
			checkpoints = append(checkpoints, cp)
		}
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Version < checkpoints[j].Version
	})
	return checkpoints, nil
}

// Latest returns the highest-version checkpoint for a thread.
func (s *FileCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	return store.LatestByList(ctx, s, threadID)
}

// Delete removes a checkpoint by ID.
func (s *FileCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.checkpointPath(checkpointID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *FileCheckpointStore) Clear(ctx context.Context, threadID string) error {
	checkpoints, err := s.List(ctx, threadID)
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		if err := s.Delete(ctx, cp.ID); err != nil {
			return err
		}
	}
	return nil
}
