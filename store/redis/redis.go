// Package redis provides Redis-backed implementations of store.Store and
// store.CheckpointStore.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jemygraw/agentflow/store"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "agentflow:"
	TTL      time.Duration // expiration for stored values, default 0 (none)
}

// RedisStore is a Redis-backed namespaced key-value store.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store.
func NewRedisStore(opts Options) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "agentflow:"
	}

	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *RedisStore) itemKey(nsKey, key string) string {
	return fmt.Sprintf("%sitem:%s:%s", s.prefix, nsKey, key)
}

func (s *RedisStore) namespaceSetKey(nsKey string) string {
	return fmt.Sprintf("%sns:%s", s.prefix, nsKey)
}

func (s *RedisStore) namespacesKey() string {
	return s.prefix + "namespaces"
}

// Put creates or updates an item.
func (s *RedisStore) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	nsKey := store.NamespaceKey(namespace)
	now := time.Now()

	item := &store.Item{
		Namespace: append([]string(nil), namespace...),
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.Get(ctx, namespace, key); err == nil {
		item.CreatedAt = existing.CreatedAt
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.itemKey(nsKey, key), data, s.ttl)
	pipe.SAdd(ctx, s.namespaceSetKey(nsKey), key)
	pipe.SAdd(ctx, s.namespacesKey(), nsKey)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.namespaceSetKey(nsKey), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save item to redis: %w", err)
	}
	return nil
}

// Get retrieves an item.
func (s *RedisStore) Get(ctx context.Context, namespace []string, key string) (*store.Item, error) {
	nsKey := store.NamespaceKey(namespace)
	data, err := s.client.Get(ctx, s.itemKey(nsKey, key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load item from redis: %w", err)
	}

	var item store.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// Search scores all items in the namespace against the query.
func (s *RedisStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]*store.SearchedItem, error) {
	nsKey := store.NamespaceKey(namespace)
	keys, err := s.client.SMembers(ctx, s.namespaceSetKey(nsKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace members: %w", err)
	}
	if len(keys) == 0 {
		return []*store.SearchedItem{}, nil
	}

	itemKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		itemKeys = append(itemKeys, s.itemKey(nsKey, key))
	}

	values, err := s.client.MGet(ctx, itemKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	var results []*store.SearchedItem
	for _, value := range values {
		strData, ok := value.(string)
		if !ok {
			// Expired or missing entry, skip.
			continue
		}
		var item store.Item
		if err := json.Unmarshal([]byte(strData), &item); err != nil {
			continue
		}
		score := store.ScoreItem(&item, query)
		if query != "" && score == 0 {
			continue
		}
		results = append(results, &store.SearchedItem{Item: item, Score: score})
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
func (s *RedisStore) Delete(ctx context.Context, namespace []string, key string) error {
	nsKey := store.NamespaceKey(namespace)

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.itemKey(nsKey, key))
	pipe.SRem(ctx, s.namespaceSetKey(nsKey), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	// Drop the namespace from the index when it becomes empty.
	remaining, err := s.client.SCard(ctx, s.namespaceSetKey(nsKey)).Result()
	if err == nil && remaining == 0 {
		s.client.SRem(ctx, s.namespacesKey(), nsKey)
	}
	return nil
}

// ListNamespaces returns all namespaces with at least one item.
func (s *RedisStore) ListNamespaces(ctx context.Context) ([][]string, error) {
	nsKeys, err := s.client.SMembers(ctx, s.namespacesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	sort.Strings(nsKeys)

	namespaces := make([][]string, 0, len(nsKeys))
	for _, nsKey := range nsKeys {
		namespaces = append(namespaces, store.SplitNamespaceKey(nsKey))
	}
	return namespaces, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// RedisCheckpointStore is a Redis-backed checkpoint store.
type RedisCheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.CheckpointStore = (*RedisCheckpointStore)(nil)

// NewRedisCheckpointStore creates a new Redis checkpoint store.
func NewRedisCheckpointStore(opts Options) *RedisCheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "agentflow:"
	}

	return &RedisCheckpointStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *RedisCheckpointStore) checkpointKey(id string) string {
	return fmt.Sprintf("%scheckpoint:%s", s.prefix, id)
}

func (s *RedisCheckpointStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s:checkpoints", s.prefix, threadID)
}

// Save stores a checkpoint.
func (s *RedisCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.checkpointKey(checkpoint.ID), data, s.ttl)
	if checkpoint.ThreadID != "" {
		threadKey := s.threadKey(checkpoint.ThreadID)
		pipe.SAdd(ctx, threadKey, checkpoint.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, threadKey, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *RedisCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(checkpointID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns all checkpoints for a thread, oldest version first.
func (s *RedisCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	ids, err := s.client.SMembers(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for thread %s: %w", threadID, err)
	}
	if len(ids) == 0 {
		return []*store.Checkpoint{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.checkpointKey(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkpoints: %w", err)
	}

	var checkpoints []*store.Checkpoint
	for _, value := range values {
		strData, ok := value.(string)
		if !ok {
			continue
		}
		var cp store.Checkpoint
		if err := json.Unmarshal([]byte(strData), &cp); err != nil {
			continue
		}
		checkpoints = append(checkpoints, &cp)
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].Version < checkpoints[j].Version
	})
	return checkpoints, nil
}

// Latest returns the highest-version checkpoint for a thread.
func (s *RedisCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	return store.LatestByList(ctx, s, threadID)
}

// Delete removes a checkpoint by ID.
func (s *RedisCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	cp, err := s.Load(ctx, checkpointID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.checkpointKey(checkpointID))
	if cp.ThreadID != "" {
		pipe.SRem(ctx, s.threadKey(cp.ThreadID), checkpointID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *RedisCheckpointStore) Clear(ctx context.Context, threadID string) error {
	ids, err := s.client.SMembers(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints for clearing: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.checkpointKey(id))
	}
	pipe.Del(ctx, s.threadKey(threadID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisCheckpointStore) Close() error {
	return s.client.Close()
}
