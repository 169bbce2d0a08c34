// Package sqlite provides SQLite-backed implementations of store.Store and
// store.CheckpointStore using mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jemygraw/agentflow/store"
)

// Options configures the SQLite connection.
type Options struct {
	Path string // database file path, ":memory:" for in-memory
}

// SqliteStore is a SQLite-backed namespaced key-value store.
type SqliteStore struct {
	db *sql.DB
}

var _ store.Store = (*SqliteStore)(nil)

// NewSqliteStore opens (and initializes) a SQLite-backed store.
func NewSqliteStore(opts Options) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) initSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS items (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (namespace, key)
		);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Put creates or updates an item.
func (s *SqliteStore) Put(ctx context.Context, namespace []string, key string, value map[string]any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO items (namespace, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, store.NamespaceKey(namespace), key, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

func scanItem(nsKey, key, value string, createdAt, updatedAt time.Time) (*store.Item, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return &store.Item{
		Namespace: store.SplitNamespaceKey(nsKey),
		Key:       key,
		Value:     parsed,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Get retrieves an item.
func (s *SqliteStore) Get(ctx context.Context, namespace []string, key string) (*store.Item, error) {
	nsKey := store.NamespaceKey(namespace)
	row := s.db.QueryRowContext(ctx,
		"SELECT value, created_at, updated_at FROM items WHERE namespace = ? AND key = ?",
		nsKey, key)

	var value string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&value, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return scanItem(nsKey, key, value, createdAt, updatedAt)
}

// Search scores all items in the namespace against the query.
func (s *SqliteStore) Search(ctx context.Context, namespace []string, query string, limit int) ([]*store.SearchedItem, error) {
	nsKey := store.NamespaceKey(namespace)
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value, created_at, updated_at FROM items WHERE namespace = ?", nsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var results []*store.SearchedItem
	for rows.Next() {
		var key, value string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&key, &value, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item, err := scanItem(nsKey, key, value, createdAt, updatedAt)
		if err != nil {
			continue
		}
		score := store.ScoreItem(item, query)
		if query != "" && score == 0 {
			continue
		}
		results = append(results, &store.SearchedItem{Item: *item, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
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
func (s *SqliteStore) Delete(ctx context.Context, namespace []string, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM items WHERE namespace = ? AND key = ?",
		store.NamespaceKey(namespace), key)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// ListNamespaces returns all namespaces with at least one item.
func (s *SqliteStore) ListNamespaces(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT namespace FROM items ORDER BY namespace")
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces [][]string
	for rows.Next() {
		var nsKey string
		if err := rows.Scan(&nsKey); err != nil {
			return nil, fmt.Errorf("failed to scan namespace: %w", err)
		}
		namespaces = append(namespaces, store.SplitNamespaceKey(nsKey))
	}
	return namespaces, rows.Err()
}

// Close closes the database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// SqliteCheckpointStore is a SQLite-backed checkpoint store.
type SqliteCheckpointStore struct {
	db *sql.DB
}

var _ store.CheckpointStore = (*SqliteCheckpointStore)(nil)

// NewSqliteCheckpointStore opens (and initializes) a SQLite checkpoint store.
func NewSqliteCheckpointStore(opts Options) (*SqliteCheckpointStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	s := &SqliteCheckpointStore{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteCheckpointStore) initSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			node_name TEXT NOT NULL,
			state TEXT NOT NULL,
			metadata TEXT,
			timestamp DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_id ON checkpoints (thread_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a checkpoint.
func (s *SqliteCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	stateJSON, err := json.Marshal(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	metadataJSON, err := json.Marshal(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO checkpoints (id, thread_id, node_name, state, metadata, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			thread_id = excluded.thread_id,
			node_name = excluded.node_name,
			state = excluded.state,
			metadata = excluded.metadata,
			timestamp = excluded.timestamp,
			version = excluded.version
	`
	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ID, checkpoint.ThreadID, checkpoint.NodeName,
		string(stateJSON), string(metadataJSON), checkpoint.Timestamp, checkpoint.Version)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func scanCheckpoint(id, threadID, nodeName, stateJSON, metadataJSON string, timestamp time.Time, version int) (*store.Checkpoint, error) {
	cp := &store.Checkpoint{
		ID:        id,
		ThreadID:  threadID,
		NodeName:  nodeName,
		Timestamp: timestamp,
		Version:   version,
	}
	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return cp, nil
}

// Load retrieves a checkpoint by ID.
func (s *SqliteCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, thread_id, node_name, state, metadata, timestamp, version FROM checkpoints WHERE id = ?",
		checkpointID)

	var id, threadID, nodeName, stateJSON, metadataJSON string
	var timestamp time.Time
	var version int
	if err := row.Scan(&id, &threadID, &nodeName, &stateJSON, &metadataJSON, &timestamp, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return scanCheckpoint(id, threadID, nodeName, stateJSON, metadataJSON, timestamp, version)
}

// List returns all checkpoints for a thread, oldest version first.
func (s *SqliteCheckpointStore) List(ctx context.Context, threadID string) ([]*store.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, thread_id, node_name, state, metadata, timestamp, version FROM checkpoints WHERE thread_id = ? ORDER BY version ASC",
		threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*store.Checkpoint
	for rows.Next() {
		var id, tid, nodeName, stateJSON, metadataJSON string
		var timestamp time.Time
		var version int
		if err := rows.Scan(&id, &tid, &nodeName, &stateJSON, &metadataJSON, &timestamp, &version); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		cp, err := scanCheckpoint(id, tid, nodeName, stateJSON, metadataJSON, timestamp, version)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

// Latest returns the highest-version checkpoint for a thread.
func (s *SqliteCheckpointStore) Latest(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, thread_id, node_name, state, metadata, timestamp, version FROM checkpoints WHERE thread_id = ? ORDER BY version DESC LIMIT 1",
		threadID)

	var id, tid, nodeName, stateJSON, metadataJSON string
	var timestamp time.Time
	var version int
	if err := row.Scan(&id, &tid, &nodeName, &stateJSON, &metadataJSON, &timestamp, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}
	return scanCheckpoint(id, tid, nodeName, stateJSON, metadataJSON, timestamp, version)
}

// Delete removes a checkpoint by ID.
func (s *SqliteCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE id = ?", checkpointID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for a thread.
func (s *SqliteCheckpointStore) Clear(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SqliteCheckpointStore) Close() error {
	return s.db.Close()
}
