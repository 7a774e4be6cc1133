package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/flowforge/agentflow/workflow"
)

// SQLiteStore is a SQLite-backed PersistenceLayer: one row per workflow ID
// in a single table, the whole Snapshot stored as a JSON blob. Grounded on
// the teacher's SQLiteStore (WAL mode, busy timeout, auto-migrated schema),
// simplified to this package's single-table need.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// migrates its schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open sqlite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("persistence: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS workflow_snapshots (
			workflow_id TEXT NOT NULL PRIMARY KEY,
			snapshot    TEXT NOT NULL,
			updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("persistence: create workflow_snapshots table: %w", err)
	}
	return nil
}

// Save upserts workflowID's snapshot as a JSON blob.
func (s *SQLiteStore) Save(ctx context.Context, snapshot workflow.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("persistence: sqlite store is closed")
	}
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_snapshots (workflow_id, snapshot, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(workflow_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP
	`, snapshot.WorkflowID, string(blob))
	if err != nil {
		return fmt.Errorf("persistence: save snapshot: %w", err)
	}
	return nil
}

// Load fetches and decodes workflowID's most recently saved snapshot.
func (s *SQLiteStore) Load(ctx context.Context, workflowID string) (workflow.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM workflow_snapshots WHERE workflow_id = ?`, workflowID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return workflow.Snapshot{}, false, nil
	}
	if err != nil {
		return workflow.Snapshot{}, false, fmt.Errorf("persistence: load snapshot: %w", err)
	}
	var snap workflow.Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return workflow.Snapshot{}, false, fmt.Errorf("persistence: decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
