package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/flowforge/agentflow/workflow"
)

// MySQLStore is a MySQL/MariaDB-backed PersistenceLayer, for production
// workflows that must survive process restarts and be shared across
// workers. DSN format matches go-sql-driver/mysql, e.g.
// "user:pass@tcp(localhost:3306)/workflows?parseTime=true".
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a connection pool against dsn and migrates its
// schema. Never hardcode dsn in source; load it from the environment.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS workflow_snapshots (
			workflow_id VARCHAR(255) NOT NULL PRIMARY KEY,
			snapshot    JSON NOT NULL,
			updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("persistence: create workflow_snapshots table: %w", err)
	}
	return nil
}

// Save upserts workflowID's snapshot.
func (s *MySQLStore) Save(ctx context.Context, snapshot workflow.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("persistence: mysql store is closed")
	}
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_snapshots (workflow_id, snapshot)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE snapshot = VALUES(snapshot)
	`, snapshot.WorkflowID, string(blob))
	if err != nil {
		return fmt.Errorf("persistence: save snapshot: %w", err)
	}
	return nil
}

// Load fetches and decodes workflowID's most recently saved snapshot.
func (s *MySQLStore) Load(ctx context.Context, workflowID string) (workflow.Snapshot, bool, error) {
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

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
