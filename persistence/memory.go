// Package persistence implements the workflow.PersistenceLayer capability
// over an in-memory map, SQLite, and MySQL, matching the storage tiers the
// teacher engine offers through its store package.
package persistence

import (
	"context"
	"sync"

	"github.com/flowforge/agentflow/workflow"
)

// MemoryStore is an in-memory PersistenceLayer. Data is lost when the
// process exits; suitable for tests and single-process development, not for
// surviving a restart across a real breakpoint/resume cycle.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]workflow.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]workflow.Snapshot)}
}

// Save stores snapshot by value, keyed by its WorkflowID.
// Map/slice fields are shared with the caller after Save returns; callers
// must treat a Snapshot as immutable once passed to Save, matching the
// guarantee ExecutionContext.Snapshot already provides.
func (m *MemoryStore) Save(ctx context.Context, snapshot workflow.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[snapshot.WorkflowID] = snapshot
	return nil
}

// Load returns the most recently saved snapshot for workflowID.
func (m *MemoryStore) Load(ctx context.Context, workflowID string) (workflow.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.data[workflowID]
	return snap, ok, nil
}
