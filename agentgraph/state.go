package agentgraph

import (
	"sync"

	"github.com/flowforge/agentflow/workflow"
)

// ExecutionState is the graph's mutable record of what has run and what it
// produced (spec §3 "Execution State (graph)"). It reuses workflow.Set so
// it serializes through the same {"type":"Set",...} envelope as the
// workflow engine's own state.
type ExecutionState struct {
	mu         sync.RWMutex
	results    workflow.TypedMap[string]
	completed  workflow.Set
	nodeStates []NodeState
}

func newExecutionState() *ExecutionState {
	return &ExecutionState{
		results:   workflow.TypedMap[string]{},
		completed: workflow.NewSet(),
	}
}

// Result returns the recorded output of node, if it has run.
func (s *ExecutionState) Result(node string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.results[node]
	return v, ok
}

func (s *ExecutionState) setResult(node, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[node] = value
}

// IsCompleted reports whether node has finished executing at least once.
func (s *ExecutionState) IsCompleted(node string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed.Has(node)
}

func (s *ExecutionState) markCompleted(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed.Add(node)
}

func (s *ExecutionState) appendNodeState(ns NodeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeStates = append(s.nodeStates, ns)
}

// NodeStates returns a copy of the append-only execution log.
func (s *ExecutionState) NodeStates() []NodeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeState, len(s.nodeStates))
	copy(out, s.nodeStates)
	return out
}

// Results returns a copy of the node-name to last-output mapping.
func (s *ExecutionState) Results() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}
