// Package state holds per-module execution outputs and errors for the
// lifetime of one workflow run. Each run owns its own store instance.
package state

import "sync"

// Store records module outputs and errors. Writes are serialized per module
// id by the execution engine; readers may be concurrent.
type Store interface {
	SetOutput(moduleID string, output map[string]any)
	SetError(moduleID string, err string)
	Output(moduleID string) (map[string]any, bool)
	Err(moduleID string) (string, bool)
	Clear()
}

// MemoryStore is the in-memory Store used for a single run. A second write
// for the same module id overwrites the previous entry, which leaves room
// for retry semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	outputs map[string]map[string]any
	errors  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		outputs: make(map[string]map[string]any),
		errors:  make(map[string]string),
	}
}

func (s *MemoryStore) SetOutput(moduleID string, output map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[moduleID] = output
}

func (s *MemoryStore) SetError(moduleID string, err string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors[moduleID] = err
}

func (s *MemoryStore) Output(moduleID string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	output, ok := s.outputs[moduleID]

	return output, ok
}

func (s *MemoryStore) Err(moduleID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err, ok := s.errors[moduleID]

	return err, ok
}

// Clear resets all state, for stores reused between runs.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs = make(map[string]map[string]any)
	s.errors = make(map[string]string)
}
