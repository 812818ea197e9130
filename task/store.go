package task

import (
	"fmt"
	"sync"
)

// Store is a volatile registry of task managers keyed by task id. It is safe
// for concurrent access and best suited to one agent process: tasks are
// garbage-eligible once the caller has consumed the terminal event and
// dropped the id.
type Store struct {
	mu       sync.RWMutex
	managers map[string]*Manager
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{managers: make(map[string]*Manager)}
}

// Add registers a manager. The id must not already be present.
func (s *Store) Add(m *Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.managers[m.ID()]; exists {
		return fmt.Errorf("task %s already registered", m.ID())
	}
	s.managers[m.ID()] = m
	return nil
}

// Get returns the manager for a task id.
func (s *Store) Get(taskID string) (*Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.managers[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	return m, nil
}

// Remove drops a manager from the store.
func (s *Store) Remove(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.managers, taskID)
}

// Len returns the number of registered tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.managers)
}
