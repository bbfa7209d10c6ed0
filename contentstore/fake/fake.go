// Package fake provides an in-memory contentstore.Store test double.
package fake

import (
	"context"
	"sync"
)

// Store is a map-backed contentstore.Store.
type Store struct {
	mu   sync.Mutex
	data map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Get implements contentstore.Store.
func (s *Store) Get(ctx context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.data[id]
	return text, ok, nil
}

// Put implements contentstore.Store.
func (s *Store) Put(ctx context.Context, id string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = text
	return nil
}

// Delete removes id, so a test can simulate an orphaned vector.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}
