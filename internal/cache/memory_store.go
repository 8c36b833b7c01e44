package cache

import (
	"context"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string][]byte),
	}
}

// Get retrieves the value for a key.
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	// Return a copy
	cpy := make([]byte, len(value))
	copy(cpy, value)
	return cpy, nil
}

// Set stores a value under a key.
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := make([]byte, len(value))
	copy(cpy, value)
	s.entries[key] = cpy
	return nil
}

// GetAll returns every stored entry.
func (s *InMemoryStore) GetAll(_ context.Context) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string][]byte, len(s.entries))
	for k, v := range s.entries {
		cpy := make([]byte, len(v))
		copy(cpy, v)
		all[k] = cpy
	}
	return all, nil
}

// Ensure InMemoryStore implements Store interface.
var _ Store = (*InMemoryStore)(nil)
