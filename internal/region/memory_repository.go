package region

import (
	"context"
	"strings"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Rows keep insertion order so search results are stable.
type InMemoryRepository struct {
	mu      sync.RWMutex
	rows    []Region
	byName  map[string]int
	byCode  map[string]int
}

// NewInMemoryRepository creates a new in-memory region repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byName: make(map[string]int),
		byCode: make(map[string]int),
	}
}

// GetByName retrieves a region by exact name match.
func (r *InMemoryRepository) GetByName(_ context.Context, name string) (*Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return nil, ErrRegionNotFound
	}

	cpy := r.rows[i]
	return &cpy, nil
}

// GetByCode retrieves a region by administrative code.
func (r *InMemoryRepository) GetByCode(_ context.Context, adcode string) (*Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byCode[adcode]
	if !ok {
		return nil, ErrRegionNotFound
	}

	cpy := r.rows[i]
	return &cpy, nil
}

// Search returns regions whose name contains the substring, in dataset order.
func (r *InMemoryRepository) Search(_ context.Context, substring string) ([]Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Region
	for _, row := range r.rows {
		if strings.Contains(row.Name, substring) {
			matches = append(matches, row)
		}
	}

	return matches, nil
}

// Insert adds a region row.
func (r *InMemoryRepository) Insert(_ context.Context, row Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows = append(r.rows, row)
	i := len(r.rows) - 1
	r.byName[row.Name] = i
	if row.Adcode != "" {
		if _, ok := r.byCode[row.Adcode]; !ok {
			r.byCode[row.Adcode] = i
		}
	}
	return nil
}

// Count returns the number of rows.
func (r *InMemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows), nil
}

// Reset removes all rows.
func (r *InMemoryRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows = nil
	r.byName = make(map[string]int)
	r.byCode = make(map[string]int)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
