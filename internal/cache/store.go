// Package cache provides durable key-value storage for fetched weather
// bundles and the pinned-card list.
package cache

import (
	"context"
	"errors"
)

// Cache errors.
var (
	ErrKeyNotFound = errors.New("key not found")
)

// Store is an explicit key-value storage interface. Entries persist until
// overwritten; there is no eviction and no TTL.
type Store interface {
	// Get retrieves the value for a key. Returns ErrKeyNotFound on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under a key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// GetAll returns every stored entry. Used to warm in-memory state at
	// startup.
	GetAll(ctx context.Context) (map[string][]byte, error)
}
