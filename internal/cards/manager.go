package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skycastapp/skycast/internal/cache"
)

// storeKey is the well-known key the whole card list is persisted under.
const storeKey = "weather_cards"

// Manager owns the pinned-card list. The list order is user controlled and
// persisted; new cards go first.
type Manager struct {
	store  cache.Store
	logger zerolog.Logger

	mu      sync.RWMutex
	entries []*Entry
}

// NewManager creates a card manager warmed from the store.
func NewManager(ctx context.Context, store cache.Store, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{store: store, logger: logger}

	raw, err := store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return m, nil
		}
		return nil, fmt.Errorf("loading card list: %w", err)
	}

	if err := json.Unmarshal(raw, &m.entries); err != nil {
		return nil, fmt.Errorf("decoding card list: %w", err)
	}

	return m, nil
}

// List returns the cards in display order.
func (m *Manager) List() []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, len(m.entries))
	for i, e := range m.entries {
		cpy := *e
		out[i] = &cpy
	}
	return out
}

// Add pins a card. If a card with the same administrative code already
// exists, its snapshot fields are refreshed in place and its ID and
// position are kept; otherwise the entry gets a new ID and goes first.
func (m *Manager) Add(ctx context.Context, entry *Entry) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.entries {
		if existing.Adcode == entry.Adcode {
			existing.City = entry.City
			existing.Temperature = entry.Temperature
			existing.Condition = entry.Condition
			existing.HighTemp = entry.HighTemp
			existing.LowTemp = entry.LowTemp
			existing.Current = entry.Current
			existing.Forecast = entry.Forecast

			if err := m.persist(ctx); err != nil {
				return nil, err
			}

			cpy := *existing
			return &cpy, nil
		}
	}

	cpy := *entry
	cpy.ID = uuid.NewString()
	m.entries = append([]*Entry{&cpy}, m.entries...)

	if err := m.persist(ctx); err != nil {
		return nil, err
	}

	m.logger.Debug().Str("city", cpy.City).Str("adcode", cpy.Adcode).Msg("card pinned")

	out := cpy
	return &out, nil
}

// Remove deletes a card by ID.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return m.persist(ctx)
		}
	}

	return ErrCardNotFound
}

// Reorder rearranges the list to match the given ID order. Every existing
// card must appear exactly once.
func (m *Manager) Reorder(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ids) != len(m.entries) {
		return fmt.Errorf("reorder: got %d ids, have %d cards", len(ids), len(m.entries))
	}

	byID := make(map[string]*Entry, len(m.entries))
	for _, e := range m.entries {
		byID[e.ID] = e
	}

	reordered := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return ErrCardNotFound
		}
		delete(byID, id)
		reordered = append(reordered, e)
	}

	m.entries = reordered
	return m.persist(ctx)
}

// persist writes the whole list under the well-known key. Callers hold the
// lock.
func (m *Manager) persist(ctx context.Context) error {
	raw, err := json.Marshal(m.entries)
	if err != nil {
		return fmt.Errorf("encoding card list: %w", err)
	}

	return m.store.Set(ctx, storeKey, raw)
}
