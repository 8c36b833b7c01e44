// Package geocode resolves coordinates to region names via a remote
// reverse-geocoding provider, with a process-lifetime coordinate cache.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Geocoding errors.
var (
	ErrLocationNotFound   = errors.New("no administrative unit for coordinate")
	ErrInvalidCredentials = errors.New("geocoding credentials rejected")
	ErrRateLimited        = errors.New("geocoding rate limit exceeded")
	ErrServer             = errors.New("geocoding provider server error")
)

// APIError is a failure reported inside the provider's response payload,
// separate from the HTTP status.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geocoding api error: %s", e.Message)
}

// Address is the administrative breakdown of a reverse-geocoded coordinate.
type Address struct {
	Province  string
	District  string
	Formatted string
}

// Client is the remote reverse-geocoding provider.
type Client interface {
	// ReverseGeocode resolves a coordinate to an address.
	ReverseGeocode(ctx context.Context, lon, lat float64) (*Address, error)
}

// Service resolves coordinates to region names, consulting an in-memory
// cache before the remote provider. Cached entries never expire.
type Service struct {
	client Client
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewService creates a geocoding service.
func NewService(client Client, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
		cache:  make(map[string]string),
	}
}

// coordKey builds the canonical cache key for a coordinate.
func coordKey(lon, lat float64) string {
	return fmt.Sprintf("%.6f,%.6f", lon, lat)
}

// RegionName returns a region name for the coordinate, suitable for lookup
// in the region table. The most specific non-empty administrative unit wins:
// district, else province; neither present fails with ErrLocationNotFound.
func (s *Service) RegionName(ctx context.Context, lon, lat float64) (string, error) {
	key := coordKey(lon, lat)

	s.mu.RLock()
	name, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return name, nil
	}

	addr, err := s.client.ReverseGeocode(ctx, lon, lat)
	if err != nil {
		return "", err
	}

	name = addr.District
	if name == "" {
		name = addr.Province
	}
	if name == "" {
		return "", ErrLocationNotFound
	}

	// Cache write happens off the calling path and must not block the
	// caller.
	go func() {
		s.mu.Lock()
		s.cache[key] = name
		s.mu.Unlock()
	}()

	s.logger.Debug().
		Str("coord", key).
		Str("region", name).
		Msg("reverse-geocoded coordinate")

	return name, nil
}

// CacheSize returns the number of cached coordinate entries.
func (s *Service) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
