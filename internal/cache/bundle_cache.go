package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skycastapp/skycast/internal/weather"
)

// DefaultBundlePrefix namespaces bundle entries in the shared store.
const DefaultBundlePrefix = "weather"

// BundleCache stores the last successfully fetched CityWeatherBundle per
// city, addressed by display name. Entries persist until overwritten.
type BundleCache struct {
	store  Store
	prefix string
}

// NewBundleCache creates a bundle cache over the given store.
func NewBundleCache(store Store, prefix string) *BundleCache {
	if prefix == "" {
		prefix = DefaultBundlePrefix
	}
	return &BundleCache{store: store, prefix: prefix}
}

func (c *BundleCache) key(city string) string {
	return c.prefix + "_" + city
}

// Get retrieves the cached bundle for a city. Returns ErrKeyNotFound on
// miss.
func (c *BundleCache) Get(ctx context.Context, city string) (*weather.CityWeatherBundle, error) {
	raw, err := c.store.Get(ctx, c.key(city))
	if err != nil {
		return nil, err
	}

	var bundle weather.CityWeatherBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("decoding cached bundle: %w", err)
	}

	return &bundle, nil
}

// Set stores the bundle for a city, overwriting any previous entry.
func (c *BundleCache) Set(ctx context.Context, city string, bundle *weather.CityWeatherBundle) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}

	return c.store.Set(ctx, c.key(city), raw)
}

// All returns every cached bundle keyed by city name. Used to warm the
// coordinator's per-city map at startup.
func (c *BundleCache) All(ctx context.Context) (map[string]*weather.CityWeatherBundle, error) {
	entries, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	bundles := make(map[string]*weather.CityWeatherBundle)
	for key, raw := range entries {
		city, ok := strings.CutPrefix(key, c.prefix+"_")
		if !ok {
			continue
		}

		var bundle weather.CityWeatherBundle
		if err := json.Unmarshal(raw, &bundle); err != nil {
			// A corrupt entry should not poison the warm-up.
			continue
		}
		bundles[city] = &bundle
	}

	return bundles, nil
}
