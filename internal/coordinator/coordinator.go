// Package coordinator orchestrates the weather fetch pipeline: location and
// region resolution, the concurrent current+forecast requests, bundle
// merging, cache writes, and the retry policy for unstable networks. It
// owns the published state the presentation layer reads.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/skycastapp/skycast/internal/cache"
	"github.com/skycastapp/skycast/internal/gateway"
	"github.com/skycastapp/skycast/internal/geocode"
	"github.com/skycastapp/skycast/internal/location"
	"github.com/skycastapp/skycast/internal/netmon"
	"github.com/skycastapp/skycast/internal/region"
	"github.com/skycastapp/skycast/internal/telemetry"
	"github.com/skycastapp/skycast/internal/weather"
)

// errUnstableNetwork gates fetching until the stability monitor trusts the
// network. It never escapes the retry loop.
var errUnstableNetwork = errors.New("network not yet stable")

// MultipleErrors aggregates per-city failures from a batch fetch.
type MultipleErrors map[string]error

func (m MultipleErrors) Error() string {
	cities := make([]string, 0, len(m))
	for city := range m {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	parts := make([]string, 0, len(cities))
	for _, city := range cities {
		parts = append(parts, fmt.Sprintf("%s: %v", city, m[city]))
	}
	return fmt.Sprintf("%d cities failed: %s", len(m), strings.Join(parts, "; "))
}

// Geocoder resolves a coordinate to a region name.
type Geocoder interface {
	RegionName(ctx context.Context, lon, lat float64) (string, error)
}

// LocationProvider is the device location contract the coordinator needs.
type LocationProvider interface {
	Status() location.AuthorizationStatus
	RequestAuthorization(ctx context.Context)
	CurrentFix(ctx context.Context) (*location.Fix, error)
}

// Config holds configuration for the coordinator.
type Config struct {
	// Provider fetches weather data (required).
	Provider weather.Provider

	// Regions resolves names to administrative codes (required).
	Regions *region.Service

	// Bundles is the durable per-city bundle cache (required).
	Bundles *cache.BundleCache

	// Monitor gates network fetches (required).
	Monitor *netmon.Monitor

	// Geocoder resolves coordinates to region names (optional; without it
	// location-based fetches fall back to the default city).
	Geocoder Geocoder

	// Location provides device fixes (optional, see Geocoder).
	Location LocationProvider

	// DefaultCity is fetched when location resolution fails, so the UI is
	// never left empty (required).
	DefaultCity string

	// MaxAttempts bounds the stabilization retry loop. Default: 5.
	MaxAttempts int

	// RetryInterval is the fixed backoff between attempts. Default: 1s.
	RetryInterval time.Duration

	// BatchConcurrency is the batch fetch window size. Default: 3.
	BatchConcurrency int

	// AuthPollAttempts is how many times authorization is polled after a
	// permission request. Default: 3.
	AuthPollAttempts int

	// AuthPollInterval is the spacing between authorization polls.
	// Default: 1s.
	AuthPollInterval time.Duration

	// Metrics records provider call and cache metrics (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for coordinator operations.
	Logger zerolog.Logger
}

// Coordinator runs the fetch pipeline and publishes its results. All
// published state (active bundle, per-city map, loading flag, last error)
// is mutated only under the coordinator's lock.
type Coordinator struct {
	provider    weather.Provider
	regions     *region.Service
	bundles     *cache.BundleCache
	monitor     *netmon.Monitor
	geocoder    Geocoder
	location    LocationProvider
	defaultCity string

	maxAttempts      int
	retryInterval    time.Duration
	batchConcurrency int
	authPollAttempts int
	authPollInterval time.Duration

	metrics *telemetry.ProviderMetrics
	logger  zerolog.Logger
	tracer  trace.Tracer

	// Published state.
	mu      sync.RWMutex
	active  *weather.CityWeatherBundle
	byCity  map[string]*weather.CityWeatherBundle
	loading bool
	lastErr error

	// Single-flight slot: a new fetch supersedes the previous one.
	flightMu     sync.Mutex
	flightGen    uint64
	flightCancel context.CancelFunc
}

// New creates a coordinator.
func New(cfg Config) *Coordinator {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 1 * time.Second
	}
	if cfg.BatchConcurrency == 0 {
		cfg.BatchConcurrency = 3
	}
	if cfg.AuthPollAttempts == 0 {
		cfg.AuthPollAttempts = 3
	}
	if cfg.AuthPollInterval == 0 {
		cfg.AuthPollInterval = 1 * time.Second
	}

	return &Coordinator{
		provider:         cfg.Provider,
		regions:          cfg.Regions,
		bundles:          cfg.Bundles,
		monitor:          cfg.Monitor,
		geocoder:         cfg.Geocoder,
		location:         cfg.Location,
		defaultCity:      cfg.DefaultCity,
		maxAttempts:      cfg.MaxAttempts,
		retryInterval:    cfg.RetryInterval,
		batchConcurrency: cfg.BatchConcurrency,
		authPollAttempts: cfg.AuthPollAttempts,
		authPollInterval: cfg.AuthPollInterval,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		tracer:           otel.Tracer("skycast/coordinator"),
		byCity:           make(map[string]*weather.CityWeatherBundle),
	}
}

// Warm loads previously cached bundles into the per-city map at startup.
func (c *Coordinator) Warm(ctx context.Context) error {
	bundles, err := c.bundles.All(ctx)
	if err != nil {
		return fmt.Errorf("warming bundle state: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for city, b := range bundles {
		c.byCity[city] = b
	}

	c.logger.Info().Int("bundles", len(bundles)).Msg("warmed cached bundles")
	return nil
}

// FetchWeather fetches the bundle for a city. An empty city means "current
// location": the device position is resolved and reverse-geocoded first,
// falling back to the default city if that fails. A new call supersedes any
// fetch still in flight; the superseded fetch never publishes.
func (c *Coordinator) FetchWeather(ctx context.Context, city string) (*weather.CityWeatherBundle, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.FetchWeather",
		trace.WithAttributes(attribute.String("city", city)))
	defer span.End()

	fctx, gen, cancel := c.beginFlight(ctx)
	defer c.finishFlight(gen, cancel)

	c.setLoading(gen, true)

	name := city
	if name == "" {
		name = c.resolveLocationName(fctx)
	}

	bundle, err := c.fetchCity(fctx, name)
	if err != nil {
		span.RecordError(err)
		c.recordFailure(gen, err)
		return nil, err
	}

	c.publish(gen, name, bundle)
	return bundle, nil
}

// FetchByCoordinate reverse-geocodes the coordinate and fetches the
// resulting region.
func (c *Coordinator) FetchByCoordinate(ctx context.Context, lon, lat float64) (*weather.CityWeatherBundle, error) {
	if c.geocoder == nil {
		return nil, weather.ErrLocationNotFound
	}

	name, err := c.geocoder.RegionName(ctx, lon, lat)
	if err != nil {
		if errors.Is(err, geocode.ErrLocationNotFound) {
			return nil, weather.ErrLocationNotFound
		}
		return nil, fmt.Errorf("%w: %v", weather.ErrLocationNotFound, err)
	}

	return c.FetchWeather(ctx, name)
}

// FetchMany fetches several cities with a sliding window of
// BatchConcurrency simultaneous fetches: as each completes, the next queued
// city starts. Successful bundles are applied to the shared per-city store
// even when other cities fail; any failure yields MultipleErrors.
func (c *Coordinator) FetchMany(ctx context.Context, cities []string) (map[string]*weather.CityWeatherBundle, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.FetchMany",
		trace.WithAttributes(attribute.Int("cities", len(cities))))
	defer span.End()

	sem := make(chan struct{}, c.batchConcurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	results := make(map[string]*weather.CityWeatherBundle, len(cities))
	failures := make(MultipleErrors)

	for _, city := range cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			bundle, err := c.fetchCity(ctx, city)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[city] = err
				return
			}
			results[city] = bundle
		}(city)
	}

	wg.Wait()

	// Apply partial successes to the shared per-city map.
	c.mu.Lock()
	for city, bundle := range results {
		c.byCity[city] = bundle
	}
	c.mu.Unlock()

	if len(failures) > 0 {
		span.RecordError(failures)
		return results, failures
	}
	return results, nil
}

// fetchCity runs the cache-first, stability-gated fetch for one city. It
// mutates no published state; callers decide what to publish.
func (c *Coordinator) fetchCity(ctx context.Context, name string) (*weather.CityWeatherBundle, error) {
	// The cache is authoritative: a hit never triggers a network call.
	if cached, err := c.bundles.Get(ctx, name); err == nil {
		c.metrics.RecordCacheHit(c.provider.Name(), "bundle")
		c.logger.Debug().Str("city", name).Msg("serving cached bundle")
		return cached, nil
	}
	c.metrics.RecordCacheMiss(c.provider.Name(), "bundle")

	var bundle *weather.CityWeatherBundle

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		if !c.monitor.Stable(ctx) {
			return errUnstableNetwork
		}

		b, err := c.fetchOnce(ctx, name)
		if err != nil {
			// Throttled calls clear shortly; everything else is
			// terminal for this fetch.
			if errors.Is(err, gateway.ErrThrottled) {
				return err
			}
			return backoff.Permanent(err)
		}

		bundle = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), uint64(c.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, errUnstableNetwork) || errors.Is(err, gateway.ErrThrottled) {
			// Retries exhausted on an unstable network: a stale cached
			// bundle beats an empty screen.
			if cached, cacheErr := c.bundles.Get(ctx, name); cacheErr == nil {
				c.logger.Warn().Str("city", name).Msg("network unstable, serving stale bundle")
				return cached, nil
			}
			return nil, weather.ErrNetworkUnavailable
		}
		return nil, err
	}

	if err := c.bundles.Set(ctx, name, bundle); err != nil {
		c.logger.Error().Err(err).Str("city", name).Msg("failed to cache bundle")
	}

	return bundle, nil
}

// fetchOnce resolves the administrative code and issues the two provider
// requests concurrently. Both must succeed; a partial bundle is never
// returned.
func (c *Coordinator) fetchOnce(ctx context.Context, name string) (*weather.CityWeatherBundle, error) {
	adcode, err := c.regions.CodeForName(ctx, name)
	if err != nil {
		if errors.Is(err, region.ErrRegionNotFound) {
			return nil, weather.ErrCityNotFound
		}
		return nil, err
	}

	var (
		lives []weather.CurrentConditions
		casts []weather.DailyForecast
	)

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lives, err = c.provider.CurrentConditions(gctx, adcode)
		return err
	})
	g.Go(func() error {
		var err error
		casts, err = c.provider.Forecast(gctx, adcode)
		return err
	})

	err = g.Wait()
	c.metrics.RecordRequest(c.provider.Name(), "bundle", time.Since(start), err)
	if err != nil {
		return nil, translateProviderError(err)
	}

	if len(lives) == 0 || len(casts) == 0 {
		return nil, weather.ErrDataParsing
	}

	return &weather.CityWeatherBundle{
		CityNames: []string{name},
		Current:   lives,
		Forecast:  casts,
	}, nil
}

// translateProviderError maps provider and transport failures into the
// domain taxonomy. Raw transport errors never reach callers.
func translateProviderError(err error) error {
	var apiErr *weather.APIError
	switch {
	case errors.As(err, &apiErr),
		errors.Is(err, weather.ErrMissingCredentials),
		errors.Is(err, weather.ErrInvalidAdministrativeCode),
		errors.Is(err, weather.ErrDataParsing),
		errors.Is(err, gateway.ErrThrottled):
		return err
	case errors.Is(err, weather.ErrNetwork):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", weather.ErrNetwork, err)
	}
}

// resolveLocationName resolves the device position to a region name,
// falling back to the default city on any failure so the UI is never left
// empty.
func (c *Coordinator) resolveLocationName(ctx context.Context) string {
	name, err := c.locateRegion(ctx)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("fallback", c.defaultCity).
			Msg("location resolution failed, using default city")
		return c.defaultCity
	}
	return name
}

// locateRegion runs the authorization flow, acquires a fix, and
// reverse-geocodes it.
func (c *Coordinator) locateRegion(ctx context.Context) (string, error) {
	if c.location == nil || c.geocoder == nil {
		return "", weather.ErrLocationNotFound
	}

	switch c.location.Status() {
	case location.StatusAuthorized:
		// Fall through to the fix request.

	case location.StatusNotDetermined:
		c.location.RequestAuthorization(ctx)
		if err := c.awaitAuthorization(ctx); err != nil {
			return "", err
		}

	default:
		return "", weather.ErrLocationAuthorizationDenied
	}

	fix, err := c.location.CurrentFix(ctx)
	if err != nil {
		return "", err
	}

	name, err := c.geocoder.RegionName(ctx, fix.Lon, fix.Lat)
	if err != nil {
		if errors.Is(err, geocode.ErrLocationNotFound) {
			return "", weather.ErrLocationNotFound
		}
		return "", err
	}

	return name, nil
}

// awaitAuthorization polls the permission state after a request.
func (c *Coordinator) awaitAuthorization(ctx context.Context) error {
	for i := 0; i < c.authPollAttempts; i++ {
		select {
		case <-time.After(c.authPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		switch c.location.Status() {
		case location.StatusAuthorized:
			return nil
		case location.StatusDenied, location.StatusRestricted:
			return weather.ErrLocationAuthorizationDenied
		}
	}

	return weather.ErrLocationAuthorizationTimeout
}

// beginFlight supersedes any in-flight fetch and opens a new slot.
func (c *Coordinator) beginFlight(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	if c.flightCancel != nil {
		c.flightCancel()
	}

	fctx, cancel := context.WithCancel(ctx)
	c.flightGen++
	c.flightCancel = cancel
	return fctx, c.flightGen, cancel
}

// finishFlight releases the slot if this fetch still owns it.
func (c *Coordinator) finishFlight(gen uint64, cancel context.CancelFunc) {
	c.flightMu.Lock()
	if c.flightGen == gen {
		c.flightCancel = nil
	}
	c.flightMu.Unlock()
	cancel()
}

// owns reports whether the fetch with the given generation still owns the
// single-flight slot.
func (c *Coordinator) owns(gen uint64) bool {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	return c.flightGen == gen
}

// publish makes the bundle the active one. A superseded fetch publishes
// nothing.
func (c *Coordinator) publish(gen uint64, name string, bundle *weather.CityWeatherBundle) {
	if !c.owns(gen) {
		c.logger.Debug().Str("city", name).Msg("fetch superseded, dropping result")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = bundle
	c.byCity[name] = bundle
	c.loading = false
	c.lastErr = nil
}

// recordFailure publishes the terminal failure and clears the loading flag.
func (c *Coordinator) recordFailure(gen uint64, err error) {
	if !c.owns(gen) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	c.loading = false
}

func (c *Coordinator) setLoading(gen uint64, v bool) {
	if !c.owns(gen) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = v
}

// Active returns the currently published bundle, if any.
func (c *Coordinator) Active() *weather.CityWeatherBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Bundle returns the fetched bundle for a city, if any.
func (c *Coordinator) Bundle(city string) (*weather.CityWeatherBundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byCity[city]
	return b, ok
}

// Loading reports whether a fetch is pending.
func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastError returns the most recent terminal failure, if any.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}
