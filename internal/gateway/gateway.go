// Package gateway is the single entry point for outbound provider calls.
// It throttles repeated calls to the same URL, shares in-flight requests
// between callers, and bounds the number of simultaneous requests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/skycastapp/skycast/internal/provider/resilience"
)

// ErrThrottled is returned when a URL is requested again before the minimum
// spacing has elapsed. Throttled calls are rejected, never queued.
var ErrThrottled = errors.New("request throttled")

// Response is the buffered result of an outbound call. The body is read
// fully so one in-flight request can serve every waiting caller.
type Response struct {
	StatusCode int
	Body       []byte
}

// Config holds configuration for the gateway.
type Config struct {
	// Client is the transport used for outbound calls.
	// If nil, a resilient client with defaults is created.
	Client *resilience.Client

	// MinInterval is the minimum spacing between completed calls to the
	// identical URL. Default: 2 seconds.
	MinInterval time.Duration

	// MaxConcurrent is the maximum number of simultaneous distinct
	// requests. Default: 4.
	MaxConcurrent int

	// PurgeInterval is how often stale per-URL timestamps are dropped.
	// Default: 5 minutes (entries older than PurgeInterval are removed).
	PurgeInterval time.Duration

	// RecycleInterval is how often the transport session is recycled.
	// Default: 1 hour.
	RecycleInterval time.Duration

	// Logger for gateway operations.
	Logger zerolog.Logger
}

// Gateway rate-limits, deduplicates, and executes outbound HTTP GETs.
type Gateway struct {
	client  *resilience.Client
	logger  zerolog.Logger
	group   singleflight.Group
	permits chan struct{}

	minInterval time.Duration

	mu       sync.Mutex
	lastCall map[string]time.Time

	done chan struct{}
	once sync.Once
}

// New creates a gateway and starts its housekeeping loop.
func New(cfg Config) *Gateway {
	if cfg.Client == nil {
		cfg.Client = resilience.NewClient(resilience.DefaultClientConfig("gateway"))
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 2 * time.Second
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.PurgeInterval == 0 {
		cfg.PurgeInterval = 5 * time.Minute
	}
	if cfg.RecycleInterval == 0 {
		cfg.RecycleInterval = 1 * time.Hour
	}

	g := &Gateway{
		client:      cfg.Client,
		logger:      cfg.Logger,
		permits:     make(chan struct{}, cfg.MaxConcurrent),
		minInterval: cfg.MinInterval,
		lastCall:    make(map[string]time.Time),
		done:        make(chan struct{}),
	}

	go g.housekeeping(cfg.PurgeInterval, cfg.RecycleInterval)

	return g
}

// Get executes a GET against url. Callers racing on the same URL share one
// in-flight request and receive the same response. A repeated call to a URL
// within MinInterval of the previous one fails with ErrThrottled.
func (g *Gateway) Get(ctx context.Context, url string) (*Response, error) {
	result, err, shared := g.group.Do(url, func() (interface{}, error) {
		if err := g.stamp(url); err != nil {
			return nil, err
		}
		return g.execute(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		g.logger.Debug().Str("url", url).Msg("joined in-flight request")
	}

	return result.(*Response), nil
}

// stamp enforces the per-URL minimum spacing and records the call time.
func (g *Gateway) stamp(url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if last, ok := g.lastCall[url]; ok && now.Sub(last) < g.minInterval {
		return ErrThrottled
	}
	g.lastCall[url] = now
	return nil
}

func (g *Gateway) execute(ctx context.Context, url string) (*Response, error) {
	select {
	case g.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.permits }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// housekeeping purges stale rate-limit timestamps and recycles the transport
// session until Close is called.
func (g *Gateway) housekeeping(purgeInterval, recycleInterval time.Duration) {
	purge := time.NewTicker(purgeInterval)
	defer purge.Stop()
	recycle := time.NewTicker(recycleInterval)
	defer recycle.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-purge.C:
			g.purge(purgeInterval)
		case <-recycle.C:
			g.client.CloseIdleConnections()
			g.logger.Debug().Msg("recycled transport session")
		}
	}
}

func (g *Gateway) purge(maxAge time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	purged := 0
	for url, last := range g.lastCall {
		if last.Before(cutoff) {
			delete(g.lastCall, url)
			purged++
		}
	}

	if purged > 0 {
		g.logger.Debug().Int("purged", purged).Msg("purged rate-limit bookkeeping")
	}
}

// Close stops the housekeeping loop.
func (g *Gateway) Close() {
	g.once.Do(func() { close(g.done) })
}
