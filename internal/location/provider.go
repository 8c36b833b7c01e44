// Package location wraps single-shot device location requests: authorization
// state, a fix timeout, and de-duplication of near-simultaneous fixes.
package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Location errors.
var (
	// ErrServiceFailed is returned when no fix arrives before the timeout
	// or the source reports a failure.
	ErrServiceFailed = errors.New("location service failed")
)

// AuthorizationStatus is the device location permission state.
type AuthorizationStatus int

const (
	StatusNotDetermined AuthorizationStatus = iota
	StatusAuthorized
	StatusDenied
	StatusRestricted
)

// String returns the status name for logging.
func (s AuthorizationStatus) String() string {
	switch s {
	case StatusNotDetermined:
		return "not_determined"
	case StatusAuthorized:
		return "authorized"
	case StatusDenied:
		return "denied"
	case StatusRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Fix is one location fix.
type Fix struct {
	Lon float64
	Lat float64
	At  time.Time
}

// Event is one delivery from the underlying source: a fix or a failure.
type Event struct {
	Fix *Fix
	Err error
}

// Source is the underlying device location bridge.
type Source interface {
	// AuthorizationStatus returns the current permission state.
	AuthorizationStatus() AuthorizationStatus

	// RequestAuthorization asks the device for location permission. The
	// result surfaces through AuthorizationStatus on a later poll.
	RequestAuthorization(ctx context.Context)

	// Events delivers fixes and failures.
	Events() <-chan Event
}

// Config holds configuration for the provider.
type Config struct {
	// Source is the device bridge (required).
	Source Source

	// FixTimeout is how long to wait for a fix. Default: 30 seconds.
	FixTimeout time.Duration

	// DedupWindow treats two fixes within this window as one event; the
	// second is dropped. Default: 1 second.
	DedupWindow time.Duration

	// Logger for provider operations.
	Logger zerolog.Logger
}

// Provider wraps a Source with a timeout and fix de-duplication. Each fix
// request owns its own wait on the event channel; there is no shared
// callback slot to swap and restore.
type Provider struct {
	source      Source
	fixTimeout  time.Duration
	dedupWindow time.Duration
	logger      zerolog.Logger

	mu       sync.Mutex
	lastSeen time.Time
}

// NewProvider creates a location provider.
func NewProvider(cfg Config) *Provider {
	if cfg.FixTimeout == 0 {
		cfg.FixTimeout = 30 * time.Second
	}
	if cfg.DedupWindow == 0 {
		cfg.DedupWindow = 1 * time.Second
	}

	return &Provider{
		source:      cfg.Source,
		fixTimeout:  cfg.FixTimeout,
		dedupWindow: cfg.DedupWindow,
		logger:      cfg.Logger,
	}
}

// Status returns the current permission state.
func (p *Provider) Status() AuthorizationStatus {
	return p.source.AuthorizationStatus()
}

// RequestAuthorization asks the device for location permission.
func (p *Provider) RequestAuthorization(ctx context.Context) {
	p.source.RequestAuthorization(ctx)
}

// CurrentFix waits for a single location fix. Fixes arriving within the
// dedup window of the previous accepted fix are dropped. Returns
// ErrServiceFailed if no fix arrives before the timeout or the source
// reports a failure.
func (p *Provider) CurrentFix(ctx context.Context) (*Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fixTimeout)
	defer cancel()

	for {
		select {
		case ev := <-p.source.Events():
			if ev.Err != nil {
				return nil, errors.Join(ErrServiceFailed, ev.Err)
			}
			if ev.Fix == nil {
				continue
			}
			if p.duplicate(ev.Fix.At) {
				p.logger.Debug().Time("at", ev.Fix.At).Msg("dropped duplicate fix")
				continue
			}
			return ev.Fix, nil

		case <-ctx.Done():
			return nil, ErrServiceFailed
		}
	}
}

// duplicate reports whether a fix at t falls inside the dedup window of the
// previously accepted fix, updating the bookkeeping when it does not.
func (p *Provider) duplicate(t time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastSeen.IsZero() && t.Sub(p.lastSeen) < p.dedupWindow {
		return true
	}
	p.lastSeen = t
	return false
}
