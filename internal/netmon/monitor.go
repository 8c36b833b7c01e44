// Package netmon tracks network stability: the network is trusted only
// after a run of consecutive successful connectivity checks.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CheckFunc probes connectivity once. A nil error is a successful check.
type CheckFunc func(ctx context.Context) error

// Config holds configuration for the monitor.
type Config struct {
	// Check is the connectivity probe. If nil, DefaultCheck is used.
	Check CheckFunc

	// Threshold is the number of consecutive successful checks required
	// before the network is considered stable. Default: 2.
	Threshold int

	// Logger for monitor operations.
	Logger zerolog.Logger
}

// Monitor counts consecutive successful connectivity checks.
type Monitor struct {
	check     CheckFunc
	threshold int
	logger    zerolog.Logger

	mu     sync.Mutex
	streak int
}

// NewMonitor creates a network-stability monitor.
func NewMonitor(cfg Config) *Monitor {
	if cfg.Check == nil {
		cfg.Check = DefaultCheck("https://restapi.amap.com")
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 2
	}

	return &Monitor{
		check:     cfg.Check,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
	}
}

// Stable runs one check and reports whether the success streak has reached
// the threshold. Any failed check resets the streak.
func (m *Monitor) Stable(ctx context.Context) bool {
	err := m.check(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		if m.streak > 0 {
			m.logger.Debug().Err(err).Msg("connectivity check failed, streak reset")
		}
		m.streak = 0
		return false
	}

	m.streak++
	return m.streak >= m.threshold
}

// Reset clears the success streak.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streak = 0
}

// DefaultCheck probes the given URL with a HEAD request.
func DefaultCheck(url string) CheckFunc {
	client := &http.Client{Timeout: 5 * time.Second}

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
}
