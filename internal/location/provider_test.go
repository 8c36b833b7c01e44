package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	status AuthorizationStatus
	events chan Event
}

func newFakeSource(status AuthorizationStatus) *fakeSource {
	return &fakeSource{status: status, events: make(chan Event, 8)}
}

func (s *fakeSource) AuthorizationStatus() AuthorizationStatus { return s.status }
func (s *fakeSource) RequestAuthorization(context.Context)     {}
func (s *fakeSource) Events() <-chan Event                     { return s.events }

func TestCurrentFix(t *testing.T) {
	src := newFakeSource(StatusAuthorized)
	p := NewProvider(Config{Source: src, Logger: zerolog.Nop()})

	want := &Fix{Lon: 116.31, Lat: 39.99, At: time.Now()}
	src.events <- Event{Fix: want}

	got, err := p.CurrentFix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCurrentFixTimeout(t *testing.T) {
	src := newFakeSource(StatusAuthorized)
	p := NewProvider(Config{
		Source:     src,
		FixTimeout: 20 * time.Millisecond,
		Logger:     zerolog.Nop(),
	})

	_, err := p.CurrentFix(context.Background())
	assert.ErrorIs(t, err, ErrServiceFailed)
}

func TestCurrentFixSourceFailure(t *testing.T) {
	src := newFakeSource(StatusAuthorized)
	p := NewProvider(Config{Source: src, Logger: zerolog.Nop()})

	src.events <- Event{Err: errors.New("gps unavailable")}

	_, err := p.CurrentFix(context.Background())
	assert.ErrorIs(t, err, ErrServiceFailed)
}

func TestCurrentFixDropsDuplicates(t *testing.T) {
	src := newFakeSource(StatusAuthorized)
	p := NewProvider(Config{
		Source:      src,
		DedupWindow: time.Second,
		FixTimeout:  50 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})

	base := time.Now()
	first := &Fix{Lon: 116.31, Lat: 39.99, At: base}
	src.events <- Event{Fix: first}

	got, err := p.CurrentFix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// A second fix inside the dedup window is dropped; with nothing else
	// arriving the request times out.
	src.events <- Event{Fix: &Fix{Lon: 116.32, Lat: 39.98, At: base.Add(200 * time.Millisecond)}}
	_, err = p.CurrentFix(context.Background())
	assert.ErrorIs(t, err, ErrServiceFailed)

	// A fix outside the window is accepted.
	later := &Fix{Lon: 116.33, Lat: 39.97, At: base.Add(2 * time.Second)}
	src.events <- Event{Fix: later}
	got, err = p.CurrentFix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, later, got)
}

func TestAuthorizationStatusString(t *testing.T) {
	assert.Equal(t, "not_determined", StatusNotDetermined.String())
	assert.Equal(t, "authorized", StatusAuthorized.String())
	assert.Equal(t, "denied", StatusDenied.String())
	assert.Equal(t, "restricted", StatusRestricted.String())
}
