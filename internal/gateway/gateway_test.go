package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycastapp/skycast/internal/gateway"
)

func TestGetThrottlesRepeatedURL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"status":"1"}`))
	}))
	defer srv.Close()

	g := gateway.New(gateway.Config{
		MinInterval: 50 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})
	defer g.Close()

	ctx := context.Background()

	resp, err := g.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"1"}`, string(resp.Body))

	// A repeat inside the spacing window is rejected, not queued.
	_, err = g.Get(ctx, srv.URL)
	assert.ErrorIs(t, err, gateway.ErrThrottled)
	assert.EqualValues(t, 1, hits.Load())

	// After the window elapses the URL is callable again.
	time.Sleep(60 * time.Millisecond)
	_, err = g.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestGetDistinctURLsNotThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	g := gateway.New(gateway.Config{
		MinInterval: time.Minute,
		Logger:      zerolog.Nop(),
	})
	defer g.Close()

	ctx := context.Background()

	_, err := g.Get(ctx, srv.URL+"/a")
	require.NoError(t, err)

	// The throttle is per URL; a different URL goes straight through.
	_, err = g.Get(ctx, srv.URL+"/b")
	require.NoError(t, err)
}

func TestGetSharesInFlightRequest(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte("shared"))
	}))
	defer srv.Close()

	g := gateway.New(gateway.Config{
		MinInterval: time.Minute,
		Logger:      zerolog.Nop(),
	})
	defer g.Close()

	ctx := context.Background()
	const callers = 5

	var wg sync.WaitGroup
	bodies := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := g.Get(ctx, srv.URL)
			errs[i] = err
			if err == nil {
				bodies[i] = string(resp.Body)
			}
		}(i)
	}

	// Let the callers pile onto the single in-flight request.
	require.Eventually(t, func() bool {
		return hits.Load() == 1
	}, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// One server hit serves every caller.
	assert.EqualValues(t, 1, hits.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", bodies[i])
	}
}

func TestGetBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(30 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	g := gateway.New(gateway.Config{
		MinInterval:   time.Minute,
		MaxConcurrent: 2,
		Logger:        zerolog.Nop(),
	})
	defer g.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := g.Get(ctx, srv.URL+"/"+string(rune('a'+i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestGetContextCancelled(t *testing.T) {
	g := gateway.New(gateway.Config{
		MaxConcurrent: 1,
		Logger:        zerolog.Nop(),
	})
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Get(ctx, "http://127.0.0.1:0/unreachable")
	assert.ErrorIs(t, err, context.Canceled)
}
