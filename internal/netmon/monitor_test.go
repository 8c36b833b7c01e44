package netmon

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStableRequiresConsecutiveSuccesses(t *testing.T) {
	m := NewMonitor(Config{
		Check:     func(context.Context) error { return nil },
		Threshold: 2,
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()

	assert.False(t, m.Stable(ctx)) // streak 1
	assert.True(t, m.Stable(ctx))  // streak 2
	assert.True(t, m.Stable(ctx))  // stays stable
}

func TestFailedCheckResetsStreak(t *testing.T) {
	var fail bool
	m := NewMonitor(Config{
		Check: func(context.Context) error {
			if fail {
				return errors.New("probe failed")
			}
			return nil
		},
		Threshold: 2,
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()

	assert.False(t, m.Stable(ctx))
	assert.True(t, m.Stable(ctx))

	fail = true
	assert.False(t, m.Stable(ctx))

	// The streak starts over after a failure.
	fail = false
	assert.False(t, m.Stable(ctx))
	assert.True(t, m.Stable(ctx))
}

func TestReset(t *testing.T) {
	m := NewMonitor(Config{
		Check:     func(context.Context) error { return nil },
		Threshold: 2,
		Logger:    zerolog.Nop(),
	})

	ctx := context.Background()

	m.Stable(ctx)
	m.Stable(ctx)
	m.Reset()

	assert.False(t, m.Stable(ctx))
}
