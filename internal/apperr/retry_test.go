package apperr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakugaworks/cutflow/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRetrier(c *clock.FakeClock, cfg RetryConfig) *Retrier {
	return NewRetrier(c, zap.NewNop(), NewRecorder(zap.NewNop()), func() RetryConfig { return cfg })
}

// advanceUntil drives the fake clock from the test goroutine while Do
// blocks in backoff on another goroutine.
func advanceUntil(t *testing.T, c *clock.FakeClock, done <-chan error) error {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("retrier did not finish")
		default:
		}
		if c.PendingTimers() > 0 {
			c.Advance(time.Minute)
		}
	}
}

func TestRetrierRetriesTransientUntilSuccess(t *testing.T) {
	c := clock.NewFakeClock(time.Time{})
	r := newTestRetrier(c, RetryConfig{BaseDelay: 100 * time.Millisecond, MaxAttempts: 5})

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(context.Background(), "test.op", func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
	}()

	require.NoError(t, advanceUntil(t, c, done))
	assert.Equal(t, 3, attempts)
}

func TestRetrierNeverRetriesValidation(t *testing.T) {
	c := clock.NewFakeClock(time.Time{})
	r := newTestRetrier(c, RetryConfig{BaseDelay: 100 * time.Millisecond, MaxAttempts: 5})

	attempts := 0
	err := r.Do(context.Background(), "test.op", func(context.Context) error {
		attempts++
		return Validation("op", "bad input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, c.PendingTimers())
}

func TestRetrierNeverRetriesPermission(t *testing.T) {
	c := clock.NewFakeClock(time.Time{})
	r := newTestRetrier(c, RetryConfig{BaseDelay: 100 * time.Millisecond, MaxAttempts: 5})

	attempts := 0
	err := r.Do(context.Background(), "test.op", func(context.Context) error {
		attempts++
		return E(ClassPermission, "op", "forbidden", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	c := clock.NewFakeClock(time.Time{})
	r := newTestRetrier(c, RetryConfig{BaseDelay: 100 * time.Millisecond, MaxAttempts: 3})

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(context.Background(), "test.op", func(context.Context) error {
			attempts++
			return errors.New("connection refused")
		})
	}()

	err := advanceUntil(t, c, done)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrierStopsOnContextCancel(t *testing.T) {
	c := clock.NewFakeClock(time.Time{})
	r := newTestRetrier(c, RetryConfig{BaseDelay: time.Minute, MaxAttempts: 5})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, "test.op", func(context.Context) error {
			return errors.New("connection refused")
		})
	}()

	// Let the first attempt land in backoff, then cancel.
	deadline := time.After(5 * time.Second)
	for c.PendingTimers() == 0 {
		select {
		case <-deadline:
			t.Fatal("retrier never armed backoff")
		default:
		}
	}
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retrier did not observe cancellation")
	}
}
