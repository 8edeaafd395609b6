package apperr

import (
	"context"
	"time"

	"github.com/sakugaworks/cutflow/internal/clock"
	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
	"go.uber.org/zap"
)

// RetryConfig controls backoff for transient failures.
type RetryConfig struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:   200 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	defaults := DefaultRetryConfig()
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaults.BaseDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	return c
}

// Retrier reruns transient failures with exponential backoff. Validation,
// permission and not-found failures propagate immediately.
type Retrier struct {
	clock    clock.Clock
	log      *zap.Logger
	recorder *Recorder
	cfgFn    func() RetryConfig
}

// NewRetrier builds a retrier. cfgFn is read per call so hot-reloaded
// tuning takes effect without rebuilding the retrier.
func NewRetrier(c clock.Clock, log *zap.Logger, recorder *Recorder, cfgFn func() RetryConfig) *Retrier {
	if log == nil {
		log = zap.NewNop()
	}
	if cfgFn == nil {
		cfgFn = DefaultRetryConfig
	}
	return &Retrier{clock: c, log: log, recorder: recorder, cfgFn: cfgFn}
}

// Do runs fn until it succeeds, fails terminally, or exhausts attempts.
// Backoff delay is base * 2^(attempt-1), waited on the injected clock.
func (r *Retrier) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	cfg := r.cfgFn().withDefaults()
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		obsmetrics.Core().IncRetryAttempt(label)
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		class := ClassUnknown
		if r.recorder != nil {
			class = r.recorder.Record(label, err)
		} else {
			class = Classify(err)
		}
		if !class.Retryable() {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.BaseDelay << (attempt - 1)
		r.log.Debug("retry.backoff",
			zap.String("label", label),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		if err := r.wait(ctx, delay); err != nil {
			return err
		}
	}
	obsmetrics.Core().IncRetryExhausted(label)
	return lastErr
}

func (r *Retrier) wait(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})
	t := r.clock.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
