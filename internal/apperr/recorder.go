package apperr

import (
	"sync"
	"time"

	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
	"go.uber.org/zap"
)

const recorderCapacity = 256

// RecordedError is one handled failure kept for diagnostics.
type RecordedError struct {
	Time    time.Time
	Label   string
	Class   Class
	Message string
}

// Recorder keeps a bounded log of handled failures. Nothing handled through
// the error policy is dropped without at least landing here.
type Recorder struct {
	mu      sync.Mutex
	log     *zap.Logger
	nowFn   func() time.Time
	entries []RecordedError
}

// NewRecorder builds a recorder logging through the supplied zap logger.
func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		log:   log,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the timestamp source, for tests.
func (r *Recorder) WithNow(nowFn func() time.Time) *Recorder {
	r.nowFn = nowFn
	return r
}

// Record classifies and stores a failure under a context label.
func (r *Recorder) Record(label string, err error) Class {
	if err == nil {
		return ClassUnknown
	}
	class := Classify(err)

	r.mu.Lock()
	r.entries = append(r.entries, RecordedError{
		Time:    r.nowFn(),
		Label:   label,
		Class:   class,
		Message: err.Error(),
	})
	if len(r.entries) > recorderCapacity {
		r.entries = r.entries[len(r.entries)-recorderCapacity:]
	}
	r.mu.Unlock()

	obsmetrics.Core().IncRecordedError(string(class))
	r.log.Warn("error.recorded",
		zap.String("label", label),
		zap.String("class", string(class)),
		zap.String("error", err.Error()),
	)
	return class
}

// Snapshot returns a copy of the recorded failures, oldest first.
func (r *Recorder) Snapshot() []RecordedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedError, len(r.entries))
	copy(out, r.entries)
	return out
}

// WithFallback runs fn and, on failure, records the error and returns the
// fallback value instead. The error is never swallowed silently.
func WithFallback[T any](r *Recorder, label string, fn func() (T, error), fallback T) T {
	v, err := fn()
	if err != nil {
		r.Record(label, err)
		return fallback
	}
	return v
}
