package storage

import (
	"context"
	"sync"

	"github.com/sakugaworks/cutflow/internal/apperr"
	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
	"go.uber.org/zap"
)

// Resilient wraps an adapter so persistence failures (quota exceeded,
// broken disk, dead redis) degrade the session to in-memory operation
// instead of breaking it. The first failing write surfaces a classified
// storage error to the caller; from then on every operation is served from
// an in-memory shadow that mirrors all writes, so reads keep working for
// the rest of the session. In-memory state stays authoritative throughout.
type Resilient struct {
	mu       sync.Mutex
	inner    Adapter
	log      *zap.Logger
	recorder *apperr.Recorder
	degraded bool
	shadow   map[string]string
	removed  map[string]bool
}

func NewResilient(inner Adapter, log *zap.Logger, recorder *apperr.Recorder) *Resilient {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resilient{
		inner:    inner,
		log:      log,
		recorder: recorder,
		shadow:   make(map[string]string),
		removed:  make(map[string]bool),
	}
}

// Degraded reports whether the adapter has fallen back to memory.
func (r *Resilient) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

func (r *Resilient) Save(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.shadow[key] = value
	delete(r.removed, key)
	if r.degraded {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.inner.Save(ctx, key, value); err != nil {
		return r.degrade("storage.save", obsmetrics.StorageOpSave, key, err)
	}
	return nil
}

func (r *Resilient) Load(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	if r.degraded {
		v, ok := r.shadow[key]
		r.mu.Unlock()
		return v, ok, nil
	}
	if r.removed[key] {
		r.mu.Unlock()
		return "", false, nil
	}
	if v, ok := r.shadow[key]; ok {
		r.mu.Unlock()
		return v, ok, nil
	}
	r.mu.Unlock()

	v, ok, err := r.inner.Load(ctx, key)
	if err != nil {
		obsmetrics.Core().IncStorageFailure(obsmetrics.StorageOpLoad)
		if r.recorder != nil {
			r.recorder.Record("storage.load", err)
		}
		return "", false, nil
	}
	return v, ok, nil
}

func (r *Resilient) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.shadow, key)
	r.removed[key] = true
	if r.degraded {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.inner.Remove(ctx, key); err != nil {
		return r.degrade("storage.remove", obsmetrics.StorageOpRemove, key, err)
	}
	return nil
}

func (r *Resilient) degrade(label, op, key string, err error) error {
	obsmetrics.Core().IncStorageFailure(op)
	if r.recorder != nil {
		r.recorder.Record(label, err)
	}

	r.mu.Lock()
	first := !r.degraded
	r.degraded = true
	r.mu.Unlock()

	r.log.Warn("storage.degraded",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	if first {
		return apperr.E(apperr.ClassStorage, label, "local storage failed, continuing in memory", err)
	}
	return nil
}
