package syncmanager

import (
	"context"
	"strings"
	"time"

	"github.com/sakugaworks/cutflow/internal/apperr"
	"github.com/sakugaworks/cutflow/internal/clock"
	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/cut"
	"github.com/sakugaworks/cutflow/internal/eventbus"
	"github.com/sakugaworks/cutflow/internal/remote"
	"github.com/sakugaworks/cutflow/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	snapshotKey     = "snapshot"
	recordKeyPrefix = "record:"
)

type deletion struct {
	id string
}

// Manager observes the domain event stream and turns bursts of mutations
// into debounced persistence: a short-window local snapshot write and a
// long-window remote upsert per record, each carrying only the latest
// payload. The store itself never waits on any of this.
type Manager struct {
	log        *zap.Logger
	store      *store.Store
	remote     remote.RecordAPI
	remoteOn   bool
	retrier    *apperr.Retrier
	recorder   *apperr.Recorder
	dispatcher *eventbus.Dispatcher
	deb        *Debouncer
	subIDs     []eventbus.SubscriptionID
}

// Params collects the manager's constructor dependencies.
type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Tuning     *config.TuningHolder
	Clock      clock.Clock
	Store      *store.Store
	Remote     remote.RecordAPI
	Recorder   *apperr.Recorder
	Dispatcher *eventbus.Dispatcher
}

// New builds the manager and subscribes it to the dispatcher at low
// priority, behind every UI subscriber.
func New(p Params) *Manager {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		log:        log,
		store:      p.Store,
		remote:     p.Remote,
		remoteOn:   p.Config.RemoteSync,
		recorder:   p.Recorder,
		dispatcher: p.Dispatcher,
	}
	m.retrier = apperr.NewRetrier(p.Clock, log, p.Recorder, func() apperr.RetryConfig {
		t := p.Tuning.Get()
		return apperr.RetryConfig{BaseDelay: t.RetryBaseDelay, MaxAttempts: t.RetryMaxTries}
	})
	m.deb = NewDebouncer(p.Clock, func(class Class) time.Duration {
		t := p.Tuning.Get()
		if class == ClassRemote {
			return t.RemoteDebounce
		}
		return t.UIDebounce
	}, m.flush)

	for _, eventType := range []cut.EventType{
		cut.EventCreated,
		cut.EventUpdated,
		cut.EventDeleted,
		cut.EventMemoUpdated,
		cut.EventViewState,
		cut.EventCleared,
	} {
		m.subIDs = append(m.subIDs, p.Dispatcher.Subscribe(eventType, m.onEvent, eventbus.PriorityLow))
	}
	return m
}

func (m *Manager) onEvent(ev cut.Event) {
	// Clear already removed the backing snapshot; a pending write would
	// resurrect it, and a pending remote upsert would push a record that
	// no longer exists locally.
	if ev.Type == cut.EventCleared {
		m.deb.Cancel(snapshotKey)
		m.deb.CancelPrefix(recordKeyPrefix)
	} else {
		m.deb.Schedule(snapshotKey, ClassUI, nil)
	}

	if !m.remoteOn {
		return
	}
	switch ev.Type {
	case cut.EventCreated, cut.EventUpdated:
		if rec, ok := ev.Payload.(*cut.Record); ok {
			m.deb.Schedule(recordKeyPrefix+ev.AggregateID, ClassRemote, rec)
		}
	case cut.EventDeleted:
		m.deb.Schedule(recordKeyPrefix+ev.AggregateID, ClassRemote, deletion{id: ev.AggregateID})
	}
}

func (m *Manager) flush(key string, class Class, payload any) {
	ctx := context.Background()
	switch {
	case key == snapshotKey:
		if err := m.store.PersistSnapshot(ctx); err != nil {
			// Resilient storage degrades on its own; this records encode
			// failures and the first adapter failure.
			m.recorder.Record("sync.snapshot", err)
		}
	case strings.HasPrefix(key, recordKeyPrefix):
		m.flushRecord(ctx, key, payload)
	default:
		m.log.Warn("sync.unknown_key", zap.String("key", key), zap.String("class", string(class)))
	}
}

func (m *Manager) flushRecord(ctx context.Context, key string, payload any) {
	switch v := payload.(type) {
	case *cut.Record:
		err := m.retrier.Do(ctx, "remote.upsert", func(ctx context.Context) error {
			return m.remote.UpsertRecord(ctx, v)
		})
		if err != nil {
			m.log.Error("sync.remote.upsert_failed",
				zap.String("record_id", v.ID),
				zap.Error(err),
			)
		}
	case deletion:
		err := m.retrier.Do(ctx, "remote.delete", func(ctx context.Context) error {
			return m.remote.DeleteRecord(ctx, v.id)
		})
		if err != nil {
			m.log.Error("sync.remote.delete_failed",
				zap.String("record_id", v.id),
				zap.Error(err),
			)
		}
	default:
		m.log.Warn("sync.unknown_payload", zap.String("key", key))
	}
}

// FlushAll forces every pending debounce window, used on page-unload style
// shutdown and explicit save.
func (m *Manager) FlushAll() {
	m.deb.FlushAll()
}

// Pending reports armed debounce windows, for diagnostics.
func (m *Manager) Pending() int {
	return m.deb.Pending()
}

// Close flushes pending work and detaches from the dispatcher.
func (m *Manager) Close() {
	m.FlushAll()
	for _, id := range m.subIDs {
		m.dispatcher.Unsubscribe(id)
	}
	m.subIDs = nil
}

func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			m.Close()
			return nil
		},
	})
}

// Module wires the debounced synchronization manager.
var Module = fx.Module("syncmanager",
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)
