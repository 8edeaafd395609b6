package syncmanager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sakugaworks/cutflow/internal/apperr"
	"github.com/sakugaworks/cutflow/internal/clock"
	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/cut"
	"github.com/sakugaworks/cutflow/internal/eventbus"
	"github.com/sakugaworks/cutflow/internal/store"
	"github.com/sakugaworks/cutflow/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -- Mocks --

type remoteMock struct {
	mu       sync.Mutex
	upserts  []*cut.Record
	deletes  []string
	failures int
}

func (m *remoteMock) UpsertRecord(_ context.Context, rec *cut.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("connection refused")
	}
	m.upserts = append(m.upserts, rec)
	return nil
}

func (m *remoteMock) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *remoteMock) upserted() []*cut.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*cut.Record, len(m.upserts))
	copy(out, m.upserts)
	return out
}

func (m *remoteMock) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deletes))
	copy(out, m.deletes)
	return out
}

type managerFixture struct {
	manager *Manager
	store   *store.Store
	remote  *remoteMock
	adapter *memory.Adapter
	clock   *clock.FakeClock
	tuning  config.Tuning
}

func newManagerFixture(t *testing.T, remoteSync bool) *managerFixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	dispatcher := eventbus.NewDispatcher(zap.NewNop(), apperr.NewRecorder(zap.NewNop()))
	adapter := memory.New()
	st := store.New(zap.NewNop(), fc, node, dispatcher, adapter, "test:snapshot")
	rm := &remoteMock{}

	tuning := config.Tuning{
		UIDebounce:     50 * time.Millisecond,
		RemoteDebounce: 1500 * time.Millisecond,
		RetryBaseDelay: 100 * time.Millisecond,
		RetryMaxTries:  3,
	}

	m := New(Params{
		Log:        zap.NewNop(),
		Config:     config.Config{RemoteSync: remoteSync},
		Tuning:     config.NewStaticTuningHolder(tuning),
		Clock:      fc,
		Store:      st,
		Remote:     rm,
		Recorder:   apperr.NewRecorder(zap.NewNop()),
		Dispatcher: dispatcher,
	})
	return &managerFixture{manager: m, store: st, remote: rm, adapter: adapter, clock: fc, tuning: tuning}
}

func TestSnapshotPersistedAfterQuietWindow(t *testing.T) {
	f := newManagerFixture(t, false)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)
	require.Equal(t, 0, f.adapter.Len(), "persistence must not happen inside the mutation")

	f.clock.Advance(f.tuning.UIDebounce)
	assert.Equal(t, 1, f.adapter.Len())
}

func TestRapidEditsCoalesceIntoOneRemoteUpsert(t *testing.T) {
	f := newManagerFixture(t, true)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)

	for _, v := range []string{"a", "b", cut.StatusDone} {
		_, err = f.store.SetField("cut-1", cut.FieldLOIn, v)
		require.NoError(t, err)
		f.clock.Advance(100 * time.Millisecond)
	}

	f.clock.Advance(f.tuning.RemoteDebounce)
	upserts := f.remote.upserted()
	require.Len(t, upserts, 1, "burst must collapse into one outbound write")
	assert.Equal(t, cut.StatusDone, upserts[0].LOIn)
}

func TestDeleteSchedulesRemoteDelete(t *testing.T) {
	f := newManagerFixture(t, true)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)
	f.clock.Advance(f.tuning.RemoteDebounce)
	require.Len(t, f.remote.upserted(), 1)

	f.store.Delete("cut-1")
	f.clock.Advance(f.tuning.RemoteDebounce)
	assert.Equal(t, []string{"cut-1"}, f.remote.deleted())
}

func TestRemoteDisabledSchedulesNoRemoteWork(t *testing.T) {
	f := newManagerFixture(t, false)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	assert.Empty(t, f.remote.upserted())
	assert.Equal(t, 1, f.adapter.Len(), "local snapshots still run in offline mode")
}

func TestClearCancelsPendingSnapshotWrite(t *testing.T) {
	f := newManagerFixture(t, false)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)

	require.NoError(t, f.store.Clear(context.Background()))
	f.clock.Advance(time.Minute)

	assert.Equal(t, 0, f.adapter.Len(), "a pending write must not resurrect a cleared snapshot")
}

func TestClearCancelsPendingRemoteUpserts(t *testing.T) {
	f := newManagerFixture(t, true)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)
	require.Equal(t, 2, f.manager.Pending())

	require.NoError(t, f.store.Clear(context.Background()))
	f.clock.Advance(time.Minute)

	assert.Empty(t, f.remote.upserted(), "records wiped by clear must not reach the remote mirror")
	assert.Equal(t, 0, f.manager.Pending())
}

func TestFlushAllDeliversPendingWorkImmediately(t *testing.T) {
	f := newManagerFixture(t, true)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)
	require.Equal(t, 2, f.manager.Pending())

	f.manager.FlushAll()

	assert.Equal(t, 1, f.adapter.Len())
	assert.Len(t, f.remote.upserted(), 1)
	assert.Equal(t, 0, f.manager.Pending())
}

func TestCloseFlushesAndDetaches(t *testing.T) {
	f := newManagerFixture(t, true)
	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)

	f.manager.Close()
	require.Len(t, f.remote.upserted(), 1)

	// Mutations after Close schedule nothing.
	_, err = f.store.Upsert(&cut.Record{ID: "cut-2", CutNumber: "002"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.manager.Pending())
}

func TestRemoteFlushRetriesTransientFailure(t *testing.T) {
	f := newManagerFixture(t, true)
	f.remote.failures = 1

	_, err := f.store.Upsert(&cut.Record{ID: "cut-1", CutNumber: "001"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.manager.FlushAll()
		close(done)
	}()

	// FlushAll blocks in backoff after the failed attempt; release it by
	// advancing the clock from here.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			require.Len(t, f.remote.upserted(), 1)
			return
		case <-deadline:
			t.Fatal("remote flush never completed")
		default:
		}
		if f.clock.PendingTimers() > 0 {
			f.clock.Advance(time.Minute)
		}
		time.Sleep(time.Millisecond)
	}
}
