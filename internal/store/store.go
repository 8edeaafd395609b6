// Package store is the single source of truth for production records and
// cell memos during a session. Mutations are synchronous and atomic;
// persistence is offloaded to the synchronization layer, never deferred
// inside the store itself.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/sakugaworks/cutflow/internal/apperr"
	"github.com/sakugaworks/cutflow/internal/clock"
	"github.com/sakugaworks/cutflow/internal/cut"
	"github.com/sakugaworks/cutflow/internal/eventbus"
	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
	"github.com/sakugaworks/cutflow/internal/storage"
	"github.com/sakugaworks/cutflow/internal/viewstate"
	"go.uber.org/zap"
)

// Statistics are side-effect-free diagnostic counts.
type Statistics struct {
	TotalRecords   int
	DeletedRecords int
	TotalMemos     int
	Views          int
}

// Store holds the authoritative in-memory copy of all records and memos.
type Store struct {
	mu          sync.Mutex
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	dispatcher  *eventbus.Dispatcher
	storage     storage.Adapter
	snapshotKey string

	records map[string]*cut.Record
	order   []string
	memos   map[string]cut.Memo
	views   map[viewstate.View]viewstate.State
}

// New builds an empty store. Rehydrate loads the persisted snapshot.
func New(log *zap.Logger, c clock.Clock, genID *snowflake.Node, dispatcher *eventbus.Dispatcher, adapter storage.Adapter, snapshotKey string) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if snapshotKey == "" {
		snapshotKey = "cutflow:snapshot"
	}
	return &Store{
		log:         log,
		clock:       c,
		genID:       genID,
		dispatcher:  dispatcher,
		storage:     adapter,
		snapshotKey: snapshotKey,
		records:     make(map[string]*cut.Record),
		memos:       make(map[string]cut.Memo),
		views:       make(map[viewstate.View]viewstate.State),
	}
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}

func (s *Store) newID() string {
	if s.genID != nil {
		return s.genID.Generate().String()
	}
	return ""
}

func (s *Store) emit(aggregateID string, eventType cut.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(cut.Event{
		ID:          s.newID(),
		AggregateID: aggregateID,
		Type:        eventType,
		OccurredAt:  s.now(),
		Payload:     payload,
	})
}

// Upsert inserts or replaces a record by id, assigning an id when absent.
// Invalid input is rejected before any state change. Emits created or
// updated on success and returns the stored record.
func (s *Store) Upsert(rec *cut.Record) (*cut.Record, error) {
	if rec == nil {
		return nil, apperr.Validation("store.upsert", "record must not be nil")
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.now()
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	stored := rec.Clone()
	stored.UpdatedAt = now

	prev, exists := s.records[stored.ID]
	if exists {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
		s.order = append(s.order, stored.ID)
	}
	s.records[stored.ID] = stored
	s.mu.Unlock()

	obsmetrics.Core().IncStoreMutation(obsmetrics.MutationUpsert)
	eventType := cut.EventCreated
	if exists {
		eventType = cut.EventUpdated
	}
	s.log.Debug("store.upsert",
		zap.String("id", stored.ID),
		zap.String("cut_number", stored.CutNumber),
		zap.Bool("existing", exists),
	)
	s.emit(stored.ID, eventType, stored.Clone())
	return stored, nil
}

// Update mutates a record in place through the mutator. Unknown ids fail
// with a not-found error; a mutation that leaves the record invalid is
// rolled back without touching state.
func (s *Store) Update(id string, mutator func(*cut.Record) error) (*cut.Record, error) {
	s.mu.Lock()
	current, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.NotFound("store.update", id)
	}

	draft := current.Clone()
	if err := mutator(draft); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	draft.ID = id
	if err := draft.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	draft.CreatedAt = current.CreatedAt
	draft.UpdatedAt = s.now()
	draft.Invalidate()
	s.records[id] = draft
	s.mu.Unlock()

	obsmetrics.Core().IncStoreMutation(obsmetrics.MutationUpdate)
	s.emit(id, cut.EventUpdated, draft.Clone())
	return draft, nil
}

// SetField writes one field of a record through the mutation API.
func (s *Store) SetField(id string, key cut.FieldKey, value string) (*cut.Record, error) {
	return s.Update(id, func(r *cut.Record) error {
		return r.Set(key, value)
	})
}

// FindByID returns the record for id, nil when absent. Soft-deleted
// records are still returned; callers check Deleted.
func (s *Store) FindByID(id string) *cut.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

// FindByCutNumber returns the first non-deleted record with the sequence
// key, nil when absent.
func (s *Store) FindByCutNumber(cutNumber string) *cut.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		rec := s.records[id]
		if rec != nil && !rec.Deleted && rec.CutNumber == cutNumber {
			return rec
		}
	}
	return nil
}

// FindAll returns non-deleted records in insertion order. A nil predicate
// matches everything.
func (s *Store) FindAll(predicate func(*cut.Record) bool) []*cut.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*cut.Record, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if rec == nil || rec.Deleted {
			continue
		}
		if predicate != nil && !predicate(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Delete soft-deletes a record, keeping it for history and undo. Unknown
// ids are a silent no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok || rec.Deleted {
		s.mu.Unlock()
		return
	}
	rec.Deleted = true
	rec.UpdatedAt = s.now()
	rec.Invalidate()
	s.mu.Unlock()

	obsmetrics.Core().IncStoreMutation(obsmetrics.MutationDelete)
	s.log.Debug("store.delete", zap.String("id", id))
	s.emit(id, cut.EventDeleted, rec.Clone())
}

// Restore clears the soft-delete flag. Unknown ids are a silent no-op.
func (s *Store) Restore(id string) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok || !rec.Deleted {
		s.mu.Unlock()
		return
	}
	rec.Deleted = false
	rec.UpdatedAt = s.now()
	rec.Invalidate()
	s.mu.Unlock()

	obsmetrics.Core().IncStoreMutation(obsmetrics.MutationUpdate)
	s.emit(id, cut.EventUpdated, rec.Clone())
}

// SetMemo writes a cell memo. Empty content removes the memo; removal of
// an absent memo is a no-op, so creation-with-empty-string and deletion
// are idempotent with each other.
func (s *Store) SetMemo(entityType, entityID, fieldKey, content string) {
	key := cut.MemoKey(entityType, entityID, fieldKey)

	s.mu.Lock()
	if strings.TrimSpace(content) == "" {
		_, existed := s.memos[key]
		delete(s.memos, key)
		s.mu.Unlock()
		if !existed {
			return
		}
		obsmetrics.Core().IncStoreMutation(obsmetrics.MutationDeleteMemo)
		s.emit(entityID, cut.EventMemoUpdated, cut.Memo{
			EntityType: entityType,
			EntityID:   entityID,
			FieldKey:   fieldKey,
		})
		return
	}

	memo := cut.Memo{
		EntityType: entityType,
		EntityID:   entityID,
		FieldKey:   fieldKey,
		Content:    content,
		UpdatedAt:  s.now(),
	}
	s.memos[key] = memo
	s.mu.Unlock()

	obsmetrics.Core().IncStoreMutation(obsmetrics.MutationSetMemo)
	s.emit(entityID, cut.EventMemoUpdated, memo)
}

// DeleteMemo removes a memo, idempotently.
func (s *Store) DeleteMemo(entityType, entityID, fieldKey string) {
	s.SetMemo(entityType, entityID, fieldKey, "")
}

// GetMemo returns one memo and whether it exists.
func (s *Store) GetMemo(entityType, entityID, fieldKey string) (cut.Memo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memos[cut.MemoKey(entityType, entityID, fieldKey)]
	return m, ok
}

// HasMemo reports whether a memo exists at the key.
func (s *Store) HasMemo(entityType, entityID, fieldKey string) bool {
	_, ok := s.GetMemo(entityType, entityID, fieldKey)
	return ok
}

// GetMemosByEntity returns an entity's memos sorted by field key.
func (s *Store) GetMemosByEntity(entityType, entityID string) []cut.Memo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cut.Memo, 0)
	for _, m := range s.memos {
		if m.EntityType == entityType && m.EntityID == entityID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldKey < out[j].FieldKey })
	return out
}

// SetViewState stores one view's UI state for the snapshot.
func (s *Store) SetViewState(view viewstate.View, state viewstate.State) {
	s.mu.Lock()
	s.views[view] = state.Clone()
	s.mu.Unlock()
	s.emit(string(view), cut.EventViewState, state.Clone())
}

// ViewState returns one view's persisted UI state.
func (s *Store) ViewState(view viewstate.View) (viewstate.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.views[view]
	if !ok {
		return viewstate.State{}, false
	}
	return st.Clone(), true
}

// Clear drops all in-memory state and the backing persisted snapshot.
// Irreversible; used for destructive resets.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]*cut.Record)
	s.order = nil
	s.memos = make(map[string]cut.Memo)
	s.views = make(map[viewstate.View]viewstate.State)
	s.mu.Unlock()

	obsmetrics.Core().IncStoreMutation(obsmetrics.MutationClear)
	s.log.Info("store.clear")
	s.emit("", cut.EventCleared, nil)

	if s.storage == nil {
		return nil
	}
	return s.storage.Remove(ctx, s.snapshotKey)
}

// Statistics returns diagnostic counts without side effects.
func (s *Store) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, rec := range s.records {
		if rec.Deleted {
			deleted++
		}
	}
	return Statistics{
		TotalRecords:   len(s.records),
		DeletedRecords: deleted,
		TotalMemos:     len(s.memos),
		Views:          len(s.views),
	}
}
