package store

import (
	"context"
	"encoding/json"

	"github.com/sakugaworks/cutflow/internal/cut"
	"github.com/sakugaworks/cutflow/internal/viewstate"
	"go.uber.org/zap"
)

// snapshotDoc is the durable JSON shape: records in insertion order, memos,
// and per-view UI state keyed by view name.
type snapshotDoc struct {
	Records []*cut.Record                      `json:"records"`
	Memos   []cut.Memo                         `json:"memos"`
	Views   map[viewstate.View]viewstate.State `json:"views"`
}

// SnapshotJSON serializes the full store state for the storage adapter.
func (s *Store) SnapshotJSON() (string, error) {
	s.mu.Lock()
	doc := snapshotDoc{
		Records: make([]*cut.Record, 0, len(s.order)),
		Memos:   make([]cut.Memo, 0, len(s.memos)),
		Views:   make(map[viewstate.View]viewstate.State, len(s.views)),
	}
	for _, id := range s.order {
		if rec := s.records[id]; rec != nil {
			doc.Records = append(doc.Records, rec.Clone())
		}
	}
	for _, m := range s.memos {
		doc.Memos = append(doc.Memos, m)
	}
	for v, st := range s.views {
		doc.Views[v] = st.Clone()
	}
	s.mu.Unlock()

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// PersistSnapshot writes the current state through the storage adapter.
func (s *Store) PersistSnapshot(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	raw, err := s.SnapshotJSON()
	if err != nil {
		return err
	}
	return s.storage.Save(ctx, s.snapshotKey, raw)
}

// Rehydrate loads the persisted snapshot into memory. A missing, empty or
// corrupt snapshot is treated as an empty starting state, never an error.
func (s *Store) Rehydrate(ctx context.Context) {
	if s.storage == nil {
		return
	}
	raw, ok, err := s.storage.Load(ctx, s.snapshotKey)
	if err != nil || !ok || raw == "" {
		if err != nil {
			s.log.Warn("store.rehydrate.load_failed", zap.Error(err))
		}
		return
	}

	var doc snapshotDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.log.Warn("store.rehydrate.corrupt_snapshot", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*cut.Record, len(doc.Records))
	s.order = make([]string, 0, len(doc.Records))
	for _, rec := range doc.Records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, dup := s.records[rec.ID]; dup {
			continue
		}
		rec.Invalidate()
		s.records[rec.ID] = rec
		s.order = append(s.order, rec.ID)
	}
	s.memos = make(map[string]cut.Memo, len(doc.Memos))
	for _, m := range doc.Memos {
		if m.Content == "" {
			continue
		}
		s.memos[m.Key()] = m
	}
	s.views = make(map[viewstate.View]viewstate.State, len(doc.Views))
	for v, st := range doc.Views {
		s.views[v] = st
	}
	s.log.Info("store.rehydrated",
		zap.Int("records", len(s.records)),
		zap.Int("memos", len(s.memos)),
		zap.Int("views", len(s.views)),
	)
}
