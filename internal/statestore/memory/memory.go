// Package memory provides an in-process state store for tests and
// single-process development runs.
package memory

import (
	"context"
	"sync"

	"pkt.systems/tabwise/core"
	"pkt.systems/tabwise/schema"
)

type record struct {
	state schema.TabState
	seq   uint64
}

// Store keeps tab bindings in process memory.
type Store struct {
	mu      sync.RWMutex
	records map[schema.ConversationKey]record
	seq     uint64
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[schema.ConversationKey]record)}
}

func (s *Store) Get(_ context.Context, key schema.ConversationKey) (schema.TabState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[key]
	if !ok {
		return schema.TabState{}, false, nil
	}
	return entry.state, true, nil
}

func (s *Store) Upsert(_ context.Context, key schema.ConversationKey, state schema.TabState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok {
		// Keep the original creation order on update.
		s.records[key] = record{state: state, seq: existing.seq}
		return nil
	}
	s.seq++
	s.records[key] = record{state: state, seq: s.seq}
	return nil
}

func (s *Store) UpdateURL(_ context.Context, key schema.ConversationKey, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.records[key]
	if !ok {
		s.seq++
		s.records[key] = record{state: schema.TabState{URL: url}, seq: s.seq}
		return nil
	}
	entry.state.URL = url
	s.records[key] = entry
	return nil
}

func (s *Store) Delete(_ context.Context, key schema.ConversationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *Store) OldestForUser(_ context.Context, userID schema.UserID) (core.StoredTab, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest core.StoredTab
	var oldestSeq uint64
	found := false
	for key, entry := range s.records {
		if key.UserID != userID {
			continue
		}
		if !found || entry.seq < oldestSeq {
			oldest = core.StoredTab{Key: key, State: entry.state}
			oldestSeq = entry.seq
			found = true
		}
	}
	return oldest, found, nil
}
