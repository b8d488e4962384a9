// Package file provides a durable state store backed by one JSON document
// per user, written atomically.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"pkt.systems/pslog"

	"pkt.systems/tabwise/core"
	"pkt.systems/tabwise/schema"
)

type tabRecord struct {
	AgentID        schema.AgentID        `json:"agent_id"`
	ConversationID schema.ConversationID `json:"conversation_id"`
	URL            string                `json:"url"`
	TabIndex       *int                  `json:"tab_index,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

type userDocument struct {
	Records []tabRecord `json:"records"`
}

// Store persists tab bindings to disk.
type Store struct {
	dir string
	log pslog.Logger
	mu  sync.Mutex
}

// New constructs a store rooted at the given directory.
func New(dir string) (*Store, error) {
	return NewWithLogger(dir, nil)
}

// NewWithLogger constructs a store with logging.
func NewWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

func (s *Store) Get(_ context.Context, key schema.ConversationKey) (schema.TabState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(key.UserID)
	if err != nil {
		return schema.TabState{}, false, err
	}
	for _, rec := range doc.Records {
		if rec.AgentID == key.AgentID && rec.ConversationID == key.ConversationID {
			return stateFromRecord(rec), true, nil
		}
	}
	return schema.TabState{}, false, nil
}

func (s *Store) Upsert(_ context.Context, key schema.ConversationKey, state schema.TabState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(key.UserID)
	if err != nil {
		return err
	}
	for i, rec := range doc.Records {
		if rec.AgentID == key.AgentID && rec.ConversationID == key.ConversationID {
			doc.Records[i].URL = state.URL
			doc.Records[i].TabIndex = indexPointer(state)
			return s.save(key.UserID, doc)
		}
	}
	doc.Records = append(doc.Records, tabRecord{
		AgentID:        key.AgentID,
		ConversationID: key.ConversationID,
		URL:            state.URL,
		TabIndex:       indexPointer(state),
		CreatedAt:      time.Now().UTC(),
	})
	return s.save(key.UserID, doc)
}

func (s *Store) UpdateURL(_ context.Context, key schema.ConversationKey, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(key.UserID)
	if err != nil {
		return err
	}
	for i, rec := range doc.Records {
		if rec.AgentID == key.AgentID && rec.ConversationID == key.ConversationID {
			doc.Records[i].URL = url
			return s.save(key.UserID, doc)
		}
	}
	doc.Records = append(doc.Records, tabRecord{
		AgentID:        key.AgentID,
		ConversationID: key.ConversationID,
		URL:            url,
		CreatedAt:      time.Now().UTC(),
	})
	return s.save(key.UserID, doc)
}

func (s *Store) Delete(_ context.Context, key schema.ConversationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(key.UserID)
	if err != nil {
		return err
	}
	kept := doc.Records[:0]
	removed := false
	for _, rec := range doc.Records {
		if rec.AgentID == key.AgentID && rec.ConversationID == key.ConversationID {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return nil
	}
	doc.Records = kept
	return s.save(key.UserID, doc)
}

func (s *Store) OldestForUser(_ context.Context, userID schema.UserID) (core.StoredTab, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(userID)
	if err != nil {
		return core.StoredTab{}, false, err
	}
	var oldest tabRecord
	found := false
	for _, rec := range doc.Records {
		if !found || rec.CreatedAt.Before(oldest.CreatedAt) {
			oldest = rec
			found = true
		}
	}
	if !found {
		return core.StoredTab{}, false, nil
	}
	return core.StoredTab{
		Key: schema.ConversationKey{
			AgentID:        oldest.AgentID,
			UserID:         userID,
			ConversationID: oldest.ConversationID,
		},
		State: stateFromRecord(oldest),
	}, true, nil
}

func (s *Store) load(userID schema.UserID) (userDocument, error) {
	path := s.pathForUser(userID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("state load miss", "user", userID)
			}
			return userDocument{}, nil
		}
		if s.log != nil {
			s.log.Warn("state load failed", "user", userID, "err", err)
		}
		return userDocument{}, err
	}
	var doc userDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		if s.log != nil {
			s.log.Warn("state load failed", "user", userID, "err", err)
		}
		return userDocument{}, err
	}
	return doc, nil
}

func (s *Store) save(userID schema.UserID, doc userDocument) error {
	path := s.pathForUser(userID)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return s.saveFailed(userID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(userID, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return s.saveFailed(userID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(userID, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return s.saveFailed(userID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return s.saveFailed(userID, err)
	}
	if s.log != nil {
		s.log.Trace("state save ok", "user", userID, "records", len(doc.Records))
	}
	return nil
}

func (s *Store) saveFailed(userID schema.UserID, err error) error {
	if s.log != nil {
		s.log.Warn("state save failed", "user", userID, "err", err)
	}
	return err
}

func (s *Store) pathForUser(userID schema.UserID) string {
	name := sanitize(string(userID))
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}

func stateFromRecord(rec tabRecord) schema.TabState {
	state := schema.TabState{URL: rec.URL}
	if rec.TabIndex != nil {
		state.TabIndex = *rec.TabIndex
		state.HasIndex = true
	}
	return state
}

func indexPointer(state schema.TabState) *int {
	if !state.HasIndex {
		return nil
	}
	index := state.TabIndex
	return &index
}
