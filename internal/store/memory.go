package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grace0927/sccny-live/internal/errs"
	"github.com/grace0927/sccny-live/internal/model"
)

// MemoryStore is an in-memory SessionStore with the same semantics as the
// PostgreSQL store (per-session seq, conditional single-flip end). Used in
// tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	entries  map[string][]model.Entry // sessionID -> entries ordered by seq
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.Session),
		entries:  make(map[string][]model.Entry),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	out := sess
	return &out, nil
}

func (s *MemoryStore) EndSession(_ context.Context, id string, endedAt time.Time) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	if sess.Status != model.SessionStatusActive {
		return nil, errs.ErrSessionAlreadyEnded
	}
	sess.Status = model.SessionStatusEnded
	sess.EndedAt = &endedAt
	s.sessions[id] = sess
	out := sess
	return &out, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, status string, page Page) ([]model.Session, int64, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []model.Session
	for _, sess := range s.sessions {
		if status == "" || string(sess.Status) == status {
			all = append(all, sess)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })
	total := int64(len(all))
	lo := page.Offset()
	if lo > len(all) {
		lo = len(all)
	}
	hi := lo + page.PageSize
	if hi > len(all) {
		hi = len(all)
	}
	return append([]model.Session{}, all[lo:hi]...), total, nil
}

func (s *MemoryStore) CreateEntry(_ context.Context, entry *model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[entry.SessionID]
	var maxSeq int64
	if len(list) > 0 {
		maxSeq = list[len(list)-1].Seq
	}
	entry.Seq = maxSeq + 1
	s.entries[entry.SessionID] = append(list, *entry)
	return nil
}

func (s *MemoryStore) ListEntries(_ context.Context, sessionID string, page Page) ([]model.Entry, int64, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[sessionID]
	total := int64(len(list))
	lo := page.Offset()
	if lo > len(list) {
		lo = len(list)
	}
	hi := lo + page.PageSize
	if hi > len(list) {
		hi = len(list)
	}
	return append([]model.Entry{}, list[lo:hi]...), total, nil
}

func (s *MemoryStore) ListAllEntries(_ context.Context, sessionID string) ([]model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Entry{}, s.entries[sessionID]...), nil
}

func (s *MemoryStore) CountEntries(_ context.Context, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries[sessionID])), nil
}
