package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/grace0927/sccny-live/internal/config"
	"github.com/grace0927/sccny-live/internal/errs"
	"github.com/grace0927/sccny-live/internal/model"
	"github.com/grace0927/sccny-live/internal/store"
	"go.uber.org/zap"
)

// SessionServicer is the handler-facing interface of SessionService.
type SessionServicer interface {
	Create(ctx context.Context, title, language string) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	End(ctx context.Context, id string) (*model.Session, error)
	Append(ctx context.Context, sessionID, text, language string) (*model.Entry, error)
	List(ctx context.Context, status string, page store.Page) ([]model.Session, int64, error)
	Entries(ctx context.Context, sessionID string, page store.Page) ([]model.Entry, int64, error)
	AllEntries(ctx context.Context, sessionID string) ([]model.Entry, error)
	CountEntries(ctx context.Context, sessionID string) (int64, error)
}

// SessionService manages translation session lifecycle and entry appends.
type SessionService struct {
	store store.SessionStore
	cfg   *config.Config
	hub   *BroadcastHub
	log   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-session write lock
}

// NewSessionService creates a session service.
func NewSessionService(st store.SessionStore, cfg *config.Config, hub *BroadcastHub, log *zap.Logger) *SessionService {
	return &SessionService{
		store: st,
		cfg:   cfg,
		hub:   hub,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// Create starts a new ACTIVE session. Uniqueness of the active session is a
// UI convention, not enforced here: discovery picks the newest active match.
func (s *SessionService) Create(ctx context.Context, title, language string) (*model.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.ErrEmptyTitle
	}
	if language == "" {
		language = s.cfg.SupportedLanguages[0]
	}
	if !s.cfg.LanguageSupported(language) {
		return nil, errs.ErrUnsupportedLanguage
	}
	sess := &model.Session{
		ID:        uuid.New().String(),
		Title:     title,
		Language:  language,
		Status:    model.SessionStatusActive,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("title", sess.Title),
		zap.String("language", sess.Language))
	return sess, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.store.GetSession(ctx, id)
}

// End flips the session to ENDED (single flip, second call is a conflict) and
// signals all live subscribers. Takes the per-session write lock so an append
// in flight cannot land after the flip.
func (s *SessionService) End(ctx context.Context, id string) (*model.Session, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.store.EndSession(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.hub.PublishEnded(id)
	count, _ := s.store.CountEntries(ctx, id)
	s.log.Info("session ended",
		zap.String("session_id", id),
		zap.Int64("entries", count))
	return sess, nil
}

// Append validates the entry, persists it durably and then publishes it to
// the hub. Appends are serialized per session so delivery order matches
// persisted order.
func (s *SessionService) Append(ctx context.Context, sessionID, text, language string) (*model.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.ErrEmptyText
	}
	if utf8.RuneCountInString(text) > s.cfg.EntryMaxLen {
		return nil, errs.ErrTextTooLong
	}
	if language != "" && !s.cfg.LanguageSupported(language) {
		return nil, errs.ErrUnsupportedLanguage
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusActive {
		return nil, errs.ErrSessionEnded
	}
	if language == "" {
		language = sess.Language
	}

	entry := &model.Entry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Text:      text,
		Language:  language,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	// Durable write first, then fan-out: a subscriber never sees an entry a
	// concurrent replay would miss.
	s.hub.Publish(sessionID, *entry)
	return entry, nil
}

// List returns sessions filtered by status ("" = all), newest first.
func (s *SessionService) List(ctx context.Context, status string, page store.Page) ([]model.Session, int64, error) {
	return s.store.ListSessions(ctx, status, page)
}

// Entries returns a page of a session's history in append order.
func (s *SessionService) Entries(ctx context.Context, sessionID string, page store.Page) ([]model.Entry, int64, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	return s.store.ListEntries(ctx, sessionID, page)
}

// AllEntries returns the full ordered history (stream replay).
func (s *SessionService) AllEntries(ctx context.Context, sessionID string) ([]model.Entry, error) {
	return s.store.ListAllEntries(ctx, sessionID)
}

// CountEntries reports how many entries a session holds.
func (s *SessionService) CountEntries(ctx context.Context, sessionID string) (int64, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return 0, err
	}
	return s.store.CountEntries(ctx, sessionID)
}

func (s *SessionService) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
