package store

import (
	"context"
	"time"

	"github.com/grace0927/sccny-live/internal/model"
)

// Page is offset pagination for list queries.
type Page struct {
	Page     int
	PageSize int
}

// Normalize clamps page parameters to sane values.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// SessionStore persists sessions and entries. The store is the single source
// of truth; writers serialize per session in the service layer, so CreateEntry
// may assume no concurrent append for the same session.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// EndSession flips status to ended iff it is still active (single flip).
	// Returns errs.ErrSessionNotFound if absent, errs.ErrSessionAlreadyEnded
	// if the conditional update matched no row.
	EndSession(ctx context.Context, id string, endedAt time.Time) (*model.Session, error)
	ListSessions(ctx context.Context, status string, page Page) ([]model.Session, int64, error)

	// CreateEntry assigns the next per-session seq and persists the entry.
	CreateEntry(ctx context.Context, entry *model.Entry) error
	ListEntries(ctx context.Context, sessionID string, page Page) ([]model.Entry, int64, error)
	// ListAllEntries returns the full ordered history (stream replay).
	ListAllEntries(ctx context.Context, sessionID string) ([]model.Entry, error)
	CountEntries(ctx context.Context, sessionID string) (int64, error)
}
