package model

import "time"

// SessionStatus represents translation session state.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// Session is the API view of a translation session (not GORM entity).
type Session struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Language  string        `json:"language"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
}

// Entry is one translated line appended to a session.
// Seq is the per-session insertion order; it never leaves the process.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	Seq       int64     `json:"-"`
}

// CreateSessionRequest is the request body for POST /sessions.
type CreateSessionRequest struct {
	Title    string `json:"title" binding:"required"`
	Language string `json:"language"`
}

// CreateSessionResponse is the response for POST /sessions.
type CreateSessionResponse struct {
	Session   Session `json:"session"`
	StreamURL string  `json:"stream_url"`
	WSURL     string  `json:"ws_url"`
}

// AppendEntryRequest is the request body for POST /sessions/:id/entries.
type AppendEntryRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language"`
}

// SessionListResponse is the paginated response for GET /sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// EntryListResponse is the paginated response for GET /sessions/:id/entries.
type EntryListResponse struct {
	SessionID string  `json:"session_id"`
	Entries   []Entry `json:"entries"`
	Total     int64   `json:"total"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
}
