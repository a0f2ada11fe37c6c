package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grace0927/sccny-live/internal/errs"
	"github.com/grace0927/sccny-live/internal/model"
	"github.com/grace0927/sccny-live/internal/service"
	"github.com/grace0927/sccny-live/internal/store"
)

// SessionHandler handles REST API for translation sessions.
type SessionHandler struct {
	svc  service.SessionServicer
	urls *service.URLConfig
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc service.SessionServicer, publicBaseURL string) *SessionHandler {
	return &SessionHandler{
		svc:  svc,
		urls: &service.URLConfig{BaseURL: publicBaseURL},
	}
}

// CreateSession godoc
// POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	sess, err := h.svc.Create(c.Request.Context(), req.Title, req.Language)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.CreateSessionResponse{
		Session:   *sess,
		StreamURL: h.urls.StreamURL(sess.ID),
		WSURL:     h.urls.WSURL(sess.ID),
	})
}

// ListSessions godoc
// GET /sessions?status=&page=&page_size=
// status=active is the viewer auto-discovery query.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != string(model.SessionStatusActive) && status != string(model.SessionStatusEnded) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter", "field": "status"})
		return
	}
	page := pageFromQuery(c)
	sessions, total, err := h.svc.List(c.Request.Context(), status, page)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	c.JSON(http.StatusOK, model.SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Page:     page.Normalize().Page,
		PageSize: page.Normalize().PageSize,
	})
}

// GetSession godoc
// GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EndSession godoc
// POST /sessions/:id/end
func (h *SessionHandler) EndSession(c *gin.Context) {
	sess, err := h.svc.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// AppendEntry godoc
// POST /sessions/:id/entries
func (h *SessionHandler) AppendEntry(c *gin.Context) {
	var req model.AppendEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	entry, err := h.svc.Append(c.Request.Context(), c.Param("id"), req.Text, req.Language)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListEntries godoc
// GET /sessions/:id/entries?page=&page_size=
func (h *SessionHandler) ListEntries(c *gin.Context) {
	sessionID := c.Param("id")
	page := pageFromQuery(c)
	entries, total, err := h.svc.Entries(c.Request.Context(), sessionID, page)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	c.JSON(http.StatusOK, model.EntryListResponse{
		SessionID: sessionID,
		Entries:   entries,
		Total:     total,
		Page:      page.Normalize().Page,
		PageSize:  page.Normalize().PageSize,
	})
}

func pageFromQuery(c *gin.Context) store.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return store.Page{Page: page, PageSize: size}
}

// writeDomainError maps domain sentinel errors to HTTP responses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrSessionEnded), errors.Is(err, errs.ErrSessionAlreadyEnded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrEmptyTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "title"})
	case errors.Is(err, errs.ErrEmptyText), errors.Is(err, errs.ErrTextTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "text"})
	case errors.Is(err, errs.ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "language"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
