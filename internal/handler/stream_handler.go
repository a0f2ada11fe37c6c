package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grace0927/sccny-live/internal/model"
	"github.com/grace0927/sccny-live/internal/service"
	"go.uber.org/zap"
)

// StreamHandler serves the one-way viewer event stream (SSE).
type StreamHandler struct {
	hub    *service.BroadcastHub
	svc    service.SessionServicer
	logger *zap.Logger
}

// NewStreamHandler creates the SSE stream handler.
func NewStreamHandler(hub *service.BroadcastHub, svc service.SessionServicer, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, svc: svc, logger: logger}
}

// Stream handles GET /sessions/:id/stream.
// Protocol: one "initial" replay batch, then live "entry" events, terminated
// by "ended". A reconnecting client always gets a fresh replay, so the server
// never resumes a broken stream.
func (h *StreamHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")
	sess, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	// Subscribe before the snapshot read so nothing published in between is
	// missed; live events already covered by the replay are skipped by seq.
	var sub *service.Subscription
	if sess.Status == model.SessionStatusActive {
		sub = h.hub.Subscribe(sessionID)
		// An end landing between the status read and Subscribe fans out its
		// "ended" before this sink exists; re-check so the connection takes
		// the replay-then-ended path instead of waiting on a signal that
		// already went out.
		cur, err := h.svc.Get(c.Request.Context(), sessionID)
		if err != nil || cur.Status != model.SessionStatusActive {
			h.hub.Unsubscribe(sub)
			sub = nil
		} else {
			defer h.hub.Unsubscribe(sub)
		}
	}

	entries, err := h.svc.AllEntries(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("stream replay failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	var maxSeq int64
	if len(entries) > 0 {
		maxSeq = entries[len(entries)-1].Seq
	}
	if !h.writeEvent(c, flusher, model.InitialEvent(entries)) {
		return
	}

	if sub == nil {
		// Ended before connect: history replay then immediate end-signal.
		h.writeEvent(c, flusher, model.EndedEvent())
		return
	}

	for {
		select {
		case ev, open := <-sub.Events():
			if !open {
				// Hub dropped us (slow sink or shutdown); client reconnects.
				return
			}
			if ev.Type == model.StreamEventEntry && ev.Entry != nil && ev.Entry.Seq <= maxSeq {
				continue // already delivered in the initial batch
			}
			if !h.writeEvent(c, flusher, ev) {
				return
			}
			if ev.Type == model.StreamEventEnded {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// writeEvent writes one SSE event ("data: <json>\n\n") and flushes.
func (h *StreamHandler) writeEvent(c *gin.Context, flusher http.Flusher, ev model.StreamEvent) bool {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("stream event marshal failed", zap.Error(err))
		return false
	}
	if _, err := c.Writer.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := c.Writer.Write(raw); err != nil {
		return false
	}
	if _, err := c.Writer.Write([]byte("\n\n")); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
