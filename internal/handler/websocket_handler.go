package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/grace0927/sccny-live/internal/model"
	"github.com/grace0927/sccny-live/internal/service"
	"go.uber.org/zap"
)

// StreamWSHandler mirrors the SSE stream protocol over WebSocket for
// /ws/stream/:session_id. Some proxies buffer SSE; the event payloads are
// identical, one JSON StreamEvent per text message.
type StreamWSHandler struct {
	hub      *service.BroadcastHub
	svc      service.SessionServicer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewStreamWSHandler creates the WebSocket stream handler.
func NewStreamWSHandler(hub *service.BroadcastHub, svc service.SessionServicer, logger *zap.Logger, readBuf, writeBuf int) *StreamWSHandler {
	return &StreamWSHandler{
		hub:    hub,
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			// Allow all origins for dev; in prod set CheckOrigin.
		},
	}
}

// ServeWS upgrades the request and runs the one-way stream loop.
// Path: /ws/stream/:session_id
func (h *StreamWSHandler) ServeWS(c *gin.Context) {
	sessionID := c.Param("session_id")
	sess, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

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
		h.logger.Error("ws replay failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	var maxSeq int64
	if len(entries) > 0 {
		maxSeq = entries[len(entries)-1].Seq
	}
	if !h.writeEvent(conn, model.InitialEvent(entries)) {
		return
	}
	if sub == nil {
		h.writeEvent(conn, model.EndedEvent())
		return
	}

	// Reader only detects client disconnect; the channel carries no
	// client-sent payloads after connect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("ws read error", zap.Error(err))
				}
				return
			}
		}
	}()

	for {
		select {
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			if ev.Type == model.StreamEventEntry && ev.Entry != nil && ev.Entry.Seq <= maxSeq {
				continue
			}
			if !h.writeEvent(conn, ev) {
				return
			}
			if ev.Type == model.StreamEventEnded {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *StreamWSHandler) writeEvent(conn *websocket.Conn, ev model.StreamEvent) bool {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("ws event marshal failed", zap.Error(err))
		return false
	}
	return conn.WriteMessage(websocket.TextMessage, raw) == nil
}
