package service

import (
	"sync"

	"github.com/grace0927/sccny-live/internal/model"
	"go.uber.org/zap"
)

// Subscription is one viewer's live attachment to a session stream.
// Events is closed by the hub on session end, forced drop, or unsubscribe.
type Subscription struct {
	sessionID string
	events    chan model.StreamEvent
}

// Events returns the subscriber's event channel. A closed channel without a
// preceding "ended" event means the hub dropped the subscriber; the client
// should reconnect and resynchronize via replay.
func (s *Subscription) Events() <-chan model.StreamEvent { return s.events }

// SessionID returns the session this subscription belongs to.
func (s *Subscription) SessionID() string { return s.sessionID }

// BroadcastHub fans out newly appended entries and end-signals to all live
// subscribers of a session. It holds no durable state; a restart loses all
// subscriptions and clients resynchronize via replay.
type BroadcastHub struct {
	mu     sync.Mutex
	sinks  map[string]map[*Subscription]struct{} // sessionID -> set of sinks
	buffer int
	log    *zap.Logger
}

// NewBroadcastHub creates a hub with the given per-subscriber event buffer.
func NewBroadcastHub(buffer int, log *zap.Logger) *BroadcastHub {
	if buffer < 1 {
		buffer = 64
	}
	return &BroadcastHub{
		sinks:  make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a sink for the session. No backlog replay here — replay
// is the streaming endpoint's job, from the store.
func (h *BroadcastHub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		sessionID: sessionID,
		events:    make(chan model.StreamEvent, h.buffer),
	}
	h.mu.Lock()
	if h.sinks[sessionID] == nil {
		h.sinks[sessionID] = make(map[*Subscription]struct{})
	}
	h.sinks[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	h.log.Info("subscriber registered", zap.String("session_id", sessionID))
	return sub
}

// Unsubscribe removes a sink. Safe to call multiple times; a sink already
// dropped by the hub is a no-op.
func (h *BroadcastHub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.sinks[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := m[sub]; !ok {
		return
	}
	h.dropLocked(sub.sessionID, sub)
	h.log.Info("subscriber unregistered", zap.String("session_id", sub.sessionID))
}

// Publish delivers entry to every currently registered sink for the session.
// The exclusive lock guarantees all sinks observe publishes in the same order.
// A sink whose buffer is full is dropped (channel closed) rather than having
// the message silently skipped: the client reconnects and replays.
func (h *BroadcastHub) Publish(sessionID string, entry model.Entry) {
	ev := model.EntryEvent(entry)
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.sinks[sessionID] {
		select {
		case sub.events <- ev:
		default:
			h.log.Warn("subscriber buffer full, dropping sink",
				zap.String("session_id", sessionID))
			h.dropLocked(sessionID, sub)
		}
	}
}

// PublishEnded delivers the end-signal to every registered sink, then drops
// all sinks for the session. Later subscribes get no live traffic.
func (h *BroadcastHub) PublishEnded(sessionID string) {
	ev := model.EndedEvent()
	h.mu.Lock()
	m := h.sinks[sessionID]
	delete(h.sinks, sessionID)
	h.mu.Unlock()

	for sub := range m {
		select {
		case sub.events <- ev:
		default:
			// Buffer full: the close below reads as a transport error and the
			// client learns of the end via replay on reconnect.
		}
		close(sub.events)
	}
	h.log.Info("session stream ended", zap.String("session_id", sessionID), zap.Int("subscribers", len(m)))
}

// SubscriberCount returns the number of live sinks for a session.
func (h *BroadcastHub) SubscriberCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks[sessionID])
}

// Shutdown drops every sink on every session (process teardown).
func (h *BroadcastHub) Shutdown() {
	h.mu.Lock()
	all := h.sinks
	h.sinks = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()
	for _, m := range all {
		for sub := range m {
			close(sub.events)
		}
	}
}

// dropLocked removes a sink and closes its channel. Caller holds h.mu.
func (h *BroadcastHub) dropLocked(sessionID string, sub *Subscription) {
	m := h.sinks[sessionID]
	delete(m, sub)
	if len(m) == 0 {
		delete(h.sinks, sessionID)
	}
	close(sub.events)
}
