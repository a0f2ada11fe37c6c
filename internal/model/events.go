package model

// StreamEventType discriminates messages on the viewer stream.
type StreamEventType string

const (
	StreamEventInitial StreamEventType = "initial"
	StreamEventEntry   StreamEventType = "entry"
	StreamEventEnded   StreamEventType = "ended"
)

// StreamEvent is one message on a session's event stream.
// Exactly one of Entries / Entry is set, depending on Type; "ended" carries
// no payload. The wire shape is fixed — existing viewers parse it.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Entries []Entry         `json:"entries,omitempty"`
	Entry   *Entry          `json:"entry,omitempty"`
}

// InitialEvent builds the replay batch sent on connect.
func InitialEvent(entries []Entry) StreamEvent {
	if entries == nil {
		entries = []Entry{}
	}
	return StreamEvent{Type: StreamEventInitial, Entries: entries}
}

// EntryEvent wraps a single live entry.
func EntryEvent(e Entry) StreamEvent {
	return StreamEvent{Type: StreamEventEntry, Entry: &e}
}

// EndedEvent signals session end.
func EndedEvent() StreamEvent {
	return StreamEvent{Type: StreamEventEnded}
}
