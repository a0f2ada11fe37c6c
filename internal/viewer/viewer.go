package viewer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/grace0927/sccny-live/internal/model"
)

// State is the viewer connection state.
type State string

const (
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
	StateEnded        State = "ended"
	StateClosed       State = "closed"
)

// errEnded marks a clean "ended" close (not a transport error).
var errEnded = errors.New("session ended")

// Options configures a Viewer.
type Options struct {
	BaseURL   string
	SessionID string // empty: auto-discover the active session
	Lines     int    // visible window size, default 5
	FontSize  int    // display surface font size in px, default 48
	// DiscoverInterval is the active-session poll period, default 5s.
	DiscoverInterval time.Duration
	HTTPClient       *http.Client
	// OnUpdate fires after every state or window change.
	OnUpdate func()
}

// WindowLine is one visible entry with its emphasis (1.0 = most recent,
// decreasing with recency rank).
type WindowLine struct {
	Entry    model.Entry
	Emphasis float64
}

// Viewer subscribes to a session's event stream and maintains an ordered,
// capped visible window. Transport errors trigger automatic reconnects with
// capped exponential backoff; every reconnect re-runs the full connect
// protocol, so the replay makes gap-filling unnecessary.
type Viewer struct {
	opts   Options
	client *http.Client

	mu      sync.Mutex
	state   State
	session string
	entries []model.Entry
}

// New creates a Viewer. Zero option fields get defaults.
func New(opts Options) *Viewer {
	if opts.Lines <= 0 {
		opts.Lines = 5
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 48
	}
	if opts.DiscoverInterval <= 0 {
		opts.DiscoverInterval = 5 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Viewer{
		opts:    opts,
		client:  client,
		state:   StateConnecting,
		session: opts.SessionID,
	}
}

// State returns the current connection state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SessionID returns the session being viewed ("" until discovered).
func (v *Viewer) SessionID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Entries returns the full known entry list in order.
func (v *Viewer) Entries() []model.Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.Entry{}, v.entries...)
}

// Window returns the last N entries, most recent last, with emphasis
// decreasing by recency rank.
func (v *Viewer) Window() []WindowLine {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := v.opts.Lines
	lo := len(v.entries) - n
	if lo < 0 {
		lo = 0
	}
	visible := v.entries[lo:]
	out := make([]WindowLine, 0, len(visible))
	for i, e := range visible {
		rank := len(visible) - 1 - i // 0 = most recent
		out = append(out, WindowLine{
			Entry:    e,
			Emphasis: 1.0 - float64(rank)/float64(n),
		})
	}
	return out
}

// DisplayQuery returns the display surface query parameters for this viewer.
func (v *Viewer) DisplayQuery() url.Values {
	q := url.Values{}
	if id := v.SessionID(); id != "" {
		q.Set("session", id)
	}
	q.Set("fontSize", strconv.Itoa(v.opts.FontSize))
	q.Set("lines", strconv.Itoa(v.opts.Lines))
	return q
}

// Run discovers the session if needed, then streams until the session ends
// (returns nil) or ctx is cancelled (returns ctx.Err()).
func (v *Viewer) Run(ctx context.Context) error {
	if v.SessionID() == "" {
		if err := v.discover(ctx); err != nil {
			v.setState(StateClosed)
			return err
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 15 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := v.streamOnce(ctx)
		if err == nil || errors.Is(err, errEnded) {
			return struct{}{}, backoff.Permanent(errEnded)
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		v.setState(StateReconnecting)
		return struct{}{}, err
	}, backoff.WithBackOff(b))

	switch {
	case errors.Is(err, errEnded):
		v.setState(StateEnded)
		return nil
	case ctx.Err() != nil:
		v.setState(StateClosed)
		return ctx.Err()
	default:
		v.setState(StateClosed)
		return err
	}
}

// discover polls GET /sessions?status=active until a session shows up.
// Multiple simultaneously active sessions are possible; the newest wins.
func (v *Viewer) discover(ctx context.Context) error {
	ticker := time.NewTicker(v.opts.DiscoverInterval)
	defer ticker.Stop()
	for {
		id, err := v.findActive(ctx)
		if err == nil && id != "" {
			v.mu.Lock()
			v.session = id
			v.mu.Unlock()
			v.notify()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (v *Viewer) findActive(ctx context.Context) (string, error) {
	u := strings.TrimSuffix(v.opts.BaseURL, "/") + "/sessions?status=active&page=1&page_size=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discover: status %d", resp.StatusCode)
	}
	var list model.SessionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", err
	}
	if len(list.Sessions) == 0 {
		return "", nil
	}
	return list.Sessions[0].ID, nil
}

// streamOnce runs one full connect protocol: open the stream, apply the
// initial replay, then live events until "ended" or a transport error.
func (v *Viewer) streamOnce(ctx context.Context) error {
	v.setState(StateConnecting)

	u := fmt.Sprintf("%s/sessions/%s/stream", strings.TrimSuffix(v.opts.BaseURL, "/"), v.SessionID())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream: status %d", resp.StatusCode)
	}
	v.setState(StateOpen)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			continue
		}
		if line == "" && data.Len() > 0 {
			ended, err := v.handleEvent(data.String())
			data.Reset()
			if err != nil {
				return err
			}
			if ended {
				return errEnded
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("stream closed without ended signal")
}

func (v *Viewer) handleEvent(raw string) (ended bool, err error) {
	var ev model.StreamEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return false, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case model.StreamEventInitial:
		v.mu.Lock()
		v.entries = append([]model.Entry{}, ev.Entries...)
		v.mu.Unlock()
		v.notify()
	case model.StreamEventEntry:
		if ev.Entry != nil {
			v.mu.Lock()
			v.entries = append(v.entries, *ev.Entry)
			v.mu.Unlock()
			v.notify()
		}
	case model.StreamEventEnded:
		return true, nil
	default:
		// Unknown event types are ignored for forward compatibility.
	}
	return false, nil
}

func (v *Viewer) setState(s State) {
	v.mu.Lock()
	changed := v.state != s
	v.state = s
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

func (v *Viewer) notify() {
	if v.opts.OnUpdate != nil {
		v.opts.OnUpdate()
	}
}
