package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/grace0927/sccny-live/internal/model"
	"github.com/grace0927/sccny-live/internal/service"
	"github.com/grace0927/sccny-live/internal/store"
	"go.uber.org/zap"
)

func newWSFixture(t *testing.T) (*httptest.Server, *service.SessionService, *service.BroadcastHub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	logger := zap.NewNop()
	hub := service.NewBroadcastHub(cfg.StreamBuffer, logger)
	svc := service.NewSessionService(store.NewMemoryStore(), cfg, hub, logger)

	r := gin.New()
	ws := NewStreamWSHandler(hub, svc, logger, cfg.WSReadBufferSize, cfg.WSWriteBufferSize)
	r.GET("/ws/stream/:session_id", ws.ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc, hub
}

func readWSEvent(t *testing.T, conn *websocket.Conn) model.StreamEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev model.StreamEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read ws event: %v", err)
	}
	return ev
}

func TestWSStreamMirrorsProtocol(t *testing.T) {
	srv, svc, hub := newWSFixture(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, "Evening Service", "zh")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Append(ctx, sess.ID, "欢迎大家", "zh"); err != nil {
		t.Fatalf("append: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream/" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readWSEvent(t, conn)
	if initial.Type != model.StreamEventInitial || len(initial.Entries) != 1 {
		t.Fatalf("expected initial replay, got %+v", initial)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(sess.ID) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := svc.Append(ctx, sess.ID, "请起立", "zh"); err != nil {
		t.Fatalf("append: %v", err)
	}
	ev := readWSEvent(t, conn)
	if ev.Type != model.StreamEventEntry || ev.Entry.Text != "请起立" {
		t.Fatalf("expected live entry, got %+v", ev)
	}

	if _, err := svc.End(ctx, sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	ev = readWSEvent(t, conn)
	if ev.Type != model.StreamEventEnded {
		t.Fatalf("expected ended, got %+v", ev)
	}
}

func TestWSStreamEndRacingConnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	logger := zap.NewNop()
	hub := service.NewBroadcastHub(cfg.StreamBuffer, logger)
	svc := service.NewSessionService(store.NewMemoryStore(), cfg, hub, logger)

	ctx := context.Background()
	sess, err := svc.Create(ctx, "t", "zh")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stale := &staleGetServicer{SessionServicer: svc, end: func() {
		if _, err := svc.End(context.Background(), sess.ID); err != nil {
			t.Errorf("end: %v", err)
		}
	}}

	r := gin.New()
	ws := NewStreamWSHandler(hub, stale, logger, cfg.WSReadBufferSize, cfg.WSWriteBufferSize)
	r.GET("/ws/stream/:session_id", ws.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream/" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readWSEvent(t, conn)
	if initial.Type != model.StreamEventInitial {
		t.Fatalf("expected initial, got %+v", initial)
	}
	ev := readWSEvent(t, conn)
	if ev.Type != model.StreamEventEnded {
		t.Fatalf("expected ended despite the racing end, got %+v", ev)
	}
	if n := hub.SubscriberCount(sess.ID); n != 0 {
		t.Fatalf("leaked subscriber on ended session: %d", n)
	}
}

func TestWSStreamEndedSession(t *testing.T) {
	srv, svc, _ := newWSFixture(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "t", "zh")
	if _, err := svc.End(ctx, sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream/" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readWSEvent(t, conn)
	if initial.Type != model.StreamEventInitial {
		t.Fatalf("expected initial, got %+v", initial)
	}
	ev := readWSEvent(t, conn)
	if ev.Type != model.StreamEventEnded {
		t.Fatalf("expected immediate ended, got %+v", ev)
	}
}
