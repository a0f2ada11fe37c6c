package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/grace0927/sccny-live/internal/config"
	"github.com/grace0927/sccny-live/internal/errs"
	"github.com/grace0927/sccny-live/internal/model"
	"github.com/grace0927/sccny-live/internal/store"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SupportedLanguages = []string{"zh", "en"}
	cfg.EntryMaxLen = 10000
	cfg.StreamBuffer = 16
	return cfg
}

func newTestService() (*SessionService, *BroadcastHub) {
	hub := NewBroadcastHub(16, zap.NewNop())
	svc := NewSessionService(store.NewMemoryStore(), testConfig(), hub, zap.NewNop())
	return svc, hub
}

func TestCreateSessionDefaults(t *testing.T) {
	svc, _ := newTestService()
	sess, err := svc.Create(context.Background(), "Evening Service", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Status != model.SessionStatusActive {
		t.Fatalf("expected active, got %s", sess.Status)
	}
	if sess.Language != "zh" {
		t.Fatalf("expected default language zh, got %s", sess.Language)
	}
	if sess.EndedAt != nil {
		t.Fatal("endedAt must be nil while active")
	}
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), "   ", "zh"); !errors.Is(err, errs.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "ok", "fr"); !errors.Is(err, errs.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestAppendValidation(t *testing.T) {
	svc, _ := newTestService()
	sess, _ := svc.Create(context.Background(), "t", "zh")

	if _, err := svc.Append(context.Background(), sess.ID, "   ", "en"); !errors.Is(err, errs.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := svc.Append(context.Background(), sess.ID, "ok", "fr"); !errors.Is(err, errs.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	long := strings.Repeat("字", 10001)
	if _, err := svc.Append(context.Background(), sess.ID, long, "zh"); !errors.Is(err, errs.ErrTextTooLong) {
		t.Fatalf("expected ErrTextTooLong, got %v", err)
	}
	if _, err := svc.Append(context.Background(), "missing", "ok", "zh"); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendPersistsThenPublishes(t *testing.T) {
	svc, hub := newTestService()
	sess, _ := svc.Create(context.Background(), "t", "zh")
	sub := hub.Subscribe(sess.ID)

	entry, err := svc.Append(context.Background(), sess.ID, "欢迎大家", "")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.Language != "zh" {
		t.Fatalf("entry should inherit session language, got %s", entry.Language)
	}
	if entry.Seq != 1 {
		t.Fatalf("first entry should have seq 1, got %d", entry.Seq)
	}

	ev := recvEvent(t, sub)
	if ev.Type != model.StreamEventEntry || ev.Entry.Text != "欢迎大家" {
		t.Fatalf("unexpected event %+v", ev)
	}

	// The published entry must already be durable.
	all, err := svc.AllEntries(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("all entries: %v", err)
	}
	if len(all) != 1 || all[0].ID != entry.ID {
		t.Fatalf("entry not persisted before publish: %+v", all)
	}
}

func TestAppendOrderMatchesSeq(t *testing.T) {
	svc, _ := newTestService()
	sess, _ := svc.Create(context.Background(), "t", "zh")
	texts := []string{"one", "two", "three", "four"}
	for _, txt := range texts {
		if _, err := svc.Append(context.Background(), sess.ID, txt, "en"); err != nil {
			t.Fatalf("append %q: %v", txt, err)
		}
	}
	all, _ := svc.AllEntries(context.Background(), sess.ID)
	if len(all) != len(texts) {
		t.Fatalf("expected %d entries, got %d", len(texts), len(all))
	}
	for i, e := range all {
		if e.Text != texts[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, texts[i], e.Text)
		}
		if e.Seq != int64(i+1) {
			t.Fatalf("entry %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
	}
}

func TestEndSessionTerminal(t *testing.T) {
	svc, hub := newTestService()
	sess, _ := svc.Create(context.Background(), "t", "zh")
	sub := hub.Subscribe(sess.ID)

	ended, err := svc.End(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != model.SessionStatusEnded {
		t.Fatalf("expected ended, got %s", ended.Status)
	}
	if ended.EndedAt == nil || ended.EndedAt.Before(ended.StartedAt) {
		t.Fatalf("endedAt invariant violated: %+v", ended)
	}

	ev := recvEvent(t, sub)
	if ev.Type != model.StreamEventEnded {
		t.Fatalf("expected ended event, got %s", ev.Type)
	}

	// Terminal state: further appends and ends are conflicts.
	if _, err := svc.Append(context.Background(), sess.ID, "late text", "en"); !errors.Is(err, errs.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	if _, err := svc.End(context.Background(), sess.ID); !errors.Is(err, errs.ErrSessionAlreadyEnded) {
		t.Fatalf("expected ErrSessionAlreadyEnded, got %v", err)
	}
}

func TestEndSessionNotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.End(context.Background(), "missing"); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _ := newTestService()
	a, _ := svc.Create(context.Background(), "first", "zh")
	b, _ := svc.Create(context.Background(), "second", "en")
	if _, err := svc.End(context.Background(), a.ID); err != nil {
		t.Fatalf("end: %v", err)
	}

	active, total, err := svc.List(context.Background(), string(model.SessionStatusActive), store.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("expected only session %s active, got %+v", b.ID, active)
	}

	_, totalAll, _ := svc.List(context.Background(), "", store.Page{})
	if totalAll != 2 {
		t.Fatalf("expected 2 sessions total, got %d", totalAll)
	}
}

func TestCountEntries(t *testing.T) {
	svc, _ := newTestService()
	sess, _ := svc.Create(context.Background(), "t", "zh")
	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Append(context.Background(), sess.ID, text, "en"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	n, err := svc.CountEntries(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 entries, got %d", n)
	}
	if _, err := svc.CountEntries(context.Background(), "missing"); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
