package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grace0927/sccny-live/internal/errs"
	"github.com/grace0927/sccny-live/internal/model"
)

func TestMemoryStoreEndSessionSingleFlip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	sess := &model.Session{ID: "s1", Title: "t", Language: "zh", Status: model.SessionStatusActive, StartedAt: time.Now()}
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	ended, err := st.EndSession(ctx, "s1", time.Now())
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != model.SessionStatusEnded || ended.EndedAt == nil {
		t.Fatalf("flip not applied: %+v", ended)
	}
	if _, err := st.EndSession(ctx, "s1", time.Now()); !errors.Is(err, errs.ErrSessionAlreadyEnded) {
		t.Fatalf("expected ErrSessionAlreadyEnded, got %v", err)
	}
	if _, err := st.EndSession(ctx, "nope", time.Now()); !errors.Is(err, errs.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreSeqAssignment(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		e := &model.Entry{ID: string(rune('a' + i)), SessionID: "s1", Text: "x", Language: "zh", CreatedAt: time.Now()}
		if err := st.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if e.Seq != int64(i) {
			t.Fatalf("expected seq %d, got %d", i, e.Seq)
		}
	}
	n, err := st.CountEntries(ctx, "s1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 entries, got %d (%v)", n, err)
	}
}

func TestMemoryStoreListEntriesPagination(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = st.CreateEntry(ctx, &model.Entry{ID: string(rune('a' + i)), SessionID: "s1", Text: "x", CreatedAt: time.Now()})
	}
	page, total, err := st.ListEntries(ctx, "s1", Page{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page) != 1 || page[0].Seq != 5 {
		t.Fatalf("unexpected page: total=%d len=%d %+v", total, len(page), page)
	}
	// Out-of-range page is empty, not an error.
	page, _, err = st.ListEntries(ctx, "s1", Page{Page: 10, PageSize: 2})
	if err != nil || len(page) != 0 {
		t.Fatalf("expected empty page, got %+v (%v)", page, err)
	}
}

func TestPageNormalize(t *testing.T) {
	p := Page{Page: 0, PageSize: 0}.Normalize()
	if p.Page != 1 || p.PageSize != 20 {
		t.Fatalf("unexpected normalization: %+v", p)
	}
	p = Page{Page: 2, PageSize: 1000}.Normalize()
	if p.PageSize != 200 {
		t.Fatalf("page size must be capped at 200, got %d", p.PageSize)
	}
	if p.Offset() != 200 {
		t.Fatalf("expected offset 200, got %d", p.Offset())
	}
}
