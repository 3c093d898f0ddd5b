package cache

import (
	"context"
	"testing"
	"time"

	"github.com/notehaven/go-notes-backend/internal/domain"
)

func newClockedMemory(start time.Time) (*Memory, *time.Time) {
	m := NewMemory()
	now := start
	m.nowFn = func() time.Time { return now }
	return m, &now
}

func TestMemory_NoteRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, err := m.GetNote(ctx, "u1", "n1"); ok || err != nil {
		t.Fatalf("empty get = (%v, %v), want miss", ok, err)
	}

	n := &domain.Note{ID: "n1", OwnerID: "u1", Title: "t"}
	if err := m.PutNote(ctx, "u1", n, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := m.GetNote(ctx, "u1", "n1")
	if err != nil || !ok {
		t.Fatalf("get = (%v, %v), want hit", ok, err)
	}
	if got.Title != "t" {
		t.Fatalf("title = %q", got.Title)
	}

	// The returned value is a copy: mutating it must not corrupt the cache.
	got.Title = "mutated"
	again, _, _ := m.GetNote(ctx, "u1", "n1")
	if again.Title != "t" {
		t.Fatalf("cache aliased caller mutation: %q", again.Title)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	m, now := newClockedMemory(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_ = m.PutCount(ctx, "u1", false, 7, time.Minute)
	if v, ok, _ := m.GetCount(ctx, "u1", false); !ok || v != 7 {
		t.Fatalf("get = (%d, %v), want (7, true)", v, ok)
	}

	*now = now.Add(2 * time.Minute)
	if _, ok, _ := m.GetCount(ctx, "u1", false); ok {
		t.Fatalf("expired entry still served")
	}
}

func TestMemory_ZeroTTLIsNoop(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.PutCount(ctx, "u1", true, 3, 0)
	if _, ok, _ := m.GetCount(ctx, "u1", true); ok {
		t.Fatalf("zero-TTL entry was stored")
	}
}

func TestMemory_ListCopiedBothWays(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	src := []domain.Note{{ID: "a"}, {ID: "b"}}
	_ = m.PutList(ctx, "u1", ListCursor(false, 20, 0), src, time.Minute)
	src[0].ID = "corrupted"

	out, ok, _ := m.GetList(ctx, "u1", ListCursor(false, 20, 0))
	if !ok || len(out) != 2 || out[0].ID != "a" {
		t.Fatalf("list = %+v (%v)", out, ok)
	}
	out[1].ID = "also-corrupted"
	out2, _, _ := m.GetList(ctx, "u1", ListCursor(false, 20, 0))
	if out2[1].ID != "b" {
		t.Fatalf("cache aliased returned slice: %+v", out2)
	}
}

func TestMemory_InvalidateOwner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.PutNote(ctx, "u1", &domain.Note{ID: "n1"}, time.Minute)
	_ = m.PutList(ctx, "u1", ListCursor(false, 20, 0), []domain.Note{{ID: "n1"}}, time.Minute)
	_ = m.PutCount(ctx, "u1", false, 1, time.Minute)
	_ = m.PutNote(ctx, "u2", &domain.Note{ID: "n2"}, time.Minute)
	_ = m.PutAIResult(ctx, "fp1", []byte("cached"), time.Minute)

	if err := m.InvalidateOwner(ctx, "u1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, ok, _ := m.GetNote(ctx, "u1", "n1"); ok {
		t.Fatalf("u1 note survived invalidation")
	}
	if _, ok, _ := m.GetList(ctx, "u1", ListCursor(false, 20, 0)); ok {
		t.Fatalf("u1 list survived invalidation")
	}
	if _, ok, _ := m.GetCount(ctx, "u1", false); ok {
		t.Fatalf("u1 count survived invalidation")
	}

	// Other owners and AI results are untouched.
	if _, ok, _ := m.GetNote(ctx, "u2", "n2"); !ok {
		t.Fatalf("u2 note was dropped")
	}
	if _, ok, _ := m.GetAIResult(ctx, "fp1"); !ok {
		t.Fatalf("ai result was dropped")
	}
}

func TestMemory_OwnerPrefixIsolation(t *testing.T) {
	// An owner id that prefixes another must not clobber the longer one.
	m := NewMemory()
	ctx := context.Background()

	_ = m.PutNote(ctx, "u1", &domain.Note{ID: "n1"}, time.Minute)
	_ = m.PutNote(ctx, "u12", &domain.Note{ID: "n2"}, time.Minute)

	_ = m.InvalidateOwner(ctx, "u1")
	if _, ok, _ := m.GetNote(ctx, "u12", "n2"); !ok {
		t.Fatalf("owner u12 affected by invalidation of u1")
	}
}

func TestListCursor_Stable(t *testing.T) {
	a := ListCursor(false, 20, 0)
	b := ListCursor(false, 20, 0)
	if a != b {
		t.Fatalf("cursor not stable: %q vs %q", a, b)
	}
	if a == ListCursor(true, 20, 0) || a == ListCursor(false, 21, 0) || a == ListCursor(false, 20, 20) {
		t.Fatalf("cursor does not distinguish query shapes")
	}
}

func TestMemory_AIResultRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, _ := m.GetAIResult(ctx, "fp"); ok {
		t.Fatalf("unexpected hit")
	}
	_ = m.PutAIResult(ctx, "fp", []byte(`{"text":"hello"}`), time.Minute)
	got, ok, _ := m.GetAIResult(ctx, "fp")
	if !ok || string(got) != `{"text":"hello"}` {
		t.Fatalf("got (%q, %v)", got, ok)
	}
}
