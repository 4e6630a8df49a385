package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/db"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(t *testing.T, size int) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := NewStore(size)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s.WithClock(clock.now), clock
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore(t, 10)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL_ExpiresAfterTTL(t *testing.T) {
	s, clock := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.t = clock.t.Add(59 * time.Minute)
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected v before expiry, got %q err=%v", got, err)
	}

	clock.t = clock.t.Add(time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound at expiry, got %v", err)
	}
}

func TestSetWithTTL_RejectsNonPositive(t *testing.T) {
	s, _ := newTestStore(t, 10)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("abc"))

	got, _ := s.Get(ctx, "k")
	got[0] = 'z'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestEviction(t *testing.T) {
	s, _ := newTestStore(t, 2)
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))
	_ = s.Set(ctx, "c", []byte("3"))

	if _, err := s.Get(ctx, "a"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected oldest key evicted, got %v", err)
	}
}
