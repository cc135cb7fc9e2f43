package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.bbolt"), StoreOptions{Bucket: "trains", Now: clock.Now})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t, newFakeClock())

	if err := s.Put("k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "v" {
		t.Fatalf("expected v, got %q", v)
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreExpiredIsDeleted(t *testing.T) {
	clock := newFakeClock()
	s := openTestStore(t, clock)

	if err := s.Put("k", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	clock.Advance(150 * time.Millisecond)

	if _, err := s.Get("k"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale record to be removed, got %v", err)
	}
}

func TestStoreDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	s := openTestStore(t, clock)

	if err := s.Put("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	clock.Advance(DefaultTTL - time.Second)
	if _, err := s.Get("k"); err != nil {
		t.Fatalf("expected hit within default ttl, got %v", err)
	}
}

func TestStoreSweepAndStats(t *testing.T) {
	clock := newFakeClock()
	s := openTestStore(t, clock)

	_ = s.Put("short", []byte("a"), 50*time.Millisecond)
	_ = s.Put("long", []byte("b"), 200*time.Millisecond)
	clock.Advance(100 * time.Millisecond)

	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if want := (Stats{TotalEntries: 2, ValidEntries: 1, ExpiredEntries: 1}); st != want {
		t.Fatalf("expected %+v, got %+v", want, st)
	}

	n, err := s.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if v, err := s.Get("long"); err != nil || string(v) != "b" {
		t.Fatalf("expected long record to survive, got %q, %v", v, err)
	}
	st, _ = s.Stats()
	if st.TotalEntries != 1 {
		t.Fatalf("expected 1 record, got %+v", st)
	}
}

func TestStoreDeleteAbsent(t *testing.T) {
	s := openTestStore(t, newFakeClock())
	if err := s.Delete("nope"); err != nil {
		t.Fatalf("expected no error deleting absent key, got %v", err)
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "cache.bbolt")

	s, err := Open(path, StoreOptions{Now: clock.Now})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put("k", []byte("v"), time.Hour)
	_ = s.Close()

	s, err = Open(path, StoreOptions{Now: clock.Now})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if v, err := s.Get("k"); err != nil || string(v) != "v" {
		t.Fatalf("expected persisted value, got %q, %v", v, err)
	}
}

func TestMemoryKV(t *testing.T) {
	clock := newFakeClock()
	kv := NewMemoryKV(Options{Now: clock.Now})

	buf := []byte("v")
	_ = kv.Put("k", buf, 100*time.Millisecond)
	buf[0] = 'x'
	v, err := kv.Get("k")
	if err != nil || string(v) != "v" {
		t.Fatalf("expected stored copy, got %q, %v", v, err)
	}

	clock.Advance(time.Second)
	if st, _ := kv.Stats(); st.ExpiredEntries != 1 {
		t.Fatalf("expected 1 expired entry, got %+v", st)
	}
	if n, _ := kv.Sweep(); n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if _, err := kv.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
