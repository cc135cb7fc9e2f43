package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startTestDaemon(t *testing.T, kv KV) *Client {
	t.Helper()
	// Unix socket paths are length limited; keep it short.
	dir, err := os.MkdirTemp("", "tmc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "c.sock")

	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, kv) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
	})
	return NewClient(sock)
}

func TestClientRoundTrip(t *testing.T) {
	clock := newFakeClock()
	c := startTestDaemon(t, NewMemoryKV(Options{Now: clock.Now}))

	if err := c.Put("k", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get("k")
	if err != nil || string(v) != "v" {
		t.Fatalf("expected v, got %q, %v", v, err)
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	clock.Advance(time.Second)
	st, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if want := (Stats{TotalEntries: 1, ExpiredEntries: 1}); st != want {
		t.Fatalf("expected %+v, got %+v", want, st)
	}
	n, err := c.Sweep()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removal, got %d, %v", n, err)
	}

	if err := c.Put("d", []byte("x"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete("d"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("d"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestClientExpiredFromStore(t *testing.T) {
	clock := newFakeClock()
	c := startTestDaemon(t, openTestStore(t, clock))

	if err := c.Put("k", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	clock.Advance(100 * time.Millisecond)
	if _, err := c.Get("k"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestServeConnUnknownOp(t *testing.T) {
	server, client := net.Pipe()
	go ServeConn(server, NewMemoryKV(Options{}))
	defer client.Close()

	if err := json.NewEncoder(client).Encode(Request{Op: "flush"}); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.NewDecoder(client).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.OK || resp.Error != "unknown op" {
		t.Fatalf("expected unknown op error, got %+v", resp)
	}
}

func TestClientDialError(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "absent.sock"))
	if _, err := c.Get("k"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestServeReturnsWhenListenerClosed(t *testing.T) {
	dir, err := os.MkdirTemp("", "tmc")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	l, err := net.Listen("unix", filepath.Join(dir, "c.sock"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- Serve(context.Background(), l, NewMemoryKV(Options{})) }()
	_ = l.Close()

	select {
	case err := <-done:
		if !errors.Is(err, net.ErrClosed) {
			t.Fatalf("expected net.ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the listener was closed")
	}
}

// flakyListener fails Accept a few times before reporting closed.
type flakyListener struct {
	net.Listener
	failures int
	calls    int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.calls++
	if l.calls <= l.failures {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func (l *flakyListener) Close() error { return nil }

func TestServeBacksOffOnAcceptErrors(t *testing.T) {
	l := &flakyListener{failures: 3}
	start := time.Now()
	if err := Serve(context.Background(), l, NewMemoryKV(Options{})); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("expected net.ErrClosed, got %v", err)
	}
	// 5ms + 10ms + 20ms of backoff.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("expected backoff between failed accepts, took %s", elapsed)
	}
	if l.calls != 4 {
		t.Fatalf("expected 4 accept calls, got %d", l.calls)
	}
}

func TestClientSubMillisecondTTL(t *testing.T) {
	clock := newFakeClock()
	c := startTestDaemon(t, NewMemoryKV(Options{Now: clock.Now}))

	if err := c.Put("k", []byte("v"), 500*time.Microsecond); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Millisecond)
	if _, err := c.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected sub-millisecond ttl to expire, got %v", err)
	}
}

func TestTTLMillis(t *testing.T) {
	tests := map[time.Duration]int64{
		0:                       0,
		-time.Second:            -1000,
		time.Nanosecond:         1,
		500 * time.Microsecond:  1,
		1500 * time.Microsecond: 1,
		2 * time.Second:         2000,
	}
	for in, want := range tests {
		if got := ttlMillis(in); got != want {
			t.Errorf("ttlMillis(%s) = %d, want %d", in, got, want)
		}
	}
}

type failingKV struct{ KV }

func (failingKV) Delete(string) error { return errors.New("disk full") }

func TestClientPassesThroughDaemonErrors(t *testing.T) {
	c := startTestDaemon(t, failingKV{})
	err := c.Delete("k")
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected daemon error, got %v", err)
	}
}
