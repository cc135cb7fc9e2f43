package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Serve accepts connections on l and answers protocol requests against kv
// until ctx is done or the listener is closed. Other accept errors are
// retried with a capped backoff.
func Serve(ctx context.Context, l net.Listener, kv KV) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-done:
		}
	}()
	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			delay *= 2
			if delay == 0 {
				delay = 5 * time.Millisecond
			}
			if delay > time.Second {
				delay = time.Second
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		go ServeConn(conn, kv)
	}
}

// ServeConn answers requests on conn until the peer closes it.
func ServeConn(conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(handle(kv, req))
	}
}

func handle(kv KV, req Request) Response {
	switch req.Op {
	case OpGet:
		v, err := kv.Get(req.Key)
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Value: v}
	case OpPut:
		ttl := time.Duration(req.TTLMilli) * time.Millisecond
		if err := kv.Put(req.Key, req.Value, ttl); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case OpDelete:
		if err := kv.Delete(req.Key); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case OpSweep:
		n, err := kv.Sweep()
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Removed: n}
	case OpStats:
		st, err := kv.Stats()
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Stats: &st}
	default:
		return Response{OK: false, Error: "unknown op"}
	}
}
