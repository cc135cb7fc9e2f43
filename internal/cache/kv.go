package cache

import "time"

// KV defines the byte-level cache contract with TTL semantics shared by the
// persistent store, the in-memory adapter and the daemon client.
// Implementations must be safe for concurrent use by multiple goroutines.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Sweep() (int, error)
	Stats() (Stats, error)
}
