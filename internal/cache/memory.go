package cache

import (
	"sync"
	"time"
)

// DefaultTTL is used when Set is called with ttl <= 0 and no instance default is configured.
const DefaultTTL = 5 * time.Minute

// Options configures a Memory cache.
type Options struct {
	// DefaultTTL is used when Set is called with ttl <= 0.
	DefaultTTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Stats is a point-in-time snapshot of a cache's contents.
type Stats struct {
	TotalEntries   int `json:"total_entries"`
	ValidEntries   int `json:"valid_entries"`
	ExpiredEntries int `json:"expired_entries"`
}

type entry[V any] struct {
	data      V
	timestamp time.Time
	expiresIn time.Duration
}

func (e *entry[V]) stale(now time.Time) bool {
	return now.Sub(e.timestamp) > e.expiresIn
}

// Memory is an in-process key/value cache with per-entry TTL.
// Stale entries are removed lazily by Get and eagerly by SweepExpired.
// It is safe for concurrent use by multiple goroutines.
type Memory[V any] struct {
	mu         sync.RWMutex
	entries    map[string]*entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// New returns an empty Memory cache.
func New[V any](opts Options) *Memory[V] {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Memory[V]{
		entries:    make(map[string]*entry[V]),
		defaultTTL: ttl,
		now:        now,
	}
}

// Set inserts or overwrites key. If ttl <= 0 the default TTL is used.
func (m *Memory[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &entry[V]{data: value, timestamp: m.now(), expiresIn: ttl}
}

// Get returns the value stored under key. The second result is false when the
// key is absent or stale; a stale entry is deleted before returning.
func (m *Memory[V]) Get(key string) (V, bool) {
	var zero V
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	if e.stale(m.now()) {
		delete(m.entries, key)
		return zero, false
	}
	return e.data, true
}

// Invalidate removes key. Removing an absent key is a no-op.
func (m *Memory[V]) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// SweepExpired removes every stale entry and reports how many were removed.
func (m *Memory[V]) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if e.stale(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Stats counts live and stale entries without evicting anything.
func (m *Memory[V]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	st := Stats{TotalEntries: len(m.entries)}
	for _, e := range m.entries {
		if !e.stale(now) {
			st.ValidEntries++
		}
	}
	st.ExpiredEntries = st.TotalEntries - st.ValidEntries
	return st
}

// Len returns the number of stored entries, stale ones included.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear drops all entries.
func (m *Memory[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry[V])
}
