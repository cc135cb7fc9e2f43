package cache

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// headerSize is the per-record prefix: timestamp (ms) || expiresIn (ms).
const headerSize = 16

var (
	ErrNotFound = errors.New("cache: not found")
	ErrExpired  = errors.New("cache: expired")
)

// Store provides a persistent KV cache with TTL semantics backed by bbolt.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db         *bolt.DB
	bucket     []byte
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

type StoreOptions struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// DefaultTTL is used when Put is called with ttl <= 0.
	DefaultTTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Open initializes or opens a Store at the given path.
func Open(path string, opts StoreOptions) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, bucket: bucket, defaultTTL: ttl, now: now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores value stamped with the current time. If ttl <= 0, DefaultTTL is used.
func (s *Store) Put(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(s.now().UnixMilli()))
	binary.BigEndian.PutUint64(buf[8:headerSize], uint64(ttl.Milliseconds()))
	copy(buf[headerSize:], value)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	})
}

// Get returns the cached value if present and not expired. An expired record
// is deleted and reported as ErrExpired.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	var expired bool
	var exists bool
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		exists = true
		if s.stale(v, s.now()) {
			expired = true
			return b.Delete([]byte(key))
		}
		out = append([]byte(nil), v[headerSize:]...)
		return nil
	}); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	if expired {
		return nil, ErrExpired
	}
	return out, nil
}

// Delete removes a key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Sweep removes every expired record in a single transaction.
func (s *Store) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		now := s.now()
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if s.stale(v, now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		// bbolt forbids mutating a bucket while iterating it.
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats counts live and expired records without removing any.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		now := s.now()
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			st.TotalEntries++
			if !s.stale(v, now) {
				st.ValidEntries++
			}
			return nil
		})
	})
	if err != nil {
		return Stats{}, err
	}
	st.ExpiredEntries = st.TotalEntries - st.ValidEntries
	return st, nil
}

// stale treats records too short to carry a header as expired.
func (s *Store) stale(v []byte, now time.Time) bool {
	if len(v) < headerSize {
		return true
	}
	ts := int64(binary.BigEndian.Uint64(v[:8]))
	expiresIn := int64(binary.BigEndian.Uint64(v[8:headerSize]))
	return now.UnixMilli()-ts > expiresIn
}
