package cache

import "time"

// memoryKV adapts Memory to the KV contract for daemons running without a database file.
type memoryKV struct {
	m *Memory[[]byte]
}

// NewMemoryKV returns a non-persistent KV backed by a Memory cache.
func NewMemoryKV(opts Options) KV {
	return &memoryKV{m: New[[]byte](opts)}
}

func (k *memoryKV) Get(key string) ([]byte, error) {
	v, ok := k.m.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (k *memoryKV) Put(key string, value []byte, ttl time.Duration) error {
	k.m.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (k *memoryKV) Delete(key string) error {
	k.m.Invalidate(key)
	return nil
}

func (k *memoryKV) Sweep() (int, error) { return k.m.SweepExpired(), nil }

func (k *memoryKV) Stats() (Stats, error) { return k.m.Stats(), nil }
