package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
)

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// RedisStore shares cached projections across instances.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// LocalStore is an in-process cache for single-instance deployments. Writes
// are admitted asynchronously, so a value may not be visible immediately
// after Set.
type LocalStore struct {
	c *ristretto.Cache[string, []byte]
}

// NewLocalStore builds a cache bounded to roughly maxBytes of payload.
func NewLocalStore(maxBytes int64) (*LocalStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &LocalStore{c: c}, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := s.c.Get(key)
	return b, ok, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Wait blocks until buffered writes are applied.
func (s *LocalStore) Wait() { s.c.Wait() }

// Close stops the cache's background goroutines.
func (s *LocalStore) Close() { s.c.Close() }

// Memory is a map-backed store with lazy expiry. It is safe for concurrent
// use and counts operations, which makes it the usual test double.
type Memory struct {
	entries sync.Map
	now     func() time.Time

	mu   sync.Mutex
	gets int
	sets int
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.count(&m.gets)
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(memoryEntry)
	if !m.now().Before(e.expires) {
		m.entries.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.count(&m.sets)
	m.entries.Store(key, memoryEntry{value: value, expires: m.now().Add(ttl)})
	return nil
}

// Counts returns the number of Get and Set calls so far.
func (m *Memory) Counts() (gets, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, m.sets
}

func (m *Memory) count(n *int) {
	m.mu.Lock()
	*n++
	m.mu.Unlock()
}
