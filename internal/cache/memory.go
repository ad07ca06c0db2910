package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache backed by a mutex-guarded map. Expired
// entries are dropped lazily on access and swept by a background janitor.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64

	stop chan struct{}
	once sync.Once

	// nowFunc is injectable for expiry tests.
	nowFunc func() time.Time
}

// NewMemory creates a memory cache and starts its janitor.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
		nowFunc: time.Now,
	}
	go m.janitor()
	return m
}

// WithNow sets a fixed clock for testing.
func (m *Memory) WithNow(fn func() time.Time) *Memory {
	m.nowFunc = fn
	return m
}

// GetOrCompute implements Cache.
func (m *Memory) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error) {
	if value, ok := m.lookup(key); ok {
		m.hits.Add(1)
		return value, true, nil
	}
	m.misses.Add(1)

	val, err, _ := m.group.Do(key, func() (any, error) {
		// A concurrent flight may have stored the value already.
		if value, ok := m.lookup(key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		m.store(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// lookup returns the entry value if present and not expired. An entry is
// never served past its expiry.
func (m *Memory) lookup(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.nowFunc().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (m *Memory) store(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.nowFunc().Add(ttl)}
	m.mu.Unlock()
}

// Stats implements Cache.
func (m *Memory) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

// Len returns the number of entries currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// janitor sweeps expired entries so long-idle keys do not accumulate.
func (m *Memory) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := m.nowFunc()
			m.mu.Lock()
			for key, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
