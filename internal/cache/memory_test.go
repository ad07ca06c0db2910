package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("weather", map[string]string{"location": "Delhi", "crop": "wheat"})
	b := Key("weather", map[string]string{"crop": " Wheat ", "location": "delhi"})
	assert.Equal(t, a, b, "order, case, and whitespace must not matter")

	c := Key("market", map[string]string{"location": "delhi", "crop": "wheat"})
	assert.NotEqual(t, a, c, "source is part of the key")
}

func TestMemory_MissThenHit(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("v1"), nil
	}

	v, hit, err := m.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("v1"), v)

	v, hit, err = m.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v1"), v)
	assert.Equal(t, 1, calls, "hit must not invoke compute")

	hits, misses := m.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	current := now

	m := NewMemory().WithNow(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	})
	defer m.Close()

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	_, _, err := m.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)

	// Just inside the TTL: still served from cache.
	mu.Lock()
	current = now.Add(59 * time.Second)
	mu.Unlock()
	_, hit, err := m.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, hit)

	// Past the TTL: never served, recomputed.
	mu.Lock()
	current = now.Add(2 * time.Minute)
	mu.Unlock()
	_, hit, err = m.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestMemory_ComputeErrorNotCached(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	boom := assert.AnError
	_, _, err := m.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len(), "errors must not be stored")

	v, hit, err := m.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("ok"), v)
}

func TestMemory_ConcurrentMissesCollapse(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	var calls atomic.Int64
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []byte("shared"), nil
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := m.GetOrCompute(context.Background(), "k", time.Minute, compute)
			assert.NoError(t, err)
			assert.Equal(t, []byte("shared"), v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent misses share one computation")
}

func TestMemory_DistinctKeys(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	for _, key := range []string{"a", "b", "c"} {
		v, _, err := m.GetOrCompute(context.Background(), key, time.Minute, func(context.Context) ([]byte, error) {
			return []byte(key), nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte(key), v)
	}
	assert.Equal(t, 3, m.Len())
}
