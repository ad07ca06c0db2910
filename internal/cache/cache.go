// Package cache provides the TTL cache wrapped around expensive calls.
// Values are opaque JSON blobs so the memory and Redis backends stay
// interchangeable. Concurrent misses for the same key are collapsed with
// singleflight, so a partially written entry is never observable.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ComputeFunc produces the value for a key on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache is the get-or-compute contract. A hit returns the stored bytes
// without invoking compute; a miss invokes compute, stores the result for
// ttl, and returns it. The bool reports whether the call was a hit.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, bool, error)
	Stats() (hits, misses int64)
	Close() error
}

// Key builds a deterministic cache key from a source name and normalized
// parameters. Parameter order does not affect the key.
func Key(source string, params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, k+"="+strings.ToLower(strings.TrimSpace(v)))
	}
	sort.Strings(pairs)
	raw := source + "|" + strings.Join(pairs, "&")
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s:%x", source, sum[:16])
}
