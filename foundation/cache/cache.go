// Package cache provides a single value cache that expires after a fixed
// lifetime. Expired values are refreshed lazily on the next read.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FetchFunc produces a fresh value for the cache.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Value holds a single cached value of type T.
type Value[T any] struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu    sync.RWMutex
	data  T
	exp   time.Time
	valid bool
}

// New constructs a cache whose values live for the specified duration as
// measured by the specified clock. A nil clock uses the wall clock.
func New[T any](ttl time.Duration, clock clockwork.Clock) *Value[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Value[T]{
		clock: clock,
		ttl:   ttl,
	}
}

// Get returns the cached value if it has not expired. Otherwise fetch is
// called and a successful result is stored. The lock is not held while
// fetching, so callers refreshing at the same time each fetch and the
// last one to finish wins.
func (v *Value[T]) Get(ctx context.Context, fetch FetchFunc[T]) (T, error) {
	if data, ok := v.Peek(); ok {
		return data, nil
	}

	data, err := fetch(ctx)
	if err != nil {
		return data, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.data = data
	v.exp = v.clock.Now().Add(v.ttl)
	v.valid = true

	return data, nil
}

// Peek returns the cached value without refreshing it. The boolean is
// false when there is no value or it has expired.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.valid || !v.clock.Now().Before(v.exp) {
		var zero T
		return zero, false
	}

	return v.data, true
}

// Invalidate drops the cached value so the next read fetches.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	v.data = zero
	v.valid = false
}
