// Package cache is a small process-wide key/value store whose entries expire
// a fixed time after they were written. Expired entries are dropped lazily,
// on the next read of the same key; there is no background sweep.
package cache

import (
	"fmt"
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Cache maps string keys to values of type T with a fixed time-to-live.
// Writes are unconditional last-write-wins snapshots.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

type Option[T any] func(*Cache[T])

// WithClock replaces time.Now, mainly for tests
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.now = now
	}
}

func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it is younger than the TTL.
// A stale entry is deleted as a side effect.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		c.mu.Lock()
		// only drop it if nobody refreshed the key in the meantime
		if current, still := c.entries[key]; still && current.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key and restarts its age clock
func (c *Cache[T]) Set(key string, value T) string {
	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, storedAt: c.now()}
	c.mu.Unlock()
	return fmt.Sprintf("Cache set for key: %s", key)
}

func (c *Cache[T]) Invalidate(key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts stored entries, stale ones included
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}
