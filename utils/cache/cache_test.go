package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time { return f.current }

func (f *fakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock) {
	clock := &fakeClock{current: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return New[string](ttl, WithClock[string](clock.Now)), clock
}

func TestCache_GetWithinTTL(t *testing.T) {
	c, clock := newTestCache(30 * time.Second)

	msg := c.Set("k", "v")
	assert.Equal(t, "Cache set for key: k", msg)

	clock.Advance(29 * time.Second)
	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestCache_MissingKey(t *testing.T) {
	c, _ := newTestCache(30 * time.Second)

	value, ok := c.Get("never-set")
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestCache_ExpiredEntryIsEvictedOnRead(t *testing.T) {
	c, clock := newTestCache(30 * time.Second)
	c.Set("k", "v")

	clock.Advance(31 * time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	// a later read must not bring the stale value back
	clock.Advance(-20 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_SetOverwritesAndResetsAge(t *testing.T) {
	c, clock := newTestCache(30 * time.Second)
	c.Set("k", "first")

	clock.Advance(20 * time.Second)
	c.Set("k", "second")

	clock.Advance(20 * time.Second)
	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(30 * time.Second)
	c.Set("k", "v")
	c.Invalidate("k")
	c.Invalidate("")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_ConcurrentWriters(t *testing.T) {
	c := New[int](time.Minute)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				c.Set("shared", n)
				c.Get("shared")
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	value, ok := c.Get("shared")
	require.True(t, ok)
	assert.GreaterOrEqual(t, value, 0)
	assert.Less(t, value, 8)
}
