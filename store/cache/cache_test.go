package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})
	defer c.Close()

	c.Set("a", 1)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute})
	defer c.Close()

	c.SetWithTTL("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheMaxItemsEviction(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute, MaxItems: 2})
	defer c.Close()

	c.SetWithTTL("old", 1, time.Second)
	c.SetWithTTL("new", 2, time.Minute)
	c.Set("third", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("old")
	assert.False(t, ok, "entry closest to expiry should have been evicted")
}

func TestCacheDeleteCallsOnEviction(t *testing.T) {
	var evictedKey string
	c := New(Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Minute,
		OnEviction:      func(key string, _ any) { evictedKey = key },
	})
	defer c.Close()

	c.Set("a", 1)
	c.Delete("a")

	assert.Equal(t, "a", evictedKey)
	_, ok := c.Get("a")
	assert.False(t, ok)
}
