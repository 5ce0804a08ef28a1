// Package cache provides a small in-process TTL cache used by the store
// layer to avoid re-reading hot rows (e.g. the session user) on every
// request.
package cache

import (
	"sync"
	"time"
)

// Config configures a Cache.
type Config struct {
	// DefaultTTL is how long an item lives after Set.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired items are swept.
	CleanupInterval time.Duration
	// MaxItems caps the cache size; Set on a full cache evicts the entry
	// closest to expiry.
	MaxItems int
	// OnEviction, if set, is invoked for every removed entry.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]item
	config Config
	done   chan struct{}
	once   sync.Once
}

// New creates a Cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	c := &Cache{
		items:  make(map[string]item),
		config: config,
		done:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.MaxItems > 0 && len(c.items) >= c.config.MaxItems {
		if _, exists := c.items[key]; !exists {
			c.evictSoonestLocked()
		}
	}
	c.items[key] = item{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	it, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if ok && c.config.OnEviction != nil {
		c.config.OnEviction(key, it.value)
	}
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	now := time.Now()
	var evicted []struct {
		key   string
		value any
	}

	c.mu.Lock()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
			if c.config.OnEviction != nil {
				evicted = append(evicted, struct {
					key   string
					value any
				}{key, it.value})
			}
		}
	}
	c.mu.Unlock()

	for _, e := range evicted {
		c.config.OnEviction(e.key, e.value)
	}
}

// evictSoonestLocked removes the entry with the nearest expiry.
// Caller must hold c.mu.
func (c *Cache) evictSoonestLocked() {
	var soonestKey string
	var soonest time.Time
	first := true
	for key, it := range c.items {
		if first || it.expiresAt.Before(soonest) {
			soonestKey, soonest = key, it.expiresAt
			first = false
		}
	}
	if !first {
		it := c.items[soonestKey]
		delete(c.items, soonestKey)
		if c.config.OnEviction != nil {
			c.config.OnEviction(soonestKey, it.value)
		}
	}
}
