// Package cache is an in-process TTL key/value store used to memoize
// expensive aggregate queries. Expiry is lazy: an expired entry is evicted
// by the Get that finds it, there is no background sweeper.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	expiresAt time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64

	group singleflight.Group

	// now is swappable so tests can control expiry without sleeping.
	now func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value for key if present and unexpired. An expired entry
// is deleted before reporting a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Wrap returns the cached value for key, or invokes loader, stores its
// result under key with the given ttl, and returns it. Concurrent Wrap
// calls for the same key share a single loader invocation.
func (c *Cache) Wrap(key string, ttl time.Duration, loader func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another caller may have populated the key while this
		// one was waiting on the flight group.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Len reports the number of stored entries, expired ones included until a
// Get evicts them.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
