// Package cache is a process-scoped TTL cache used read-through in front
// of the mapping registry and ontology lookups. It is never authoritative;
// a miss always falls through to the source of truth.
package cache

import (
	"strings"
	"sync"
	"time"
)

type item struct {
	value      interface{}
	expiration int64
}

// Cache is an in-memory TTL cache with a background cleanup loop.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	stop  chan struct{}
}

// New creates a cache and starts its cleanup loop.
func New(cleanupInterval time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]item),
		stop:  make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Set stores a value under key for ttl; ttl <= 0 stores without expiry.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	c.mu.Unlock()
}

// Get returns the cached value, if present and unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found {
		return nil, false
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return nil, false
	}
	return it.value, true
}

// GetOrLoad returns the cached value or loads, caches and returns it.
// Loader errors are not cached.
func (c *Cache) GetOrLoad(key string, ttl time.Duration, loader func() (interface{}, error)) (interface{}, error) {
	if value, found := c.Get(key); found {
		return value, nil
	}

	value, err := loader()
	if err != nil {
		return nil, err
	}

	c.Set(key, value, ttl)
	return value, nil
}

// Delete removes one key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key under a prefix. Used to invalidate all
// cached mappings of a source, or all ontology lookups of a version.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

// Size returns the number of cached entries, expired or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup loop.
func (c *Cache) Close() {
	close(c.stop)
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixNano()
			c.mu.Lock()
			for k, it := range c.items {
				if it.expiration > 0 && now > it.expiration {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
