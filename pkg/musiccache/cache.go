// Package musiccache is a process-local key/value cache with optional expiry.
package musiccache

import (
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Cache is safe for concurrent use. The zero value is not usable; call New.
type Cache struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache whose entries expire after ttl; ttl <= 0 keeps them forever.
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// AddCache stores value under key, replacing any previous value.
func (c *Cache) AddCache(key string, value []byte) {
	e := entry{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.items.Store(key, e)
}

// GetCache returns the value for key and whether it was present and fresh.
func (c *Cache) GetCache(key string) ([]byte, bool) {
	v, ok := c.items.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.items.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	n := 0
	c.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
