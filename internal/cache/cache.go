// Package cache provides a generic in-memory TTL cache.
package cache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (i item[V]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is a concurrency-safe key/value store with per-entry expiry.
// Expired entries are never returned and are swept in the background.
type Cache[K comparable, V any] struct {
	items *xsync.MapOf[K, item[V]]
	done  chan struct{}
	now   func() time.Time
}

// New creates a cache that sweeps expired entries every cleanupInterval.
// A zero interval disables the sweeper.
func New[K comparable, V any](cleanupInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: xsync.NewMapOf[K, item[V]](),
		done:  make(chan struct{}),
		now:   time.Now,
	}

	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}

	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	it, ok := c.items.Load(key)
	if !ok || it.expired(c.now()) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value under key. A zero ttl never expires.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.items.Store(key, it)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.items.Delete(key)
}

// Purge removes every entry.
func (c *Cache[K, V]) Purge() {
	c.items.Clear()
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *Cache[K, V]) Len() int {
	return c.items.Size()
}

// Close stops the sweeper. Safe to call once.
func (c *Cache[K, V]) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *Cache[K, V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := c.now()
			c.items.Range(func(key K, it item[V]) bool {
				if it.expired(now) {
					c.items.Delete(key)
				}
				return true
			})
		}
	}
}
