package secretstore

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value   V
	expires time.Time // zero means the entry never expires
}

// ttlCache is a map with lazy expiry. Entries are checked against the clock
// on access; nothing runs in the background.
type ttlCache[K comparable, V any] struct {
	ttl     time.Duration
	now     func() time.Time
	onEvict func(V)

	mu    sync.Mutex
	items map[K]cacheEntry[V]
}

func newTTLCache[K comparable, V any](ttl time.Duration, now func() time.Time) *ttlCache[K, V] {
	return &ttlCache[K, V]{
		ttl:   ttl,
		now:   now,
		items: make(map[K]cacheEntry[V]),
	}
}

func (c *ttlCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !entry.expires.IsZero() && !entry.expires.After(c.now()) {
		c.evictLocked(key, entry)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// put stores value under key. Permanent entries, and every entry when the
// TTL is zero, never expire.
func (c *ttlCache[K, V]) put(key K, value V, permanent bool) {
	entry := cacheEntry[V]{value: value}
	if !permanent && c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.items[key]; ok {
		c.evictLocked(key, old)
	}
	c.items[key] = entry
}

func (c *ttlCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *ttlCache[K, V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		c.evictLocked(k, e)
	}
}

func (c *ttlCache[K, V]) evictLocked(key K, entry cacheEntry[V]) {
	delete(c.items, key)
	if c.onEvict != nil {
		c.onEvict(entry.value)
	}
}
