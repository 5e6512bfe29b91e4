// Package cache implements a bounded, concurrency-safe LRU cache: a lookup
// structure bounded to Capacity entries, evicting the least recently used
// entry whenever an insert would exceed it.
//
// It is translated from a design with a map from key to list node plus an
// intrusive doubly linked list threaded through the same nodes, with two
// sentinel nodes (head, tail) so insert/remove/move never need a nil check
// at either end of the list.
package cache

import (
	"sync"

	"github.com/symentispl/concurrency-primitives/pkg/failfast"
	"github.com/symentispl/concurrency-primitives/pkg/metrics"
)

// node is both a map value and a list element.
type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// Config configures a Cache[K, V].
type Config struct {
	// Capacity bounds the number of entries the cache holds. Must be
	// positive.
	Capacity int
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
	// Name labels this cache's metrics. Defaults to "default".
	Name string
}

// DefaultConfig returns a Config with a 1024-entry capacity.
func DefaultConfig() Config {
	return Config{Capacity: 1024}
}

// Cache is a bounded LRU cache. The zero value is not usable; construct
// with New.
type Cache[K comparable, V any] struct {
	capacity int
	metrics  *metrics.Metrics
	name     string

	mu    sync.Mutex
	items map[K]*node[K, V]
	head  *node[K, V]
	tail  *node[K, V]
}

// New constructs a Cache. A zero or negative Capacity falls back to
// DefaultConfig's.
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	c := &Cache[K, V]{
		capacity: cfg.Capacity,
		metrics:  cfg.Metrics,
		name:     name,
		items:    make(map[K]*node[K, V], cfg.Capacity),
		head:     &node[K, V]{},
		tail:     &node[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value stored under key and whether it was present,
// marking the entry most-recently-used on a hit.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	failfast.NotNil(key, "key")
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		c.metrics.CacheMiss(c.name)
		var zero V
		return zero, false
	}
	c.moveToHeadLocked(n)
	c.metrics.CacheHit(c.name)
	return n.value, true
}

// GetOrCompute returns the cached value for key, or calls compute to
// produce one if key isn't present. compute reports a value found alongside
// true, or signals absence with false and no error: an absent result is not
// cached and is returned to the caller as the zero value and false, exactly
// like a Get miss. If two goroutines race to compute the same missing key,
// the result stored first is kept and returned to both; unlike Put, a later
// compute never overwrites it.
func (c *Cache[K, V]) GetOrCompute(key K, compute func(K) (V, bool, error)) (V, bool, error) {
	failfast.NotNil(key, "key")
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	v, found, err := compute(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	if !found {
		var zero V
		return zero, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.items[key]; ok {
		c.moveToHeadLocked(n)
		return n.value, true, nil
	}
	c.insertLocked(key, v)
	return v, true, nil
}

// Put stores value under key, marking it most-recently-used. If key was
// already present its value is overwritten in place.
func (c *Cache[K, V]) Put(key K, value V) {
	failfast.NotNil(key, "key")
	failfast.NotNil(value, "value")
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		n.value = value
		c.moveToHeadLocked(n)
		return
	}
	c.insertLocked(key, value)
}

// insertLocked adds a new node for key/value at the head, then evicts the
// LRU entry if the insert took the cache over capacity. Caller holds c.mu.
func (c *Cache[K, V]) insertLocked(key K, value V) {
	n := &node[K, V]{key: key, value: value}
	c.items[key] = n
	c.addToHeadLocked(n)
	if len(c.items) > c.capacity {
		c.evictLRULocked()
	}
}

func (c *Cache[K, V]) addToHeadLocked(n *node[K, V]) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache[K, V]) removeLocked(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

// moveToHeadLocked is a no-op if n is already the most-recently-used node.
func (c *Cache[K, V]) moveToHeadLocked(n *node[K, V]) {
	if c.head.next == n {
		return
	}
	c.removeLocked(n)
	c.addToHeadLocked(n)
}

func (c *Cache[K, V]) evictLRULocked() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.removeLocked(lru)
	delete(c.items, lru.key)
	c.metrics.CacheEvicted(c.name)
}

// Size returns the number of entries currently cached.
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*node[K, V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}
