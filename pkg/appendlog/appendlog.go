// Package appendlog implements a concurrent, append-only multimap: many
// writers append values under arbitrary keys without blocking each other,
// and readers observe a consistent, monotonically growing view per key.
//
// It is translated from a chunked-array-per-key design: each key owns a
// directory of fixed-size chunks that grows by doubling, so a write never
// has to copy already-written values into a bigger contiguous array. The
// directory itself is read through an atomic pointer, so growth by one
// writer is never visible to a reader mid-copy.
package appendlog

import (
	"iter"
	"sync"

	"github.com/symentispl/concurrency-primitives/pkg/failfast"
	"github.com/symentispl/concurrency-primitives/pkg/metrics"
)

// Config configures the chunk size a new AppendLog allocates for each key
// it sees for the first time.
type Config struct {
	// ChunkSize is the element count of each chunk. Must be positive.
	ChunkSize int
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
}

// DefaultConfig returns the built-in chunk size.
func DefaultConfig() Config {
	return Config{ChunkSize: 1024}
}

// AppendLog is a concurrent append-only multimap from K to a sequence of V.
// The zero value is not usable; construct with New.
type AppendLog[K comparable, V any] struct {
	chunkSize int
	metrics   *metrics.Metrics

	mu    sync.RWMutex
	byKey map[K]*chunkedArray[V]
}

// New constructs an AppendLog. A zero or negative ChunkSize falls back to
// DefaultConfig's.
func New[K comparable, V any](cfg Config) *AppendLog[K, V] {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	return &AppendLog[K, V]{
		chunkSize: cfg.ChunkSize,
		metrics:   cfg.Metrics,
		byKey:     make(map[K]*chunkedArray[V]),
	}
}

// getOrCreate returns the chunked array for key, creating it under a write
// lock the first time the key is seen. Reads of an existing key only ever
// take the read lock.
func (l *AppendLog[K, V]) getOrCreate(key K) *chunkedArray[V] {
	l.mu.RLock()
	ca, ok := l.byKey[key]
	l.mu.RUnlock()
	if ok {
		return ca
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ca, ok := l.byKey[key]; ok {
		return ca
	}
	ca = newChunkedArray[V](l.chunkSize, l.metrics)
	l.byKey[key] = ca
	return ca
}

func (l *AppendLog[K, V]) lookup(key K) (*chunkedArray[V], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ca, ok := l.byKey[key]
	return ca, ok
}

// Add appends value under key, creating the key's sequence if this is the
// first value seen for it. Panics if key is a nil interface, pointer, map,
// slice, chan, or func.
func (l *AppendLog[K, V]) Add(key K, value V) {
	failfast.NotNil(key, "key")
	l.getOrCreate(key).add(value)
}

// AddAll appends every element of values under key, in order, as a single
// reservation. A nil or empty values is a no-op.
func (l *AppendLog[K, V]) AddAll(key K, values []V) int {
	failfast.NotNil(key, "key")
	if len(values) == 0 {
		return 0
	}
	return l.getOrCreate(key).addAll(values)
}

// Get returns a snapshot of every value appended under key so far, in
// append order. Returns nil if key has never been seen.
func (l *AppendLog[K, V]) Get(key K) []V {
	ca, ok := l.lookup(key)
	if !ok {
		return nil
	}
	return ca.toSlice()
}

// Len returns the number of values appended under key so far.
func (l *AppendLog[K, V]) Len(key K) int {
	ca, ok := l.lookup(key)
	if !ok {
		return 0
	}
	return ca.size()
}

// Iterator returns a lazy sequence over key's values, bounded by the
// length observed when Iterator is called. It is finite and not
// restartable; a second Iterator call over the same key returns a fresh
// sequence that may see later appends.
func (l *AppendLog[K, V]) Iterator(key K) iter.Seq[V] {
	ca, ok := l.lookup(key)
	if !ok {
		return func(func(V) bool) {}
	}
	return ca.iterator()
}

// Stream is Iterator's channel-based counterpart: a background goroutine
// feeds values bounded by the length observed when Stream is called, and
// closes the channel once they're all sent.
func (l *AppendLog[K, V]) Stream(key K) <-chan V {
	ca, ok := l.lookup(key)
	if !ok {
		closed := make(chan V)
		close(closed)
		return closed
	}
	return ca.stream()
}

// KeySet returns a snapshot of every key that has had at least one value
// appended under it.
func (l *AppendLog[K, V]) KeySet() []K {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]K, 0, len(l.byKey))
	for k := range l.byKey {
		keys = append(keys, k)
	}
	return keys
}

// KeyCount returns the number of distinct keys seen so far.
func (l *AppendLog[K, V]) KeyCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byKey)
}

// Size returns the total number of values appended across every key.
func (l *AppendLog[K, V]) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, ca := range l.byKey {
		total += ca.size()
	}
	return total
}

// ForEach calls fn once per key with a fresh Iterator over that key's
// values, in an unspecified key order. fn may call Add or AddAll on the
// same AppendLog; such appends are not reflected in the sequence fn has
// already been given, and keys they create are not visited.
func (l *AppendLog[K, V]) ForEach(fn func(key K, values iter.Seq[V])) {
	l.mu.RLock()
	snapshot := make(map[K]*chunkedArray[V], len(l.byKey))
	for k, ca := range l.byKey {
		snapshot[k] = ca
	}
	l.mu.RUnlock()

	for k, ca := range snapshot {
		fn(k, ca.iterator())
	}
}
