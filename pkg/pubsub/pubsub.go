// Package pubsub implements an in-memory, partitioned publish/subscribe
// log: topics are split into a fixed number of partitions by key hash, a
// producer appends messages to a topic, and named consumer groups track
// their own read offset per partition independently of every other group.
//
// Ordering is preserved within a key (every message for the same key lands
// in the same partition, in publish order) but not across keys: two
// producers publishing under different keys may interleave across
// partitions in either order. There is no cross-process delivery and no
// persistence; a PubSub only outlives the process that created it.
package pubsub

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/symentispl/concurrency-primitives/pkg/metrics"
)

// Message is one published record. ID is assigned at publish time and is
// unique across the life of the process.
type Message[V any] struct {
	ID        uuid.UUID
	Key       string
	Value     V
	Timestamp time.Time
}

// Config configures a PubSub[V].
type Config struct {
	// Partitions is the number of partitions each new topic is created
	// with. Defaults to 1 (a single totally-ordered log) if not positive.
	Partitions int
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a single-partition Config.
func DefaultConfig() Config {
	return Config{Partitions: 1}
}

// partition is one ordered append-only slice of messages, guarded
// independently of every other partition in the same topic.
type partition[V any] struct {
	mu       sync.RWMutex
	messages []Message[V]
}

// consumerGroup tracks one committed read offset per partition.
type consumerGroup struct {
	mu        sync.Mutex
	committed []int
}

// Topic holds a fixed set of partitions and the consumer groups reading
// from them. Topics are created lazily by PubSub and never destroyed.
type Topic[V any] struct {
	name       string
	partitions []*partition[V]
	metrics    *metrics.Metrics

	groupsMu sync.Mutex
	groups   map[string]*consumerGroup
}

// PubSub is a registry of independently partitioned Topics, all sharing
// the same partition count. The zero value is not usable; construct with
// New.
type PubSub[V any] struct {
	partitions int
	metrics    *metrics.Metrics

	mu     sync.RWMutex
	topics map[string]*Topic[V]
}

// New constructs a PubSub. A zero or negative Partitions falls back to
// DefaultConfig's.
func New[V any](cfg Config) *PubSub[V] {
	if cfg.Partitions <= 0 {
		cfg.Partitions = DefaultConfig().Partitions
	}
	return &PubSub[V]{
		partitions: cfg.Partitions,
		metrics:    cfg.Metrics,
		topics:     make(map[string]*Topic[V]),
	}
}

// Topic returns the named topic, creating it on first use.
func (p *PubSub[V]) Topic(name string) *Topic[V] {
	p.mu.RLock()
	t, ok := p.topics[name]
	p.mu.RUnlock()
	if ok {
		return t
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[name]; ok {
		return t
	}
	t = &Topic[V]{
		name:       name,
		partitions: make([]*partition[V], p.partitions),
		metrics:    p.metrics,
		groups:     make(map[string]*consumerGroup),
	}
	for i := range t.partitions {
		t.partitions[i] = &partition[V]{}
	}
	p.topics[name] = t
	return t
}

// partitionFor routes key deterministically to one of the topic's
// partitions. Every message published under the same key always lands in
// the same partition, which is what keeps per-key ordering intact.
func (t *Topic[V]) partitionFor(key string) *partition[V] {
	idx := xxhash.Sum64String(key) % uint64(len(t.partitions))
	return t.partitions[idx]
}

// Publish appends value under key and returns the Message that was
// stored, including the ID and Timestamp it was assigned. An empty key is
// routed and ordered exactly like any other key; Publish always succeeds
// for the life of the process.
func (t *Topic[V]) Publish(key string, value V) Message[V] {
	msg := Message[V]{
		ID:        uuid.New(),
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
	}
	part := t.partitionFor(key)
	part.mu.Lock()
	part.messages = append(part.messages, msg)
	part.mu.Unlock()
	t.metrics.PubSubPublished(t.name)
	return msg
}

// getOrCreateGroup returns the named consumer group, creating it (with
// every partition's offset at 0) on first use.
func (t *Topic[V]) getOrCreateGroup(group string) *consumerGroup {
	t.groupsMu.Lock()
	defer t.groupsMu.Unlock()
	g, ok := t.groups[group]
	if ok {
		return g
	}
	g = &consumerGroup{committed: make([]int, len(t.partitions))}
	t.groups[group] = g
	return g
}

// Poll returns up to maxN messages published since group's last Commit,
// across every partition, in partition order. A maxN of zero or less
// returns no messages. Calling Poll again before Commit returns the same
// messages from the start, plus anything published in between: Poll never
// advances a group's offset by itself.
func (t *Topic[V]) Poll(group string, maxN int) []Message[V] {
	if maxN <= 0 {
		return nil
	}
	g := t.getOrCreateGroup(group)
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Message[V]
	remaining := maxN
	for i, part := range t.partitions {
		if remaining <= 0 {
			break
		}
		part.mu.RLock()
		start := g.committed[i]
		end := len(part.messages)
		if end > start {
			if n := end - start; n > remaining {
				end = start + remaining
			}
			out = append(out, part.messages[start:end]...)
			remaining -= end - start
		}
		part.mu.RUnlock()
	}
	return out
}

// Commit advances group's logical offset to newOffset, distributing the
// advance over each partition's uncommitted messages in the same
// partition-major order Poll reads them in, clamped to however many
// messages each partition actually holds. If
// newOffset is less than or equal to the group's current committed offset,
// Commit is a no-op: the committed offset only ever moves forward.
func (t *Topic[V]) Commit(group string, newOffset int) {
	g := t.getOrCreateGroup(group)
	g.mu.Lock()
	defer g.mu.Unlock()

	current := 0
	for _, c := range g.committed {
		current += c
	}
	if newOffset <= current {
		return
	}

	remaining := newOffset - current
	advanced := false
	for i, part := range t.partitions {
		if remaining <= 0 {
			break
		}
		part.mu.RLock()
		length := len(part.messages)
		part.mu.RUnlock()

		take := length - g.committed[i]
		if take > remaining {
			take = remaining
		}
		if take > 0 {
			g.committed[i] += take
			remaining -= take
			advanced = true
		}
	}
	if advanced {
		t.metrics.PubSubCommitted(t.name, group)
	}
}

// CommittedOffset returns group's logical commit position: the total
// number of messages, across every partition, that group has committed.
// Partitions are an internal routing detail; callers never see them.
func (t *Topic[V]) CommittedOffset(group string) int {
	g := t.getOrCreateGroup(group)
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, c := range g.committed {
		total += c
	}
	return total
}

// Len returns the total number of messages published to the topic across
// every partition.
func (t *Topic[V]) Len() int {
	total := 0
	for _, part := range t.partitions {
		part.mu.RLock()
		total += len(part.messages)
		part.mu.RUnlock()
	}
	return total
}
