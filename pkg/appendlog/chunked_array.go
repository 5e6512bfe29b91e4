package appendlog

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/symentispl/concurrency-primitives/pkg/metrics"
)

// chunkedArray is a single key's append-only sequence. Writers reserve a
// slot with an atomic fetch-and-add on cursor, grow the chunk directory if
// the reserved slot doesn't exist yet, then write the value into that slot.
// The reservation and the write are two separate steps, exactly as in the
// array this is translated from: a reader that observes cursor == N is not
// guaranteed to see the value at slot N-1 published yet. Readers therefore
// bound themselves by a cursor snapshot taken once at the start of the call,
// which is what every read operation below does.
type chunkedArray[V any] struct {
	chunkSize int
	cursor    atomic.Uint64
	growMu    sync.Mutex
	dir       atomic.Pointer[[][]V]
	metrics   *metrics.Metrics
}

func newChunkedArray[V any](chunkSize int, m *metrics.Metrics) *chunkedArray[V] {
	ca := &chunkedArray[V]{chunkSize: chunkSize, metrics: m}
	first := [][]V{make([]V, chunkSize)}
	ca.dir.Store(&first)
	return ca
}

// ensureCapacity grows the chunk directory so that chunkIdx is addressable.
// The fast path is lock-free; growth itself is double-checked under growMu
// so concurrent writers racing to grow the same directory don't duplicate
// the work or drop each other's chunks.
func (ca *chunkedArray[V]) ensureCapacity(chunkIdx int) {
	d := ca.dir.Load()
	if chunkIdx < len(*d) {
		return
	}
	ca.growMu.Lock()
	defer ca.growMu.Unlock()
	d = ca.dir.Load()
	if chunkIdx < len(*d) {
		return
	}
	newCap := len(*d) * 2
	if newCap <= chunkIdx {
		newCap = chunkIdx + 1
	}
	grown := make([][]V, newCap)
	copy(grown, *d)
	for i := len(*d); i < newCap; i++ {
		grown[i] = make([]V, ca.chunkSize)
	}
	ca.dir.Store(&grown)
	ca.metrics.ChunkGrowObserved()
}

// add reserves the next slot, grows if needed, and writes value into it.
func (ca *chunkedArray[V]) add(value V) {
	idx := ca.cursor.Add(1) - 1
	chunkIdx := int(idx) / ca.chunkSize
	offset := int(idx) % ca.chunkSize
	ca.ensureCapacity(chunkIdx)
	d := ca.dir.Load()
	(*d)[chunkIdx][offset] = value
	ca.metrics.AppendObserved()
}

// addAll reserves a contiguous run of len(values) slots in one atomic step
// and copies values chunk by chunk into that run.
func (ca *chunkedArray[V]) addAll(values []V) int {
	n := len(values)
	if n == 0 {
		return 0
	}
	start := ca.cursor.Add(uint64(n)) - uint64(n)
	end := start + uint64(n) - 1
	endChunk := int(end) / ca.chunkSize
	ca.ensureCapacity(endChunk)
	d := ca.dir.Load()

	written := 0
	chunkIdx := int(start) / ca.chunkSize
	pos := int(start) % ca.chunkSize
	for written < n {
		take := ca.chunkSize - pos
		if take > n-written {
			take = n - written
		}
		copy((*d)[chunkIdx][pos:pos+take], values[written:written+take])
		written += take
		chunkIdx++
		pos = 0
	}
	ca.metrics.AppendObservedN(n)
	return written
}

// size returns the cursor, clamped to the slots the chunk directory already
// holds: a writer reserves its slot before growing the directory, so the
// cursor can briefly run ahead of it.
func (ca *chunkedArray[V]) size() int {
	n := int(ca.cursor.Load())
	if held := len(*ca.dir.Load()) * ca.chunkSize; n > held {
		n = held
	}
	return n
}

// toSlice copies every slot up to a cursor snapshot taken at the start of
// the call into a fresh slice.
func (ca *chunkedArray[V]) toSlice() []V {
	n := ca.size()
	if n == 0 {
		return nil
	}
	d := ca.dir.Load()
	out := make([]V, n)
	remaining := n
	chunkIdx := 0
	pos := 0
	for remaining > 0 {
		take := ca.chunkSize
		if take > remaining {
			take = remaining
		}
		copy(out[pos:pos+take], (*d)[chunkIdx][:take])
		pos += take
		remaining -= take
		chunkIdx++
	}
	return out
}

// iterator returns a range-over-func sequence bounded by the cursor value
// observed when iterator is called. It is not restartable: calling it again
// produces a fresh sequence bounded by a possibly larger cursor.
func (ca *chunkedArray[V]) iterator() iter.Seq[V] {
	n := ca.size()
	d := ca.dir.Load()
	return func(yield func(V) bool) {
		for i := 0; i < n; i++ {
			if !yield((*d)[i/ca.chunkSize][i%ca.chunkSize]) {
				return
			}
		}
	}
}

// stream returns a channel fed by a background goroutine, bounded by the
// cursor value observed when stream is called. The channel is closed once
// every bounded element has been sent.
func (ca *chunkedArray[V]) stream() <-chan V {
	n := ca.size()
	d := ca.dir.Load()
	out := make(chan V)
	go func() {
		defer close(out)
		for i := 0; i < n; i++ {
			out <- (*d)[i/ca.chunkSize][i%ca.chunkSize]
		}
	}()
	return out
}
