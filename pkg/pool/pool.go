// Package pool implements a bounded object pool: up to MaxCapacity
// resources may be borrowed at once, a warm set of MinCapacity resources is
// kept pre-built, and a resource that fails validation on release is
// replaced on a best-effort basis rather than handed back to the next
// borrower.
//
// It is translated from a design built on a bounded queue of idle resources
// guarded by a counting semaphore sized to MaxCapacity: acquiring a permit
// is what actually enforces the ceiling, the queue just holds whichever
// resources happen to be idle.
package pool

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/symentispl/concurrency-primitives/pkg/corelog"
	"github.com/symentispl/concurrency-primitives/pkg/metrics"
)

// Error is returned for lifecycle and capacity conditions a caller is
// expected to handle, as opposed to programmer errors which panic.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrPoolClosed is returned by Borrow once Close has been called.
var ErrPoolClosed = &Error{Code: "POOL_CLOSED", Message: "pool is closed"}

// Config configures a Pool[T]. Factory is required; Validate defaults to
// always-valid if nil.
type Config[T any] struct {
	// Factory builds a new resource. Called to prewarm MinCapacity
	// resources at construction time and whenever Borrow finds the idle
	// queue empty.
	Factory func(ctx context.Context) (T, error)
	// Validate reports whether a resource returned to Release is still
	// usable. A nil Validate treats every resource as always valid.
	Validate func(T) bool
	// MinCapacity is the number of resources kept pre-built and, on a
	// best-effort basis, replenished when a Release finds a resource
	// invalid.
	MinCapacity int
	// MaxCapacity bounds the number of resources that may be borrowed at
	// once. Must be positive and >= MinCapacity.
	MaxCapacity int
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
	// Logger is optional; a nil value disables logging. Used only to
	// report a factory failure encountered while replacing an invalid
	// resource during Release, since Release itself has no error return.
	Logger corelog.Logger
	// Name labels this pool's metrics. Defaults to "default".
	Name string
	// Close releases a resource for good. Called once per idle resource
	// when the pool itself is closed, mirroring the original design's
	// AutoCloseable teardown. Optional; a nil Close simply drops idle
	// resources without notifying them.
	Close func(T)
}

// Pool is a bounded pool of resources of type T. The zero value is not
// usable; construct with New.
type Pool[T any] struct {
	factory  func(ctx context.Context) (T, error)
	validate func(T) bool
	min, max int
	name     string
	metrics  *metrics.Metrics
	logger   corelog.Logger

	sem *semaphore.Weighted

	mu        sync.Mutex
	idle      []T
	closed    bool
	closeHook func(T)
}

// New constructs a Pool and prewarms MinCapacity resources. If prewarming
// fails, the partially built resources are discarded and the factory error
// is returned wrapped.
func New[T any](cfg Config[T]) (*Pool[T], error) {
	if cfg.Factory == nil {
		panic("pool: Factory must not be nil")
	}
	if cfg.MaxCapacity <= 0 {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "MaxCapacity must be positive"}
	}
	if cfg.MinCapacity < 0 || cfg.MinCapacity > cfg.MaxCapacity {
		return nil, &Error{Code: "INVALID_CONFIG", Message: "MinCapacity must be within [0, MaxCapacity]"}
	}
	validate := cfg.Validate
	if validate == nil {
		validate = func(T) bool { return true }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = corelog.NewNoop()
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}

	p := &Pool[T]{
		factory:   cfg.Factory,
		validate:  validate,
		min:       cfg.MinCapacity,
		max:       cfg.MaxCapacity,
		name:      name,
		metrics:   cfg.Metrics,
		logger:    logger,
		sem:       semaphore.NewWeighted(int64(cfg.MaxCapacity)),
		idle:      make([]T, 0, cfg.MinCapacity),
		closeHook: cfg.Close,
	}

	ctx := context.Background()
	for i := 0; i < cfg.MinCapacity; i++ {
		r, err := cfg.Factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("pool: prewarm resource %d/%d: %w", i+1, cfg.MinCapacity, err)
		}
		p.idle = append(p.idle, r)
	}
	p.metrics.PoolAvailableSet(p.name, float64(len(p.idle)))
	return p, nil
}

// Borrow returns an idle resource if one is available, otherwise builds a
// new one via Factory, blocking until a permit is free or ctx is done.
// Returns ErrPoolClosed if Close has already been called.
func (p *Pool[T]) Borrow(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return zero, ErrPoolClosed
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	p.mu.Lock()
	n := len(p.idle)
	var r T
	if n > 0 {
		r = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.metrics.PoolAvailableSet(p.name, float64(len(p.idle)))
	p.mu.Unlock()

	if n == 0 {
		built, err := p.factory(ctx)
		if err != nil {
			p.sem.Release(1)
			return zero, fmt.Errorf("pool: build resource: %w", err)
		}
		r = built
	}

	p.metrics.PoolBorrowed(p.name)
	return r, nil
}

// Release returns a resource previously obtained from Borrow. If it still
// validates, it's returned to the idle queue for the next Borrow. If not,
// it's discarded, and a best-effort replacement is built if doing so would
// keep the idle queue at or above MinCapacity; a replacement failure is
// logged, never returned, since Release has no error return in the design
// this is translated from.
//
// The semaphore permit is always released last, after idle-queue
// accounting (and any best-effort rewarm) has settled, via defer: a panic
// inside Validate or Factory still releases the permit, it just doesn't
// leave the resource counted as available.
func (p *Pool[T]) Release(r T) {
	defer p.sem.Release(1)

	valid := p.validate(r)
	p.metrics.PoolReleased(p.name, valid)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if valid {
		p.idle = append(p.idle, r)
		p.metrics.PoolAvailableSet(p.name, float64(len(p.idle)))
		p.mu.Unlock()
		return
	}
	needsRewarm := len(p.idle) < p.min
	p.mu.Unlock()

	if !needsRewarm {
		return
	}
	p.rewarm()
}

// rewarm builds one replacement resource and adds it to the idle queue,
// logging instead of propagating a factory failure.
func (p *Pool[T]) rewarm() {
	built, err := p.factory(context.Background())
	if err != nil {
		p.logger.Warnf("pool %s: rewarm after invalid release failed: %v", p.name, err)
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, built)
	p.metrics.PoolAvailableSet(p.name, float64(len(p.idle)))
	p.mu.Unlock()
	p.metrics.PoolRewarmed(p.name)
}

// AvailableCount returns the number of idle resources currently held.
func (p *Pool[T]) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// MinCapacity returns the configured warm-set floor.
func (p *Pool[T]) MinCapacity() int { return p.min }

// MaxCapacity returns the configured ceiling on borrowed-plus-idle
// resources.
func (p *Pool[T]) MaxCapacity() int { return p.max }

// Close marks the pool closed; future Borrow calls fail with
// ErrPoolClosed. Resources already borrowed are unaffected and may still
// be Released; a resource released after Close is dropped rather than
// returned to the idle set. Every idle resource is drained from the pool
// and, if Config.Close was set, passed to it for teardown.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	p.metrics.PoolAvailableSet(p.name, 0)

	if p.closeHook == nil {
		return
	}
	for _, r := range idle {
		p.closeHook(r)
	}
}
