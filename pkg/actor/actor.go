// Package actor implements a mailbox-based actor scheduler: each
// registered actor owns a bounded mailbox and a handler function, and a
// fixed pool of worker goroutines drains whichever actors currently have
// pending messages. An actor is never run by more than one worker at a
// time, and the number of goroutines in use never exceeds the configured
// worker count, regardless of how many actors are registered.
//
// It is translated from a design where each actor tracks a single
// "scheduled" flag: enqueuing a message into an empty, unscheduled
// mailbox is what triggers a drain task to be submitted, and a drain task
// that finds the mailbox empty clears the flag and then checks, one more
// time, whether the mailbox is still empty. That recheck is what closes the
// race where a message arrives in the instant between the drain loop seeing
// an empty mailbox and clearing its own flag.
package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/symentispl/concurrency-primitives/pkg/corelog"
	"github.com/symentispl/concurrency-primitives/pkg/metrics"
)

// ErrActorExists is returned by Register when id is already registered.
var ErrActorExists = errors.New("actor: already registered")

// ErrUnknownActor is returned by Send when id has never been registered.
var ErrUnknownActor = errors.New("actor: unknown actor")

// ErrSystemClosed is returned by Register once Shutdown has been called.
// Send never returns it.
var ErrSystemClosed = errors.New("actor: system is closed")

// Handler processes one message for an actor. A panic inside Handler is
// recovered by the drain loop, logged, and counted; it never takes down
// the worker goroutine or any other actor.
type Handler[T any] func(msg T)

// Config configures an ActorSystem[T].
type Config struct {
	// Workers is the fixed number of goroutines draining actor mailboxes.
	// Must be positive.
	Workers int
	// MailboxCapacity is not consulted by Register: each actor's mailbox
	// is sized by Register's own mailboxCapacity argument, and a
	// non-positive argument falls back to DefaultConfig's MailboxCapacity
	// rather than to this field.
	MailboxCapacity int
	// QueueSize bounds how many drain tasks may be queued for the worker
	// pool at once. Defaults to Workers*4 if not positive.
	QueueSize int
	// ShutdownTimeout bounds how long Shutdown waits for in-flight drain
	// tasks to finish before returning context.DeadlineExceeded.
	ShutdownTimeout time.Duration
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
	// Logger is optional; a nil value disables logging of recovered
	// handler panics.
	Logger corelog.Logger
}

// DefaultConfig returns a small fixed pool suitable for tests and
// low-throughput actor systems.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		MailboxCapacity: 256,
		ShutdownTimeout: 5 * time.Second,
	}
}

// actor is one registered mailbox plus the handler and scheduling state
// that decides when its mailbox gets drained.
type actor[T any] struct {
	id        string
	mailbox   *mailbox[T]
	handler   Handler[T]
	scheduled atomic.Bool
	system    *ActorSystem[T]
}

// ActorSystem registers named actors and routes messages sent to them
// through a fixed pool of worker goroutines. The zero value is not
// usable; construct with New.
type ActorSystem[T any] struct {
	workers int
	pool    *workerPool
	metrics *metrics.Metrics
	logger  corelog.Logger

	ctx             context.Context
	cancel          context.CancelFunc
	shutdownTimeout time.Duration

	mu     sync.RWMutex
	actors map[string]*actor[T]
	closed bool
}

// New constructs an ActorSystem and starts its fixed worker pool.
func New[T any](cfg Config) *ActorSystem[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = DefaultConfig().MailboxCapacity
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = corelog.NewNoop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ActorSystem[T]{
		workers:         cfg.Workers,
		pool:            newWorkerPool(ctx, cfg.Workers, cfg.QueueSize),
		metrics:         cfg.Metrics,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		shutdownTimeout: cfg.ShutdownTimeout,
		actors:          make(map[string]*actor[T]),
	}
}

// Register creates an actor under id with the given handler and a fresh
// mailbox. Returns ErrActorExists if id is already registered, or
// ErrSystemClosed if Shutdown has already been called.
func (s *ActorSystem[T]) Register(id string, mailboxCapacity int, handler Handler[T]) error {
	if mailboxCapacity <= 0 {
		mailboxCapacity = DefaultConfig().MailboxCapacity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSystemClosed
	}
	if _, exists := s.actors[id]; exists {
		return ErrActorExists
	}
	s.actors[id] = &actor[T]{
		id:      id,
		mailbox: newMailbox[T](mailboxCapacity),
		handler: handler,
		system:  s,
	}
	return nil
}

// Send enqueues msg on the actor registered under id. If the enqueue wins
// the race to schedule a drain, a drain task is submitted to the shared
// worker pool; otherwise a drain is already in flight or queued and will
// pick msg up.
//
// Send keeps accepting messages for a registered actor even after
// Shutdown has been called: the mailbox never closes, only the scheduling
// of new drains is suppressed once the system's context is canceled, so a
// message sent after Shutdown begins sits in the mailbox unprocessed
// rather than being rejected.
func (s *ActorSystem[T]) Send(id string, msg T) error {
	s.mu.RLock()
	a, ok := s.actors[id]
	s.mu.RUnlock()
	if !ok {
		return ErrUnknownActor
	}

	if err := a.mailbox.send(msg); err != nil {
		return err
	}
	a.scheduleIfIdle()
	return nil
}

// scheduleIfIdle submits a drain task if this enqueue is what transitions
// the actor from idle to scheduled. Losing the race means some other
// drain (already running or already queued) will see this message.
func (a *actor[T]) scheduleIfIdle() {
	if !a.scheduled.CompareAndSwap(false, true) {
		return
	}
	a.system.metrics.ActorScheduledSet(a.id, true)
	if err := a.system.pool.submit(a.drain); err != nil {
		// System is shutting down; give up the flag. The message stays in
		// the mailbox, unprocessed, since nothing will submit a new drain
		// for it once the pool's context is canceled.
		a.scheduled.Store(false)
		a.system.metrics.ActorScheduledSet(a.id, false)
	}
}

// drain processes every currently-pending message, then clears the
// scheduled flag and re-checks the mailbox once, non-destructively, to
// close the lost-wakeup window between "mailbox looked empty" and "flag
// is clear". If a message arrived in that window, drain tries to reclaim
// the flag itself rather than pay for another trip through the worker
// pool queue; if it loses that race, some other drain task already
// claimed the flag and will pick the message up.
func (a *actor[T]) drain() {
	for {
		for {
			msg, ok := a.mailbox.tryReceive()
			if !ok {
				break
			}
			a.handleOne(msg)
		}

		a.scheduled.Store(false)
		a.system.metrics.ActorScheduledSet(a.id, false)

		if a.mailbox.size() == 0 {
			return
		}
		if !a.scheduled.CompareAndSwap(false, true) {
			return
		}
		a.system.metrics.ActorScheduledSet(a.id, true)
	}
}

func (a *actor[T]) handleOne(msg T) {
	defer func() {
		if r := recover(); r != nil {
			a.system.metrics.ActorPanicked(a.id)
			a.system.logger.Errorf("actor %s: handler panic: %v", a.id, r)
		}
	}()
	a.handler(msg)
	a.system.metrics.ActorHandled(a.id)
}

// Shutdown stops accepting new registrations, cancels any queued drain
// submissions, and waits up to ShutdownTimeout for in-flight drains to
// finish. Send still enqueues into registered mailboxes afterwards, but no
// new drain is scheduled to process those messages.
func (s *ActorSystem[T]) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.pool.stop()
		close(done)
	}()

	timeout, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-timeout.Done():
		return timeout.Err()
	}
}

// ActorCount returns the number of actors currently registered.
func (s *ActorSystem[T]) ActorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors)
}

// MailboxSize returns the number of pending messages for id, or -1 if id
// isn't registered.
func (s *ActorSystem[T]) MailboxSize(id string) int {
	s.mu.RLock()
	a, ok := s.actors[id]
	s.mu.RUnlock()
	if !ok {
		return -1
	}
	return a.mailbox.size()
}
