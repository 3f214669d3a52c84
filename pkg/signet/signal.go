package signet

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Signal is a mutable reactive value cell. Reading a signal reports to the
// current observation context; writing drives the propagation engine through
// the signal's notifier and threads every change through the middleware
// chain.
//
// The value mutates only through the defined write path: Set, Update, Mutate,
// or a middleware Restore.
type Signal[T any] struct {
	name     string
	notifier *Notifier

	// value is the current signal value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// equal is the equality function used to decide whether a write changed
	// the value. If nil, uses default equality checking.
	equal func(T, T) bool

	// push is the owned push channel, created via WithChannel.
	push chan T

	// bound is an externally owned channel attached via BindChannel.
	bound chan<- T

	closed atomic.Bool
}

// NewSignal creates a new signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	n := NewNotifier()
	return &Signal[T]{
		name:     fmt.Sprintf("signal-%d", n.ID()),
		notifier: n,
		value:    initial,
	}
}

// WithName sets the signal's name, used in StateChange records.
// Returns the signal for chaining.
func (s *Signal[T]) WithName(name string) *Signal[T] {
	s.name = name
	return s
}

// WithEquals configures a custom equality function, used to decide whether a
// write changed the value. Useful for types where reflect.DeepEqual is too
// expensive or has the wrong semantics. Returns the signal for chaining.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// WithChannel attaches an owned push channel with the given buffer size.
// Every committed write is pushed (non-blocking; a full buffer drops the
// push). The channel is closed when the signal is closed. Returns the signal
// for chaining.
func (s *Signal[T]) WithChannel(buffer int) *Signal[T] {
	s.push = make(chan T, buffer)
	return s
}

// BindChannel attaches an externally owned channel. Every committed write is
// pushed non-blocking. The signal never closes a bound channel.
// Returns the signal for chaining.
func (s *Signal[T]) BindChannel(ch chan<- T) *Signal[T] {
	s.bound = ch
	return s
}

// Name returns the signal's name.
func (s *Signal[T]) Name() string {
	return s.name
}

// ID returns the unique identifier of the signal's notifier.
func (s *Signal[T]) ID() uint64 {
	return s.notifier.ID()
}

// Notifier exposes the signal's notifier for observers that subscribe
// directly.
func (s *Signal[T]) Notifier() *Notifier {
	return s.notifier
}

// Channel returns the signal's push channel, or nil if none was attached.
func (s *Signal[T]) Channel() <-chan T {
	return s.push
}

// Get returns the current value and reports the read to the observation
// context.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	var ch any
	if s.push != nil {
		ch = (<-chan T)(s.push)
	}
	reportRead(s.notifier, ch)

	return value
}

// Peek returns the current value without reporting the read.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set writes a new value. Equal values (per the equality function) are
// no-ops: no middleware, no mutation, no notification. Otherwise the change
// is threaded through the middleware chain; any veto aborts with no mutation
// and no notification. After a committed write the after hooks run, unless
// propagation was stopped mid-chain.
//
// Set on a closed signal is a safe no-op.
func (s *Signal[T]) Set(value T) {
	if s.closed.Load() {
		return
	}

	s.mu.RLock()
	old := s.value
	s.mu.RUnlock()
	if s.equals(old, value) {
		return
	}

	if bypassed() || chainEmpty() {
		s.commit(value)
		return
	}

	change := &StateChange{
		Timestamp: time.Now(),
		Name:      s.name,
		Old:       old,
		New:       value,
		Type:      fmt.Sprintf("%T", value),
		restore: func(v any) {
			s.commit(v.(T))
		},
	}
	if captureStacks.Load() {
		change.Stack = debug.Stack()
	}

	if !chainBefore(change) {
		// Vetoed: silently drop the write.
		return
	}

	s.commit(value)
	chainAfter(change)
}

// Update atomically derives the new value from the current one and writes it
// through Set semantics.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.RLock()
	current := s.value
	s.mu.RUnlock()
	s.Set(fn(current))
}

// Refresh forces a notification without changing the value. Intended for
// values mutated in place, where identity does not change. Does not thread
// the middleware chain.
func (s *Signal[T]) Refresh() {
	if s.closed.Load() {
		return
	}
	s.pushValue(s.Peek())
	s.notifier.Notify()
}

// Mutate applies an in-place mutation to the value and forces a
// notification, regardless of identity. Does not thread the middleware
// chain.
func (s *Signal[T]) Mutate(fn func(*T)) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	fn(&s.value)
	value := s.value
	s.mu.Unlock()

	s.pushValue(value)
	s.notifier.Notify()
}

// AddListener subscribes a listener to the signal's notifier.
func (s *Signal[T]) AddListener(l Listener) {
	s.notifier.AddListener(l)
}

// RemoveListener unsubscribes a listener from the signal's notifier.
func (s *Signal[T]) RemoveListener(l Listener) {
	s.notifier.RemoveListener(l)
}

// Close disposes the signal: the notifier is disposed and the owned push
// channel, if any, is closed. Mutating a closed signal never throws and
// never notifies previously attached listeners. Close is idempotent.
func (s *Signal[T]) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.notifier.Dispose()
	if s.push != nil {
		close(s.push)
	}
}

// commit is the trusted write path: mutate, push to bound channels, notify.
// Middleware has already run (or is intentionally bypassed).
func (s *Signal[T]) commit(value T) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.pushValue(value)
	s.notifier.Notify()
}

// pushValue sends the value to the owned and bound channels, non-blocking.
func (s *Signal[T]) pushValue(value T) {
	if s.push != nil {
		select {
		case s.push <- value:
		default:
		}
	}
	if s.bound != nil {
		select {
		case s.bound <- value:
		default:
		}
	}
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}
