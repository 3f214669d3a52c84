package future

import "fmt"

// Kind identifies the variant of a Status.
type Kind uint8

const (
	// Idle means the computation is not running and not scheduled.
	Idle Kind = iota
	// Waiting means a computation is in flight.
	Waiting
	// Success means the last computation completed with a value.
	Success
	// Error means the last computation failed.
	Error
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Idle:
		return "Idle"
	case Waiting:
		return "Waiting"
	case Success:
		return "Success"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is the closed variant set describing an asynchronous computation:
// Idle, Waiting, Success, or Error. Every variant except Success may carry a
// last-known value from an earlier success, supporting stale-while-revalidate
// consumers.
type Status[T any] struct {
	kind Kind

	value    T
	hasValue bool

	last    T
	hasLast bool

	err   error
	stack []byte

	progress    float64
	hasProgress bool
}

// NewIdle returns an Idle status with no last-known value.
func NewIdle[T any]() Status[T] {
	return Status[T]{kind: Idle}
}

// NewWaiting returns a Waiting status with no last-known value.
func NewWaiting[T any]() Status[T] {
	return Status[T]{kind: Waiting}
}

// NewSuccess returns a Success status carrying value.
func NewSuccess[T any](value T) Status[T] {
	return Status[T]{kind: Success, value: value, hasValue: true}
}

// NewError returns an Error status carrying err.
func NewError[T any](err error) Status[T] {
	return Status[T]{kind: Error, err: err}
}

// Kind returns the status variant.
func (s Status[T]) Kind() Kind {
	return s.kind
}

// IsLoading reports whether the computation has not yet produced a terminal
// result: the status is Idle or Waiting.
func (s Status[T]) IsLoading() bool {
	return s.kind == Idle || s.kind == Waiting
}

// IsSuccess reports whether the status is Success.
func (s Status[T]) IsSuccess() bool {
	return s.kind == Success
}

// HasError reports whether the status is Error.
func (s Status[T]) HasError() bool {
	return s.kind == Error
}

// HasValue reports whether a current or last-known value is available.
func (s Status[T]) HasValue() bool {
	return s.hasValue || s.hasLast
}

// Value returns the success value, or the last-known value when the current
// variant carries one. The bool reports availability.
func (s Status[T]) Value() (T, bool) {
	if s.hasValue {
		return s.value, true
	}
	if s.hasLast {
		return s.last, true
	}
	var zero T
	return zero, false
}

// ValueOr returns the current or last-known value, or fallback when neither
// is available.
func (s Status[T]) ValueOr(fallback T) T {
	if v, ok := s.Value(); ok {
		return v
	}
	return fallback
}

// MustValue returns the current or last-known value, panicking when neither
// is available.
func (s Status[T]) MustValue() T {
	v, ok := s.Value()
	if !ok {
		panic(fmt.Sprintf("future: MustValue on %s status with no value", s.kind))
	}
	return v
}

// Err returns the error of an Error status, or nil.
func (s Status[T]) Err() error {
	return s.err
}

// ErrStack returns the captured stack of a panicking computation, or nil.
func (s Status[T]) ErrStack() []byte {
	return s.stack
}

// Progress returns the reported progress of a Waiting status in [0, 1].
// The bool reports whether progress was ever reported for this launch.
func (s Status[T]) Progress() (float64, bool) {
	return s.progress, s.hasProgress
}

// waitingFrom derives a Waiting status from prev, carrying prev's current or
// last-known value forward.
func waitingFrom[T any](prev Status[T]) Status[T] {
	next := Status[T]{kind: Waiting}
	if v, ok := prev.Value(); ok {
		next.last = v
		next.hasLast = true
	}
	return next
}

// idleFrom derives an Idle status from prev, carrying the last-known value.
func idleFrom[T any](prev Status[T]) Status[T] {
	next := Status[T]{kind: Idle}
	if v, ok := prev.Value(); ok {
		next.last = v
		next.hasLast = true
	}
	return next
}

// errorFrom derives an Error status from prev, carrying the last-known value.
func errorFrom[T any](prev Status[T], err error, stack []byte) Status[T] {
	next := Status[T]{kind: Error, err: err, stack: stack}
	if v, ok := prev.Value(); ok {
		next.last = v
		next.hasLast = true
	}
	return next
}
