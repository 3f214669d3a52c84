package signet

// Value is the uniform reactive-value contract implemented by Signal,
// Computed, async computeds, and derived views. Generic utilities like Watch
// and Transform operate over any of them interchangeably.
type Value[T any] interface {
	// Get returns the current value, reporting the read to the observation
	// context.
	Get() T

	// Peek returns the current value without reporting the read.
	Peek() T

	// AddListener subscribes a listener to change notifications.
	AddListener(l Listener)

	// RemoveListener unsubscribes a listener.
	RemoveListener(l Listener)

	// Close disposes the value, releasing listeners and subscriptions.
	Close()
}

// Disposable is the closed capability interface for anything that is cleaned
// up automatically when its owner goes away. Reactive values implement it;
// adapters wrap anything else. Nothing is probed reflectively.
type Disposable interface {
	Close()
}

// Transform returns a derived read-only view of src with fn applied.
// The view implements the Value contract: reads are tracked through src,
// listeners are delegated to src. Closing the view is a no-op; the view does
// not own its source.
func Transform[T, U any](src Value[T], fn func(T) U) Value[U] {
	return &transformed[T, U]{src: src, fn: fn}
}

type transformed[T, U any] struct {
	src Value[T]
	fn  func(T) U
}

func (t *transformed[T, U]) Get() U  { return t.fn(t.src.Get()) }
func (t *transformed[T, U]) Peek() U { return t.fn(t.src.Peek()) }

func (t *transformed[T, U]) AddListener(l Listener)    { t.src.AddListener(l) }
func (t *transformed[T, U]) RemoveListener(l Listener) { t.src.RemoveListener(l) }

func (t *transformed[T, U]) Close() {}

var (
	_ Value[int] = (*Signal[int])(nil)
	_ Value[int] = (*Computed[int])(nil)
	_ Value[int] = (*transformed[string, int])(nil)
)
