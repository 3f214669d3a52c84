package signet

import (
	"sync"
	"sync/atomic"
)

// Notifier is the listener-set primitive used by signals and computeds to
// fan out change events. Listener order is not significant. A notifier's
// lifetime is bound to its owning reactive value: disposing the value
// disposes the notifier, after which every mutating operation is a safe no-op.
type Notifier struct {
	id uint64

	// listeners subscribed to this notifier.
	listeners []Listener

	// mu protects the listeners slice.
	mu sync.Mutex

	disposed atomic.Bool

	// onActivate fires when the listener count transitions 0 -> 1,
	// onDeactivate when it transitions 1 -> 0. Computeds use these to switch
	// between lazy pull reads and live subscription.
	onActivate   func()
	onDeactivate func()
}

// NotifierOption configures a Notifier at construction time.
type NotifierOption func(*Notifier)

// OnActivate registers a hook invoked when the first listener is added.
func OnActivate(fn func()) NotifierOption {
	return func(n *Notifier) { n.onActivate = fn }
}

// OnDeactivate registers a hook invoked when the last listener is removed.
func OnDeactivate(fn func()) NotifierOption {
	return func(n *Notifier) { n.onDeactivate = fn }
}

// NewNotifier creates a notifier with a fresh unique ID.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{id: nextID()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID returns the unique identifier for this notifier.
func (n *Notifier) ID() uint64 {
	return n.id
}

// AddListener subscribes a listener. Deduplicates by listener ID.
// No-op once disposed or when l is nil.
func (n *Notifier) AddListener(l Listener) {
	if l == nil || n.disposed.Load() {
		return
	}

	n.mu.Lock()
	lid := l.ID()
	for _, existing := range n.listeners {
		if existing.ID() == lid {
			n.mu.Unlock()
			return
		}
	}
	n.listeners = append(n.listeners, l)
	activated := len(n.listeners) == 1
	n.mu.Unlock()

	if activated && n.onActivate != nil {
		n.onActivate()
	}
}

// RemoveListener unsubscribes a listener. No-op once disposed, when l is nil,
// or when l was never subscribed.
func (n *Notifier) RemoveListener(l Listener) {
	if l == nil || n.disposed.Load() {
		return
	}

	n.mu.Lock()
	lid := l.ID()
	removed := false
	for i, existing := range n.listeners {
		if existing.ID() == lid {
			// Remove by swapping with the last element (order doesn't matter)
			n.listeners[i] = n.listeners[len(n.listeners)-1]
			n.listeners = n.listeners[:len(n.listeners)-1]
			removed = true
			break
		}
	}
	deactivated := removed && len(n.listeners) == 0
	n.mu.Unlock()

	if deactivated && n.onDeactivate != nil {
		n.onDeactivate()
	}
}

// Len returns the current listener count.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// Notify announces a change to all listeners. It never calls listeners
// directly: the notification is routed through the propagation engine, which
// may defer it into a batch or append it to an in-flight propagation cycle.
func (n *Notifier) Notify() {
	notify(n)
}

// Dispose clears the listener set and marks the notifier disposed.
// Subsequent calls, and any later AddListener/RemoveListener/Notify, are
// safe no-ops.
func (n *Notifier) Dispose() {
	if n.disposed.Swap(true) {
		return
	}
	n.mu.Lock()
	n.listeners = nil
	n.mu.Unlock()
}

// IsDisposed reports whether Dispose has been called.
func (n *Notifier) IsDisposed() bool {
	return n.disposed.Load()
}

// invoke calls the listeners. A single listener is called directly; multiple
// listeners are invoked over an immutable snapshot taken before iteration, so
// listeners may add or remove others mid-notification without corrupting the
// iteration. Snapshotted listeners that were removed in the meantime are
// skipped.
func (n *Notifier) invoke() {
	if n.disposed.Load() {
		return
	}

	n.mu.Lock()
	if len(n.listeners) == 0 {
		n.mu.Unlock()
		return
	}
	if len(n.listeners) == 1 {
		l := n.listeners[0]
		n.mu.Unlock()
		l.MarkDirty()
		return
	}
	snapshot := make([]Listener, len(n.listeners))
	copy(snapshot, n.listeners)
	n.mu.Unlock()

	for _, l := range snapshot {
		if !n.has(l.ID()) {
			continue
		}
		l.MarkDirty()
	}
}

// has reports whether a listener with the given ID is currently subscribed.
func (n *Notifier) has(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, l := range n.listeners {
		if l.ID() == id {
			return true
		}
	}
	return false
}
