package signet

import "sync"

// Computed is a derived reactive value with automatic dependency discovery.
//
// A computed is lazily active. Without listeners every read recomputes fresh,
// with no caching and no subscriptions. The first listener activates it: the
// computed evaluates once with itself installed as the observer, subscribes
// to exactly the dependencies the evaluation touched, and from then on
// recomputes eagerly whenever any of them change, reconciling its dependency
// set after each evaluation. Removing the last listener deactivates it again
// and drops all subscriptions.
//
// While active, a read never returns a value stale relative to dependency
// writes completed before the read.
type Computed[T any] struct {
	id       uint64
	compute  func() T
	notifier *Notifier

	// equal gates downstream notification: recomputes yielding an equal
	// value do not cascade. Not applied to the first evaluation.
	equal func(T, T) bool

	// mu guards the fields below. Never held while compute runs.
	mu          sync.Mutex
	value       T
	everRan     bool
	active      bool
	recomputing bool
	deps        map[*Notifier]struct{}
	capturing   map[*Notifier]struct{}
	closed      bool
}

// NewComputed creates a computed with the given compute function.
// The computation does not run until the first read or the first listener.
func NewComputed[T any](compute func() T) *Computed[T] {
	c := &Computed[T]{
		id:      nextID(),
		compute: compute,
	}
	c.notifier = NewNotifier(
		OnActivate(c.activate),
		OnDeactivate(c.deactivate),
	)
	return c
}

// WithEquals configures a custom equality function used to decide whether a
// recompute changed the value. Returns the computed for chaining.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

// ID returns the unique identifier for this computed.
// Implements the Listener interface.
func (c *Computed[T]) ID() uint64 {
	return c.id
}

// Notifier exposes the computed's notifier for observers that subscribe
// directly.
func (c *Computed[T]) Notifier() *Notifier {
	return c.notifier
}

// Get returns the computed value and reports the read to the observation
// context. Inactive computeds evaluate fresh on every read; a panic from the
// compute function propagates to the caller and leaves any cached state at
// its last-good value.
func (c *Computed[T]) Get() T {
	reportRead(c.notifier, nil)
	return c.read()
}

// Peek returns the computed value without reporting the read.
func (c *Computed[T]) Peek() T {
	return c.read()
}

// AddListener subscribes a listener. The first listener activates the
// computed.
func (c *Computed[T]) AddListener(l Listener) {
	c.notifier.AddListener(l)
}

// RemoveListener unsubscribes a listener. Removing the last one deactivates
// the computed.
func (c *Computed[T]) RemoveListener(l Listener) {
	c.notifier.RemoveListener(l)
}

// Close disposes the computed: dependency subscriptions are cancelled and
// the notifier is disposed. Idempotent.
func (c *Computed[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	deps := c.deps
	c.deps = nil
	c.mu.Unlock()

	for n := range deps {
		n.RemoveListener(c)
	}
	c.notifier.Dispose()
}

// MarkDirty recomputes immediately in response to a dependency change.
// Implements the Listener interface. No-op while a recompute is already
// underway (reentrancy guard) or when inactive.
func (c *Computed[T]) MarkDirty() {
	c.mu.Lock()
	if c.closed || !c.active || c.recomputing {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.recompute(true)
}

// AddNotifier records a dependency touched during the current evaluation.
// Implements the Observer interface. Self-reads are ignored.
func (c *Computed[T]) AddNotifier(n *Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capturing != nil && n != c.notifier {
		c.capturing[n] = struct{}{}
	}
}

func (c *Computed[T]) activate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.mu.Unlock()

	// Evaluate once to capture the dependency set. No notification: the
	// new listener pulls the value itself.
	c.recompute(false)
}

func (c *Computed[T]) deactivate() {
	c.mu.Lock()
	c.active = false
	// Cache is stale from here on; the next activation evaluates afresh.
	c.everRan = false
	deps := c.deps
	c.deps = nil
	c.mu.Unlock()

	for n := range deps {
		n.RemoveListener(c)
	}
}

func (c *Computed[T]) read() T {
	c.mu.Lock()
	if c.active && c.everRan {
		value := c.value
		c.mu.Unlock()
		return value
	}
	active := c.active
	c.mu.Unlock()

	if active {
		// Activated but not yet evaluated (the activation evaluation
		// panicked). Retry through the tracked path.
		c.recompute(false)
		c.mu.Lock()
		value := c.value
		c.mu.Unlock()
		return value
	}

	// Inactive: every read recomputes fresh with no caching and no
	// subscriptions.
	var value T
	Untracked(func() {
		value = c.compute()
	})
	return value
}

// recompute evaluates with the computed installed as the synchronous
// observer, reconciles the old and new dependency sets, and notifies
// downstream when the value changed (except on the first evaluation, which
// never notifies). A compute panic restores the previous observer and leaves
// value, dependency set, and subscriptions untouched.
func (c *Computed[T]) recompute(notifyChange bool) {
	c.mu.Lock()
	if c.recomputing || c.closed {
		c.mu.Unlock()
		return
	}
	c.recomputing = true
	capture := make(map[*Notifier]struct{})
	c.capturing = capture
	c.mu.Unlock()

	prev := setObserver(c)
	var value T
	func() {
		defer func() {
			setObserver(prev)
			c.mu.Lock()
			c.capturing = nil
			c.recomputing = false
			c.mu.Unlock()
		}()
		value = c.compute()
	}()

	c.mu.Lock()
	first := !c.everRan
	changed := first || !c.equals(c.value, value)
	c.value = value
	c.everRan = true
	oldDeps := c.deps
	c.deps = capture
	c.mu.Unlock()

	// Reconcile: unsubscribe dropped dependencies, subscribe added ones.
	for n := range oldDeps {
		if _, ok := capture[n]; !ok {
			n.RemoveListener(c)
		}
	}
	for n := range capture {
		if _, ok := oldDeps[n]; !ok {
			n.AddListener(c)
		}
	}

	if changed && !first && notifyChange {
		c.notifier.Notify()
	}
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

var (
	_ Listener = (*Computed[int])(nil)
	_ Observer = (*Computed[int])(nil)
)
