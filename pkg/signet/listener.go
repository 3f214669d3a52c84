package signet

// Listener is anything that can be notified when a notifier fires.
// This interface is implemented by computeds, async computeds, watch
// boundaries, and anything else that reacts to signal changes.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	// For computeds this triggers a recompute; for watch boundaries it
	// delivers the new value.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication in listener sets and batch processing.
	ID() uint64
}

// funcListener adapts a plain function to the Listener interface.
type funcListener struct {
	id uint64
	fn func()
}

func (l *funcListener) MarkDirty() { l.fn() }
func (l *funcListener) ID() uint64 { return l.id }

// ListenerFunc wraps a function as a Listener with a fresh unique ID.
// Each call returns a distinct listener, so the result must be retained
// if it is to be removed later.
func ListenerFunc(fn func()) Listener {
	return &funcListener{id: nextID(), fn: fn}
}
