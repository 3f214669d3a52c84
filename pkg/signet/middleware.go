package signet

import (
	"sync"
	"sync/atomic"
	"time"
)

// StateChange describes one signal write as it threads through the middleware
// chain. Before hooks see it prior to mutation and may veto or stop
// propagation; after hooks see it once the value is committed.
type StateChange struct {
	// Timestamp is when the write was issued.
	Timestamp time.Time

	// Name identifies the signal being written.
	Name string

	// Old and New are the value before and after the write.
	Old any
	New any

	// Type is the Go type name of the value.
	Type string

	// Stack is the call stack of the write. Populated only when stack
	// capture is enabled via SetCaptureStacks.
	Stack []byte

	// restore re-applies a value through the signal's trusted write path,
	// skipping the middleware chain. Used by undo/redo.
	restore func(value any)

	stopped bool
}

// StopPropagation halts the remaining hooks in the current phase. When called
// from a before hook the mutation still proceeds using whichever hooks
// already ran, and the after phase is skipped entirely. When called from an
// after hook the remaining after hooks are skipped.
func (c *StateChange) StopPropagation() {
	c.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (c *StateChange) Stopped() bool {
	return c.stopped
}

// Restore writes value back to the originating signal without re-entering
// the middleware chain. Listeners are still notified. The value must have
// the signal's value type.
func (c *StateChange) Restore(value any) {
	if c.restore != nil {
		c.restore(value)
	}
}

// Middleware intercepts signal writes. All fields are optional.
type Middleware struct {
	// Name identifies the middleware in diagnostics.
	Name string

	// Filter, when set, limits the middleware to changes it returns true
	// for. Batch hooks are not filtered; they carry no change record.
	Filter func(*StateChange) bool

	// Before runs prior to mutation. Returning false vetoes the entire
	// write: no mutation, no notification.
	Before func(*StateChange) bool

	// After runs once the value is committed and listeners notified,
	// unless propagation was stopped during the before phase.
	After func(*StateChange)

	// BatchStart and BatchEnd fire on sync batch depth transitions 0->1
	// and 1->0, independent of individual writes.
	BatchStart func()
	BatchEnd   func()
}

type installedMiddleware struct {
	id uint64
	mw Middleware
}

var (
	chainMu sync.RWMutex
	chain   []installedMiddleware

	captureStacks atomic.Bool
)

// Use appends mw to the process-wide middleware chain and returns a function
// that removes it again. Middleware run in installation order.
func Use(mw Middleware) (remove func()) {
	id := nextID()

	chainMu.Lock()
	chain = append(chain, installedMiddleware{id: id, mw: mw})
	chainMu.Unlock()

	return func() {
		chainMu.Lock()
		defer chainMu.Unlock()
		for i, entry := range chain {
			if entry.id == id {
				chain = append(chain[:i], chain[i+1:]...)
				return
			}
		}
	}
}

// SetCaptureStacks enables or disables call-stack capture on StateChange
// records. Off by default; stack capture is expensive and intended for
// debugging and devtools sessions.
func SetCaptureStacks(enabled bool) {
	captureStacks.Store(enabled)
}

func chainSnapshot() []installedMiddleware {
	chainMu.RLock()
	defer chainMu.RUnlock()
	if len(chain) == 0 {
		return nil
	}
	snapshot := make([]installedMiddleware, len(chain))
	copy(snapshot, chain)
	return snapshot
}

func chainEmpty() bool {
	chainMu.RLock()
	defer chainMu.RUnlock()
	return len(chain) == 0
}

// chainBefore threads c through every applicable before hook in order.
// Returns false when any hook vetoes the write.
func chainBefore(c *StateChange) bool {
	for _, entry := range chainSnapshot() {
		if entry.mw.Filter != nil && !entry.mw.Filter(c) {
			continue
		}
		if entry.mw.Before != nil && !entry.mw.Before(c) {
			return false
		}
		if c.stopped {
			break
		}
	}
	return true
}

// chainAfter runs the after phase. Skipped entirely when propagation was
// stopped during the before phase; a stop during an after hook halts the
// remaining after hooks.
func chainAfter(c *StateChange) {
	if c.stopped {
		return
	}
	for _, entry := range chainSnapshot() {
		if entry.mw.Filter != nil && !entry.mw.Filter(c) {
			continue
		}
		if entry.mw.After != nil {
			entry.mw.After(c)
		}
		if c.stopped {
			break
		}
	}
}

func chainBatchStart() {
	for _, entry := range chainSnapshot() {
		if entry.mw.BatchStart != nil {
			entry.mw.BatchStart()
		}
	}
}

func chainBatchEnd() {
	for _, entry := range chainSnapshot() {
		if entry.mw.BatchEnd != nil {
			entry.mw.BatchEnd()
		}
	}
}
