// Package history provides undo/redo over signal writes.
//
// A History installs itself as middleware on the write chain and records
// every committed StateChange. Single writes become single entries; all
// writes inside one sync batch become a composite entry that is undone and
// redone atomically. Restores go through the trusted write path with the
// middleware chain bypassed, so undoing never re-records.
package history

import (
	"sync"

	"github.com/signet-dev/signet/pkg/signet"
)

// DefaultLimit is the default number of retained entries.
const DefaultLimit = 100

// entry is one undoable unit: a single write, or every write of one batch.
type entry struct {
	changes []*signet.StateChange
}

// History records committed writes and replays them backwards and forwards.
type History struct {
	mu    sync.Mutex
	undo  []*entry
	redo  []*entry
	open  *entry // composite being recorded while a sync batch is open
	limit int

	remove func()
}

// Option configures a History.
type Option func(*History)

// WithLimit caps the number of retained undo entries; the oldest entry is
// evicted when the cap is exceeded.
func WithLimit(n int) Option {
	return func(h *History) { h.limit = n }
}

// New creates a History and installs its middleware on the chain.
// Call Close to uninstall it.
func New(opts ...Option) *History {
	h := &History{limit: DefaultLimit}
	for _, opt := range opts {
		opt(h)
	}

	h.remove = signet.Use(signet.Middleware{
		Name:       "history",
		After:      h.record,
		BatchStart: h.openComposite,
		BatchEnd:   h.closeComposite,
	})

	return h
}

// Close uninstalls the middleware and clears both stacks.
func (h *History) Close() {
	if h.remove != nil {
		h.remove()
		h.remove = nil
	}
	h.Clear()
}

// record captures one committed write. A fresh tracked write invalidates the
// redo stack.
func (h *History) record(c *signet.StateChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.redo = nil

	if h.open != nil {
		h.open.changes = append(h.open.changes, c)
		return
	}
	h.push(&entry{changes: []*signet.StateChange{c}})
}

func (h *History) openComposite() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = &entry{}
}

func (h *History) closeComposite() {
	h.mu.Lock()
	defer h.mu.Unlock()

	open := h.open
	h.open = nil
	if open == nil || len(open.changes) == 0 {
		return
	}
	h.push(open)
}

// push appends to the undo stack, evicting the oldest entry past the limit.
// Caller holds h.mu.
func (h *History) push(e *entry) {
	h.undo = append(h.undo, e)
	if h.limit > 0 && len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
}

// CanUndo reports whether an entry is available to undo.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether an entry is available to redo.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Len returns the number of undoable entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = nil
	h.redo = nil
	h.open = nil
}

// Undo reverts the most recent entry, restoring old values in reverse write
// order inside one batch with middleware bypassed. Returns false when there
// is nothing to undo.
func (h *History) Undo() bool {
	h.mu.Lock()
	if len(h.undo) == 0 {
		h.mu.Unlock()
		return false
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
	h.mu.Unlock()

	signet.Bypass(func() {
		signet.Batch(func() {
			for i := len(e.changes) - 1; i >= 0; i-- {
				c := e.changes[i]
				c.Restore(c.Old)
			}
		})
	})
	return true
}

// Redo re-applies the most recently undone entry, restoring new values in
// original write order. Returns false when there is nothing to redo.
func (h *History) Redo() bool {
	h.mu.Lock()
	if len(h.redo) == 0 {
		h.mu.Unlock()
		return false
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, e)
	h.mu.Unlock()

	signet.Bypass(func() {
		signet.Batch(func() {
			for _, c := range e.changes {
				c.Restore(c.New)
			}
		})
	})
	return true
}
