package signet

import mapset "github.com/deckarep/golang-set/v2"

// Batch groups multiple signal writes into a single notification phase.
// Notifiers touched within the batch are collected into a deduplicating set
// and flushed once when the outermost batch closes, so each affected listener
// is notified at most once and observes only the final values.
//
// Batches can be nested; only the outermost close flushes. Middleware
// batch-start and batch-end hooks fire on the 0<->1 depth transitions.
//
// A Batch opened while an async batch is bound to the current task is
// absorbed into the async set: the enclosing transaction flushes everything.
//
// Example:
//
//	Batch(func() {
//	    firstName.Set("John")
//	    lastName.Set("Doe")
//	    age.Set(30)
//	})
//	// Each listener runs once with all three changes applied
func Batch(fn func()) {
	ctx := getTrackingContext()
	if ctx.asyncPending != nil {
		// Absorbed into the enclosing async transaction.
		fn()
		return
	}

	ctx.batchDepth++
	if ctx.batchDepth == 1 {
		chainBatchStart()
	}
	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth == 0 {
			chainBatchEnd()
			flushPending(ctx)
		}
	}()

	fn()
}

// flushPending drains the sync batch's pending set. The set is detached
// before draining so reentrant additions during the drain land in a fresh
// set instead of corrupting the iteration.
func flushPending(ctx *trackingContext) {
	pending := ctx.pending
	ctx.pending = nil
	if pending == nil {
		return
	}
	for _, n := range pending.ToSlice() {
		notify(n)
	}
}

// AsyncBatch runs fn as an asynchronous transaction. A fresh deduplicating
// pending set is bound to the current task for the whole body, including
// across suspension: goroutines entered through Go or Resume keep adding to
// the same set. The set is flushed exactly once when fn returns, whether it
// completes normally or panics.
//
// The binding is independent of the sync batch depth; writes inside fn
// produce no notifications until the transaction completes.
func AsyncBatch(fn func()) {
	ctx := getTrackingContext()
	prev := ctx.asyncPending
	set := mapset.NewSet[*Notifier]()
	ctx.asyncPending = set

	defer func() {
		ctx.asyncPending = prev
		for _, n := range set.ToSlice() {
			notify(n)
		}
	}()

	fn()
}
