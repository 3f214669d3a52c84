package signet

import mapset "github.com/deckarep/golang-set/v2"

// notify routes a change announcement through the propagation engine.
//
// Decision order:
//  1. An async batch is bound to the current task: add to its set (deferred).
//  2. A sync batch is open: add to the pending set (deferred).
//  3. A propagation cycle is already running (reentrant call): append to the
//     cycle's queue, which bounds recursion depth.
//  4. Otherwise start a new cycle.
//
// Rule 1 wins over rule 2: a notifier joins whichever tracking set is active
// at call time, so a sync batch opened inside an async batch is absorbed into
// the async set.
func notify(n *Notifier) {
	if n == nil || n.disposed.Load() {
		return
	}

	ctx := getTrackingContext()
	switch {
	case ctx.asyncPending != nil:
		ctx.asyncPending.Add(n)

	case ctx.batchDepth > 0:
		if ctx.pending == nil {
			ctx.pending = mapset.NewSet[*Notifier]()
		}
		ctx.pending.Add(n)

	case ctx.propagating:
		if _, seen := ctx.cycleSeen[n]; !seen {
			ctx.cycleSeen[n] = struct{}{}
			ctx.queue = append(ctx.queue, n)
		}

	default:
		runCycle(ctx, n)
	}
}

// runCycle executes one propagation cycle: the triggering notifier's direct
// listeners run first, then the queue is drained index-by-index. Entries
// discovered while draining are processed within the same cycle, never
// recursively, and each notifier is visited at most once per cycle.
//
// Ordering is breadth-first, not topological: a sibling listener may
// transiently observe a stale computed before that computed's own update is
// processed. Each individual read is still consistent.
//
// A listener panic aborts the remainder of the queue; the in-progress flag
// and queue are reset in the cleanup path regardless.
func runCycle(ctx *trackingContext, n *Notifier) {
	ctx.propagating = true
	ctx.cycleSeen = map[*Notifier]struct{}{n: {}}
	defer func() {
		ctx.propagating = false
		ctx.queue = nil
		ctx.cycleSeen = nil
	}()

	n.invoke()
	for i := 0; i < len(ctx.queue); i++ {
		ctx.queue[i].invoke()
	}
}
