package signet

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state for a goroutine. Each goroutine
// has its own context so concurrent tasks never observe each other's
// tracking state.
type trackingContext struct {
	// observer is the synchronous observer slot. When non-nil, every read
	// reports here. Takes precedence over the async observer.
	observer Observer

	// asyncObserver is the observer bound to the current logical task.
	// Consulted only when asyncDepth > 0 and no synchronous observer is
	// installed, so reads after a suspension point are still captured.
	asyncObserver Observer

	// asyncDepth tracks nested async-tracking scopes.
	asyncDepth int

	// batchDepth tracks nested Batch() calls. When > 0, notifications are
	// deferred into pending instead of firing immediately.
	batchDepth int

	// pending accumulates notifiers touched during a sync batch.
	// Created lazily on first deferred notification.
	pending mapset.Set[*Notifier]

	// asyncPending is the pending set of the enclosing async batch, if any.
	// It is carried across goroutines by Token, unlike pending which is
	// tied to the sync batch depth of this goroutine.
	asyncPending mapset.Set[*Notifier]

	// propagating is true while a propagation cycle is draining.
	propagating bool

	// queue holds notifiers discovered during the current cycle.
	// Drained index-by-index, never recursively.
	queue []*Notifier

	// cycleSeen guarantees a single visit per notifier per flush.
	cycleSeen map[*Notifier]struct{}

	// bypass disables the middleware chain for trusted internal writes
	// (undo/redo restores) to prevent feedback loops.
	bypass bool
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getTrackingContext returns the tracking context for the current goroutine,
// creating one if needed.
func getTrackingContext() *trackingContext {
	gid := goid.Get()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// currentObserver resolves the observer for the current read.
// The synchronous slot wins over the task-bound async observer.
func currentObserver() Observer {
	ctx := getTrackingContext()
	if ctx.observer != nil {
		return ctx.observer
	}
	if ctx.asyncDepth > 0 {
		return ctx.asyncObserver
	}
	return nil
}

// setObserver installs o as the synchronous observer and returns the
// previous one so the caller can restore it.
func setObserver(o Observer) Observer {
	ctx := getTrackingContext()
	old := ctx.observer
	ctx.observer = o
	return old
}

// WithObserver runs fn with o installed as the synchronous observer.
// Every tracked read inside fn reports to o. The previous observer is
// restored afterwards, including on panic.
func WithObserver(o Observer, fn func()) {
	old := setObserver(o)
	defer setObserver(old)
	fn()
}

// WithAsyncObserver runs fn with o installed as the asynchronous observer of
// the current task. Unlike WithObserver, the binding survives suspension:
// goroutines entered through Go or Resume during fn keep reporting to o as
// long as no synchronous observer shadows it.
func WithAsyncObserver(o Observer, fn func()) {
	ctx := getTrackingContext()
	prevObs, prevDepth := ctx.asyncObserver, ctx.asyncDepth
	ctx.asyncObserver = o
	ctx.asyncDepth = prevDepth + 1
	defer func() {
		ctx.asyncObserver, ctx.asyncDepth = prevObs, prevDepth
	}()
	fn()
}

// Untracked runs fn with all dependency tracking suppressed. Reads inside fn
// report to no observer, synchronous or asynchronous.
//
// For single signal reads, signal.Peek() is more efficient and clearer.
func Untracked(fn func()) {
	ctx := getTrackingContext()
	prevObs, prevDepth := ctx.observer, ctx.asyncDepth
	ctx.observer, ctx.asyncDepth = nil, 0
	defer func() {
		ctx.observer, ctx.asyncDepth = prevObs, prevDepth
	}()
	fn()
}

// Token is a snapshot of the current task's asynchronous tracking state: the
// async observer, its depth, and the async batch pending set. A plain ambient
// global would leak across interleaved tasks, so the state is carried
// explicitly: capture a Token before handing work to another goroutine and
// restore it there with Resume.
type Token struct {
	observer Observer
	depth    int
	pending  mapset.Set[*Notifier]
}

// CaptureToken snapshots the asynchronous tracking state of the current
// goroutine.
func CaptureToken() Token {
	ctx := getTrackingContext()
	return Token{
		observer: ctx.asyncObserver,
		depth:    ctx.asyncDepth,
		pending:  ctx.asyncPending,
	}
}

// Resume installs tok on the current goroutine for the duration of fn and
// restores the previous state afterwards. This is the explicit restoration
// step a task-scheduling wrapper performs at every resumption point.
func Resume(tok Token, fn func()) {
	ctx := getTrackingContext()
	prev := Token{
		observer: ctx.asyncObserver,
		depth:    ctx.asyncDepth,
		pending:  ctx.asyncPending,
	}
	ctx.asyncObserver, ctx.asyncDepth, ctx.asyncPending = tok.observer, tok.depth, tok.pending
	defer func() {
		ctx.asyncObserver, ctx.asyncDepth, ctx.asyncPending = prev.observer, prev.depth, prev.pending
	}()
	fn()
}

// Go spawns fn on a new goroutine carrying the current tracking token, so
// async dependency tracking and async batch membership survive the hop.
//
// Example:
//
//	signet.Go(func() {
//	    // Reads here still report to the enclosing async observer,
//	    // writes still join the enclosing async batch.
//	    total.Set(expensive())
//	})
func Go(fn func()) {
	tok := CaptureToken()
	go Resume(tok, fn)
}

// Bypass runs fn with the middleware chain disabled on the current task.
// Trusted internal code (undo/redo restore) uses this to mutate signals
// without re-entering middleware.
func Bypass(fn func()) {
	ctx := getTrackingContext()
	prev := ctx.bypass
	ctx.bypass = true
	defer func() { ctx.bypass = prev }()
	fn()
}

// bypassed reports whether the middleware chain is bypassed on this task.
func bypassed() bool {
	return getTrackingContext().bypass
}
