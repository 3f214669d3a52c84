package future

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/signet-dev/signet/pkg/signet"
)

// AsyncComputed is a derived reactive value over an asynchronous computation.
//
// Like Computed it is lazily active: the first listener activates it, which
// launches the computation with a live dependency tracker installed as the
// task's asynchronous observer for the body's whole duration — goroutines
// entered through signet.Go or signet.Resume keep reporting to it, so reads
// after a suspension point are still captured. Any tracked dependency change
// relaunches the body under a fresh generation id; a completion whose
// generation no longer matches is discarded. There is no hard interruption:
// the context handed to the body is cancelled when a launch is superseded,
// but result discarding is what guarantees last-writer-wins.
//
// Reads return a Status[T] and are tracked like any other reactive read, so
// an AsyncComputed composes with Computed, Watch, and batches.
type AsyncComputed[T any] struct {
	id       uint64
	name     string
	compute  func(ctx context.Context) (T, error)
	notifier *signet.Notifier

	// equal compares success values; unchanged results do not cascade.
	equal func(T, T) bool

	// generation invalidates in-flight work. Bumped on every launch,
	// on deactivation, and on close.
	generation atomic.Uint64

	// showWaiting flips the status to Waiting on every relaunch instead of
	// only while no value is known (stale-while-revalidate default).
	showWaiting bool

	// mu guards the fields below.
	mu     sync.Mutex
	status Status[T]
	deps   map[*signet.Notifier]struct{}
	cancel context.CancelFunc
	active bool
	closed bool

	// done resolves on the first terminal status (Success or Error).
	done     chan struct{}
	doneOnce sync.Once
}

// New creates an AsyncComputed over compute. The computation does not launch
// until the first listener activates the value (or Refresh is called).
// The initial status is Waiting.
func New[T any](compute func(ctx context.Context) (T, error)) *AsyncComputed[T] {
	ac := &AsyncComputed[T]{
		id:      nextFutureID(),
		compute: compute,
		status:  NewWaiting[T](),
		deps:    make(map[*signet.Notifier]struct{}),
		done:    make(chan struct{}),
	}
	ac.name = fmt.Sprintf("future-%d", ac.id)
	ac.notifier = signet.NewNotifier(
		signet.OnActivate(ac.activate),
		signet.OnDeactivate(ac.deactivate),
	)
	return ac
}

var futureIDCounter uint64

func nextFutureID() uint64 {
	return atomic.AddUint64(&futureIDCounter, 1)
}

// WithName sets the value's name for diagnostics. Returns the value for
// chaining.
func (ac *AsyncComputed[T]) WithName(name string) *AsyncComputed[T] {
	ac.name = name
	return ac
}

// WithInitial seeds the value with an initial Success, so consumers see data
// immediately while the first computation runs.
// Returns the value for chaining.
func (ac *AsyncComputed[T]) WithInitial(value T) *AsyncComputed[T] {
	ac.mu.Lock()
	ac.status = NewSuccess(value)
	ac.mu.Unlock()
	return ac
}

// WithEquals configures the equality function for success values.
// Returns the value for chaining.
func (ac *AsyncComputed[T]) WithEquals(fn func(T, T) bool) *AsyncComputed[T] {
	ac.equal = fn
	return ac
}

// ShowWaiting makes every relaunch flip the status to Waiting, instead of
// keeping the last Success visible while recomputing.
// Returns the value for chaining.
func (ac *AsyncComputed[T]) ShowWaiting() *AsyncComputed[T] {
	ac.showWaiting = true
	return ac
}

// Name returns the value's name.
func (ac *AsyncComputed[T]) Name() string {
	return ac.name
}

// ID returns the unique identifier for this value.
// Implements the signet.Listener interface.
func (ac *AsyncComputed[T]) ID() uint64 {
	return ac.id
}

// Notifier exposes the value's notifier for observers that subscribe
// directly.
func (ac *AsyncComputed[T]) Notifier() *signet.Notifier {
	return ac.notifier
}

// Get returns the current status and reports the read to the observation
// context. Computation failures surface here as an Error status; they are
// never thrown to a reader.
func (ac *AsyncComputed[T]) Get() Status[T] {
	signet.ReportRead(ac.notifier)
	return ac.Peek()
}

// Peek returns the current status without reporting the read.
func (ac *AsyncComputed[T]) Peek() Status[T] {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.status
}

// AddListener subscribes a listener. The first listener activates the value
// and launches the computation.
func (ac *AsyncComputed[T]) AddListener(l signet.Listener) {
	ac.notifier.AddListener(l)
}

// RemoveListener unsubscribes a listener. Removing the last one deactivates
// the value, invalidating any in-flight work.
func (ac *AsyncComputed[T]) RemoveListener(l signet.Listener) {
	ac.notifier.RemoveListener(l)
}

// Refresh forces a relaunch with a fresh generation. Safe to call whether or
// not the value is active; on a closed value it is a no-op.
func (ac *AsyncComputed[T]) Refresh() {
	ac.launch()
}

// SetProgress reports computation progress in [0, 1]. Intended to be called
// from the computation body; applied only while the status is Waiting.
func (ac *AsyncComputed[T]) SetProgress(p float64) {
	ac.mu.Lock()
	if ac.closed || ac.status.kind != Waiting {
		ac.mu.Unlock()
		return
	}
	ac.status.progress = p
	ac.status.hasProgress = true
	ac.mu.Unlock()

	ac.notifier.Notify()
}

// Done returns a channel that is closed on the first terminal status
// (Success or Error), or when the value is closed.
func (ac *AsyncComputed[T]) Done() <-chan struct{} {
	return ac.done
}

// Wait blocks until the first terminal status (Success or Error) or until
// ctx is done, and returns the value or error of that status.
func (ac *AsyncComputed[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ac.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	st := ac.Peek()
	if st.HasError() {
		var zero T
		return st.ValueOr(zero), st.Err()
	}
	v, _ := st.Value()
	return v, nil
}

// Close disposes the value: in-flight work is invalidated, dependency
// subscriptions are cancelled, and the notifier is disposed. Idempotent.
func (ac *AsyncComputed[T]) Close() {
	ac.mu.Lock()
	if ac.closed {
		ac.mu.Unlock()
		return
	}
	ac.closed = true
	ac.generation.Add(1)
	if ac.cancel != nil {
		ac.cancel()
		ac.cancel = nil
	}
	deps := ac.deps
	ac.deps = nil
	ac.mu.Unlock()

	for n := range deps {
		n.RemoveListener(ac)
	}
	ac.notifier.Dispose()
	ac.markDone()
}

// MarkDirty relaunches the computation in response to a tracked dependency
// change. Implements the signet.Listener interface.
func (ac *AsyncComputed[T]) MarkDirty() {
	ac.mu.Lock()
	active := ac.active && !ac.closed
	ac.mu.Unlock()
	if active {
		ac.launch()
	}
}

func (ac *AsyncComputed[T]) activate() {
	ac.mu.Lock()
	if ac.closed {
		ac.mu.Unlock()
		return
	}
	ac.active = true
	ac.mu.Unlock()

	ac.launch()
}

// deactivate bumps the generation so any in-flight result is silently
// dropped, and clears the dependency subscriptions. The status falls back to
// Idle carrying the last-known value.
func (ac *AsyncComputed[T]) deactivate() {
	ac.mu.Lock()
	ac.active = false
	ac.generation.Add(1)
	if ac.cancel != nil {
		ac.cancel()
		ac.cancel = nil
	}
	deps := ac.deps
	ac.deps = make(map[*signet.Notifier]struct{})
	ac.status = idleFrom(ac.status)
	ac.mu.Unlock()

	for n := range deps {
		n.RemoveListener(ac)
	}
}

// launch mints a new generation and runs the computation body on its own
// goroutine with a generation-scoped live tracker installed as the async
// observer.
func (ac *AsyncComputed[T]) launch() {
	ac.mu.Lock()
	if ac.closed {
		ac.mu.Unlock()
		return
	}
	gen := ac.generation.Add(1)
	if ac.cancel != nil {
		ac.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ac.cancel = cancel

	// The live tracker rebuilds the dependency set from scratch.
	deps := ac.deps
	ac.deps = make(map[*signet.Notifier]struct{})

	prev := ac.status
	next := prev
	if ac.showWaiting || !prev.HasValue() {
		next = waitingFrom(prev)
	}
	changed := next.kind != prev.kind
	ac.status = next
	ac.mu.Unlock()

	for n := range deps {
		n.RemoveListener(ac)
	}
	if changed {
		ac.notifier.Notify()
	}

	tracker := &liveTracker[T]{ac: ac, gen: gen}
	go func() {
		var result T
		var err error
		var stack []byte

		func() {
			defer func() {
				if r := recover(); r != nil {
					var ok bool
					if err, ok = r.(error); !ok {
						err = fmt.Errorf("future: compute panic: %v", r)
					}
					stack = debug.Stack()
				}
			}()
			signet.WithAsyncObserver(tracker, func() {
				result, err = ac.compute(ctx)
			})
		}()

		ac.complete(gen, result, err, stack)
	}()
}

// complete applies the result of one launch. Only a completion whose
// generation matches the current generation may mutate status: anything else
// was superseded and is discarded.
func (ac *AsyncComputed[T]) complete(gen uint64, value T, err error, stack []byte) {
	ac.mu.Lock()
	if ac.closed || gen != ac.generation.Load() {
		ac.mu.Unlock()
		return
	}

	prev := ac.status
	var next Status[T]
	var silent bool
	if err != nil {
		next = errorFrom(prev, err, stack)
	} else {
		next = NewSuccess(value)
		// A result equal to the last-known value flips Waiting -> Success
		// without signaling further.
		if known, ok := prev.Value(); ok && ac.equals(known, value) {
			silent = true
		}
	}
	changed := !ac.statusEquals(prev, next)
	ac.status = next
	ac.mu.Unlock()

	ac.markDone()
	if changed && !silent {
		ac.notifier.Notify()
	}
}

func (ac *AsyncComputed[T]) markDone() {
	ac.doneOnce.Do(func() { close(ac.done) })
}

func (ac *AsyncComputed[T]) equals(a, b T) bool {
	if ac.equal != nil {
		return ac.equal(a, b)
	}
	return defaultEquals(a, b)
}

func (ac *AsyncComputed[T]) statusEquals(a, b Status[T]) bool {
	if a.kind != b.kind || a.err != b.err {
		return false
	}
	if a.hasValue != b.hasValue {
		return false
	}
	if a.hasValue && !ac.equals(a.value, b.value) {
		return false
	}
	return true
}

// liveTracker subscribes the owning AsyncComputed to each dependency as it
// is touched during one launch. It is scoped to a generation: reads from a
// superseded body are ignored, so a stale launch can never re-grow the
// dependency set.
type liveTracker[T any] struct {
	ac  *AsyncComputed[T]
	gen uint64
}

// AddNotifier implements the signet.Observer interface.
func (t *liveTracker[T]) AddNotifier(n *signet.Notifier) {
	ac := t.ac
	if t.gen != ac.generation.Load() {
		return
	}

	ac.mu.Lock()
	if ac.closed || !ac.active || t.gen != ac.generation.Load() {
		ac.mu.Unlock()
		return
	}
	if _, ok := ac.deps[n]; ok {
		ac.mu.Unlock()
		return
	}
	ac.deps[n] = struct{}{}
	ac.mu.Unlock()

	n.AddListener(ac)
}

var (
	_ signet.Listener           = (*AsyncComputed[int])(nil)
	_ signet.Observer           = (*liveTracker[int])(nil)
	_ signet.Value[Status[int]] = (*AsyncComputed[int])(nil)
)
