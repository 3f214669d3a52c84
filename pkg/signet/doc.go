// Package signet provides a fine-grained reactive state engine.
//
// Dependencies are tracked automatically at runtime. Reading a signal while
// an observer is installed (a computed evaluation, a watch boundary, an async
// computation body) subscribes that observer to the signal's notifier, so no
// manual subscribe calls are needed.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := NewSignal(0)
//	value := count.Get()  // Read (reports to the current observer)
//	count.Set(5)          // Write (notifies listeners)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a derived reactive value:
//
//	doubled := NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()
//
// While a Computed has listeners it stays active: it caches its value,
// subscribes to exactly the dependencies touched by its latest evaluation,
// and recomputes eagerly when any of them change. Without listeners every
// read recomputes fresh.
//
// # Batching
//
// Multiple signal writes can be batched into a single notification phase:
//
//	Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	    c.Set(3)
//	})  // Each affected listener is notified once after all updates
//
// AsyncBatch does the same for a body that suspends: the pending set is bound
// to the task and travels across goroutines entered through Go or Resume.
//
// # Middleware
//
// Every signal write is threaded through a process-wide middleware chain.
// Middleware can observe writes, veto them, or stop propagation to later
// entries. See Use and StateChange.
//
// # Concurrency
//
// The engine assumes one logical thread of control: interleaving happens via
// asynchronous tasks, not parallel mutation. The tracking context is
// per-goroutine; crossing a goroutine boundary requires explicit propagation
// via Go, Resume, or WithAsyncObserver.
package signet
