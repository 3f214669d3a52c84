package signet

import (
	"testing"
)

func TestComputedBasic(t *testing.T) {
	a := NewSignal(3)
	double := NewComputed(func() int { return a.Get() * 2 })

	if got := double.Get(); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}

	a.Set(5)
	if got := double.Get(); got != 10 {
		t.Errorf("expected 10 after dependency write, got %d", got)
	}
}

func TestComputedInactiveRecomputesFresh(t *testing.T) {
	a := NewSignal(1)
	runs := 0
	c := NewComputed(func() int {
		runs++
		return a.Get()
	})

	_ = c.Get()
	_ = c.Get()

	if runs != 2 {
		t.Errorf("inactive computed cached: %d runs for 2 reads, want 2", runs)
	}
}

func TestComputedActiveCaches(t *testing.T) {
	a := NewSignal(1)
	runs := 0
	c := NewComputed(func() int {
		runs++
		return a.Get()
	})

	l := newTestListener()
	c.AddListener(l) // activates: one evaluation
	_ = c.Get()
	_ = c.Get()

	if runs != 1 {
		t.Errorf("active computed re-ran on cached reads: %d runs, want 1", runs)
	}

	a.Set(2) // eager recompute
	if runs != 2 {
		t.Errorf("expected eager recompute on dependency write, got %d runs", runs)
	}
	if got := c.Get(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestComputedNotifiesDownstream(t *testing.T) {
	a := NewSignal(1)
	c := NewComputed(func() int { return a.Get() * 10 })
	l := newTestListener()
	c.AddListener(l)

	// Activation evaluation never notifies.
	if l.getDirtyCount() != 0 {
		t.Fatalf("activation notified %d times, want 0", l.getDirtyCount())
	}

	a.Set(2)
	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 downstream notification, got %d", l.getDirtyCount())
	}
}

func TestComputedEqualResultDoesNotCascade(t *testing.T) {
	a := NewSignal(1)
	parity := NewComputed(func() int { return a.Get() % 2 })
	l := newTestListener()
	parity.AddListener(l)

	a.Set(3) // parity unchanged: 1 -> 1
	if l.getDirtyCount() != 0 {
		t.Errorf("equal recompute cascaded %d times, want 0", l.getDirtyCount())
	}

	a.Set(4) // parity changes: 1 -> 0
	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", l.getDirtyCount())
	}
}

func TestComputedDependencyReconciliation(t *testing.T) {
	useA := NewSignal(true)
	a := NewSignal(1)
	b := NewSignal(100)
	runs := 0
	c := NewComputed(func() int {
		runs++
		if useA.Get() {
			return a.Get()
		}
		return b.Get()
	})
	c.AddListener(newTestListener())
	runs = 0

	// b is not a dependency yet: writing it must not recompute.
	b.Set(200)
	if runs != 0 {
		t.Errorf("write to untouched branch recomputed %d times, want 0", runs)
	}

	useA.Set(false) // switch branches
	runs = 0

	// a was dropped from the dependency set.
	a.Set(2)
	if runs != 0 {
		t.Errorf("write to dropped dependency recomputed %d times, want 0", runs)
	}

	// b is now live.
	b.Set(300)
	if runs != 1 {
		t.Errorf("write to live dependency recomputed %d times, want 1", runs)
	}
	if got := c.Get(); got != 300 {
		t.Errorf("expected 300, got %d", got)
	}
}

func TestComputedDeactivation(t *testing.T) {
	a := NewSignal(1)
	runs := 0
	c := NewComputed(func() int {
		runs++
		return a.Get()
	})

	l := newTestListener()
	c.AddListener(l)
	c.RemoveListener(l)
	runs = 0

	// Unsubscribed from a: the write must not reach the computed.
	a.Set(2)
	if runs != 0 {
		t.Errorf("deactivated computed recomputed %d times, want 0", runs)
	}

	// Reads fall back to fresh evaluation.
	if got := c.Get(); got != 2 {
		t.Errorf("expected fresh value 2, got %d", got)
	}
}

func TestComputedChain(t *testing.T) {
	a := NewSignal(1)
	b := NewComputed(func() int { return a.Get() * 2 })
	c := NewComputed(func() int { return b.Get() + 1 })
	l := newTestListener()
	c.AddListener(l)

	a.Set(3)

	if got := c.Get(); got != 7 {
		t.Errorf("expected 7 through the chain, got %d", got)
	}
	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification at chain end, got %d", l.getDirtyCount())
	}
}

func TestComputedDiamond(t *testing.T) {
	a := NewSignal(1)
	left := NewComputed(func() int { return a.Get() * 2 })
	right := NewComputed(func() int { return a.Get() + 10 })
	sum := NewComputed(func() int { return left.Get() + right.Get() })
	sum.AddListener(newTestListener())

	a.Set(2)

	if got := sum.Get(); got != 16 {
		t.Errorf("expected 16 at diamond bottom, got %d", got)
	}
}

func TestComputedSelfReadIgnored(t *testing.T) {
	a := NewSignal(1)
	var c *Computed[int]
	c = NewComputed(func() int {
		v := a.Get()
		if v > 1 {
			// Self-read must not register the computed as its own
			// dependency.
			return c.Peek() + v
		}
		return v
	})
	c.AddListener(newTestListener())

	a.Set(2)

	if got := c.Get(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestComputedPanicKeepsLastGoodValue(t *testing.T) {
	a := NewSignal(1)
	c := NewComputed(func() int {
		v := a.Get()
		if v == 13 {
			panic("unlucky")
		}
		return v
	})
	c.AddListener(newTestListener())

	func() {
		defer func() { recover() }()
		a.Set(13)
	}()

	if got := c.Peek(); got != 1 {
		t.Errorf("panicking recompute corrupted cache: got %d, want 1", got)
	}

	// Recovers once the dependency goes back to a good value.
	a.Set(2)
	if got := c.Get(); got != 2 {
		t.Errorf("expected 2 after recovery, got %d", got)
	}
}

func TestComputedClose(t *testing.T) {
	a := NewSignal(1)
	runs := 0
	c := NewComputed(func() int {
		runs++
		return a.Get()
	})
	c.AddListener(newTestListener())

	c.Close()
	c.Close() // idempotent
	runs = 0

	a.Set(2)
	if runs != 0 {
		t.Errorf("closed computed recomputed %d times, want 0", runs)
	}
}

func TestComputedTrackedAsDependency(t *testing.T) {
	a := NewSignal(1)
	c := NewComputed(func() int { return a.Get() })
	obs := &testObserver{}

	WithObserver(obs, func() {
		_ = c.Get()
	})

	if obs.count() != 1 {
		t.Fatalf("computed read reported %d notifiers, want 1", obs.count())
	}
	if obs.notifiers[0] != c.Notifier() {
		t.Errorf("reported notifier is not the computed's notifier")
	}
}
