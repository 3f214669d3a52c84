package signet

import (
	"testing"
)

func TestSignalBasic(t *testing.T) {
	s := NewSignal(42)

	if got := s.Get(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	s.Set(100)
	if got := s.Get(); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestSignalNotifiesOnChange(t *testing.T) {
	s := NewSignal(1)
	l := newTestListener()
	s.AddListener(l)

	s.Set(2)

	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", l.getDirtyCount())
	}
}

func TestSignalEqualValueIsNoOp(t *testing.T) {
	s := NewSignal(1)
	l := newTestListener()
	s.AddListener(l)

	s.Set(1)

	if l.getDirtyCount() != 0 {
		t.Errorf("equal-value write notified %d times, want 0", l.getDirtyCount())
	}
}

func TestSignalCustomEquals(t *testing.T) {
	// Equality on absolute value: -3 and 3 are "equal".
	s := NewSignal(3).WithEquals(func(a, b int) bool {
		if a < 0 {
			a = -a
		}
		if b < 0 {
			b = -b
		}
		return a == b
	})
	l := newTestListener()
	s.AddListener(l)

	s.Set(-3)
	if l.getDirtyCount() != 0 {
		t.Errorf("custom-equal write notified %d times, want 0", l.getDirtyCount())
	}
	if got := s.Peek(); got != 3 {
		t.Errorf("vetoed-by-equality write mutated value to %d", got)
	}

	s.Set(4)
	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", l.getDirtyCount())
	}
}

func TestSignalUpdate(t *testing.T) {
	s := NewSignal(10)
	s.Update(func(n int) int { return n * 2 })

	if got := s.Get(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestSignalMutate(t *testing.T) {
	s := NewSignal([]int{1, 2})
	l := newTestListener()
	s.AddListener(l)

	s.Mutate(func(v *[]int) {
		*v = append(*v, 3)
	})

	if got := s.Peek(); len(got) != 3 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}
	if l.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification from Mutate, got %d", l.getDirtyCount())
	}
}

func TestSignalRefresh(t *testing.T) {
	s := NewSignal(5)
	l := newTestListener()
	s.AddListener(l)

	s.Refresh()

	if l.getDirtyCount() != 1 {
		t.Errorf("Refresh notified %d times, want 1", l.getDirtyCount())
	}
	if got := s.Peek(); got != 5 {
		t.Errorf("Refresh changed the value to %d", got)
	}
}

func TestSignalPeekDoesNotTrack(t *testing.T) {
	s := NewSignal(1)
	obs := &testObserver{}

	WithObserver(obs, func() {
		_ = s.Peek()
	})

	if obs.count() != 0 {
		t.Errorf("Peek reported %d notifiers, want 0", obs.count())
	}
}

func TestSignalCloseIsSafe(t *testing.T) {
	s := NewSignal(1)
	l := newTestListener()
	s.AddListener(l)

	s.Close()
	s.Close() // idempotent

	s.Set(2)
	s.Update(func(n int) int { return n + 1 })
	s.Mutate(func(n *int) { *n = 99 })
	s.Refresh()

	if got := s.Peek(); got != 1 {
		t.Errorf("closed signal mutated to %d", got)
	}
	if l.getDirtyCount() != 0 {
		t.Errorf("closed signal notified %d times, want 0", l.getDirtyCount())
	}
}

func TestSignalWithChannel(t *testing.T) {
	s := NewSignal(0).WithChannel(2)

	s.Set(1)
	s.Set(2)
	s.Set(3) // buffer full, dropped

	if got := <-s.Channel(); got != 1 {
		t.Errorf("expected 1 from channel, got %d", got)
	}
	if got := <-s.Channel(); got != 2 {
		t.Errorf("expected 2 from channel, got %d", got)
	}

	select {
	case v := <-s.Channel():
		t.Errorf("expected overfull push to be dropped, got %d", v)
	default:
	}

	s.Close()
	if _, ok := <-s.Channel(); ok {
		t.Error("expected owned channel to be closed on Close")
	}
}

func TestSignalBindChannel(t *testing.T) {
	ch := make(chan string, 1)
	s := NewSignal("a").BindChannel(ch)

	s.Set("b")
	if got := <-ch; got != "b" {
		t.Errorf("expected %q on bound channel, got %q", "b", got)
	}

	// Bound channels stay open after Close.
	s.Close()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Error("bound channel was closed by the signal")
		}
	default:
	}
}

func TestSignalName(t *testing.T) {
	s := NewSignal(0).WithName("counter")
	if s.Name() != "counter" {
		t.Errorf("expected name %q, got %q", "counter", s.Name())
	}

	anon := NewSignal(0)
	if anon.Name() == "" {
		t.Error("expected a generated name for unnamed signal")
	}
}

func TestIntSignal(t *testing.T) {
	s := NewIntSignal(10)
	s.Inc()
	s.Inc()
	s.Dec()
	s.Add(5)

	if got := s.Get(); got != 16 {
		t.Errorf("expected 16, got %d", got)
	}
}

func TestBoolSignal(t *testing.T) {
	s := NewBoolSignal(false)

	s.Toggle()
	if !s.Get() {
		t.Error("expected true after Toggle")
	}

	s.SetFalse()
	if s.Get() {
		t.Error("expected false after SetFalse")
	}

	s.SetTrue()
	if !s.Get() {
		t.Error("expected true after SetTrue")
	}
}
