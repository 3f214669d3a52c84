package signet

import "fmt"

// WatchOption configures a Watch subscription.
type WatchOption interface {
	applyWatch(cfg *watchConfig)
}

type watchConfig struct {
	immediate bool
	onError   func(error)
}

type watchOptionFunc func(*watchConfig)

func (f watchOptionFunc) applyWatch(cfg *watchConfig) { f(cfg) }

// WatchImmediate delivers the current value once when the watch is created,
// in addition to deliveries on change.
func WatchImmediate() WatchOption {
	return watchOptionFunc(func(cfg *watchConfig) {
		cfg.immediate = true
	})
}

// WatchOnError converts a panic inside the watch callback into a call to
// handler instead of an unhandled panic, so one misbehaving watcher cannot
// take down the propagation cycle it runs in.
func WatchOnError(handler func(error)) WatchOption {
	return watchOptionFunc(func(cfg *watchConfig) {
		cfg.onError = handler
	})
}

// Watch invokes fn with the value's current state whenever it changes.
// Works uniformly over anything implementing the Value contract.
// The returned stop function removes the subscription; it is idempotent.
//
// Example:
//
//	stop := Watch(count, func(n int) {
//	    fmt.Println("count is now", n)
//	})
//	defer stop()
func Watch[T any](v Value[T], fn func(T), opts ...WatchOption) (stop func()) {
	var cfg watchConfig
	for _, opt := range opts {
		opt.applyWatch(&cfg)
	}

	deliver := func() {
		if cfg.onError != nil {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("signet: watch callback panic: %v", r)
					}
					cfg.onError(err)
				}
			}()
		}
		fn(v.Peek())
	}

	l := ListenerFunc(deliver)
	v.AddListener(l)

	if cfg.immediate {
		deliver()
	}

	return func() {
		v.RemoveListener(l)
	}
}
