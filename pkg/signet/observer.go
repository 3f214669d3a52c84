package signet

// Observer receives dependency reports while it is installed as the current
// observer. The engine calls AddNotifier during every tracked read; the
// observer decides how to subscribe.
//
// Observer is one of the two contracts exposed to external collaborators
// (render boundaries, custom computeds); the other is Value.
type Observer interface {
	// AddNotifier reports that a read touched the given notifier.
	AddNotifier(n *Notifier)
}

// ChannelObserver is an optional extension of Observer for consumers that
// subscribe through a signal's push channel instead of a direct listener.
// When a read touches a signal with a bound push channel, the channel is
// reported here.
type ChannelObserver interface {
	// AddChannel reports the push channel of a read signal. The concrete
	// type is the signal's receive channel (<-chan T).
	AddChannel(ch any)
}

// ReportRead reports a read of the given notifier to the current observation
// context. Resolution order: the synchronous observer if installed, else the
// goroutine's asynchronous observer if async tracking is active, else the
// read is untracked.
//
// Signal and Computed call this on every Get; external reactive values
// implementing the Value contract should do the same.
func ReportRead(n *Notifier) {
	reportRead(n, nil)
}

func reportRead(n *Notifier, ch any) {
	obs := currentObserver()
	if obs == nil {
		return
	}
	obs.AddNotifier(n)
	if ch != nil {
		if co, ok := obs.(ChannelObserver); ok {
			co.AddChannel(ch)
		}
	}
}
