package bipe

import "sync/atomic"

// event is a readiness signal. A waiter calls listen to register interest,
// re-checks its condition, and only then blocks on the returned channel.
// notify closes the channel handed out since the previous notify, so a
// notification issued after listen can never be missed.
//
// Abandoning a listen is harmless: the channel stays installed until the
// next notify and is shared with whoever listens next.
type event struct {
	ch atomic.Pointer[chan struct{}]
}

func (e *event) listen() <-chan struct{} {
	for {
		if p := e.ch.Load(); p != nil {
			return *p
		}
		ch := make(chan struct{})
		if e.ch.CompareAndSwap(nil, &ch) {
			return ch
		}
	}
}

func (e *event) notify() {
	if e.ch.Load() == nil {
		return
	}
	if p := e.ch.Swap(nil); p != nil {
		close(*p)
	}
}
