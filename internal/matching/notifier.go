package matching

import (
	tomb "gopkg.in/tomb.v2"
)

// notificationQueueSize bounds how far notification delivery can lag
// behind matching before Enqueue starts blocking the caller. Generous
// because a slow subscriber should feel it before the hot path does.
const notificationQueueSize = 4096

// notifier is a single tomb-supervised goroutine that drains a queue of
// closures in order, one at a time: a tomb.Tomb supervises the
// goroutine so Stop can Kill it and Wait for it to exit.
//
// Matching never calls into a subscriber directly; Submit builds the
// event and hands a closure to Enqueue, so no suspension ever occurs
// between validating an order and completing its match.
type notifier struct {
	t  tomb.Tomb
	ch chan func()
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan func(), notificationQueueSize)}
}

// Start begins draining the queue. Safe to call once per notifier
// lifetime; Stop followed by Start again is not supported.
func (n *notifier) Start() {
	n.t.Go(n.run)
}

func (n *notifier) run() error {
	for {
		select {
		case <-n.t.Dying():
			return nil
		case fn := <-n.ch:
			fn()
		}
	}
}

// Stop kills the dispatch goroutine and waits for it to exit. Events
// already queued but not yet dispatched are dropped.
func (n *notifier) Stop() {
	n.t.Kill(nil)
	_ = n.t.Wait()
}

// Enqueue schedules fn to run on the dispatch goroutine, preserving
// submission order (the channel is FIFO). If the notifier has been
// stopped, Enqueue is a no-op rather than a panic or a block.
func (n *notifier) Enqueue(fn func()) {
	select {
	case n.ch <- fn:
	case <-n.t.Dying():
	}
}
