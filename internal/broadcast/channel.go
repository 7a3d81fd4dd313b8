// Package broadcast implements an in-memory publish/subscribe channel where every
// subscriber owns an independent bounded queue.
//
// Publishing never blocks. When a subscriber's queue is full the oldest queued
// message is discarded to make room for the new one and the subscriber's lag
// counter is incremented.
package broadcast

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the number of pending messages kept per subscriber when
// a non-positive capacity is requested.
const DefaultCapacity = 32

// Channel fans published messages out to all attached receivers.
type Channel struct {
	mu        sync.Mutex
	capacity  int
	receivers map[*Receiver]struct{}
}

// Receiver is one subscription to a Channel.
type Receiver struct {
	parent *Channel
	queue  chan string
	lagged atomic.Uint64
	closed bool // guarded by parent.mu
}

// New creates a Channel whose subscribers buffer up to capacity messages each.
func New(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		capacity:  capacity,
		receivers: make(map[*Receiver]struct{}),
	}
}

// Capacity returns the per-subscriber queue size.
func (c *Channel) Capacity() int {
	return c.capacity
}

// Subscribe attaches a new receiver. Only messages published after this call are delivered to it.
func (c *Channel) Subscribe() *Receiver {
	r := &Receiver{
		parent: c,
		queue:  make(chan string, c.capacity),
	}

	c.mu.Lock()
	c.receivers[r] = struct{}{}
	c.mu.Unlock()

	return r
}

// ReceiverCount returns the number of attached receivers.
func (c *Channel) ReceiverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.receivers)
}

// Publish delivers msg to every attached receiver and returns how many receivers
// it was queued for. Receivers with a full queue lose their oldest message.
func (c *Channel) Publish(msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for r := range c.receivers {
		r.offer(msg)
	}
	return len(c.receivers)
}

// offer must be called with parent.mu held. Publish is the only sender on the
// queue, so once one element is drained there is room for msg.
func (r *Receiver) offer(msg string) {
	select {
	case r.queue <- msg:
		return
	default:
	}

	select {
	case <-r.queue:
		r.lagged.Add(1)
	default:
	}

	select {
	case r.queue <- msg:
	default:
		r.lagged.Add(1)
	}
}

// C returns the queue of delivered messages. It is closed after Close.
func (r *Receiver) C() <-chan string {
	return r.queue
}

// Lagged returns the number of messages this receiver missed because its queue was full.
func (r *Receiver) Lagged() uint64 {
	return r.lagged.Load()
}

// Close detaches the receiver from its channel and closes its queue.
// Messages still queued stay readable. Close is idempotent.
func (r *Receiver) Close() {
	c := r.parent
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	delete(c.receivers, r)
	close(r.queue)
}
