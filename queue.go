// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"context"
	"sync"
)

// outgoingQueue is a channel's pending-send list: four priority lanes
// (spec §4.4's 2-bit priority field), FIFO within a lane, with a
// condition variable the writer goroutine blocks on between batches.
type outgoingQueue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	lanes     [4][]*Message
	n         int
	closed    bool
	drained   chan struct{} // closed whenever n==0; swapped for a fresh one when n becomes >0
	drainOpen bool          // true iff the current q.drained has not been closed yet
}

func (q *outgoingQueue) init() {
	q.cond = sync.NewCond(&q.mu)
	q.drained = make(chan struct{})
	close(q.drained) // starts empty/drained
}

// markNotDrained must be called with q.mu held whenever n transitions
// 0 -> >0.
func (q *outgoingQueue) markNotDrained() {
	if !q.drainOpen {
		q.drained = make(chan struct{})
		q.drainOpen = true
	}
}

// markDrained must be called with q.mu held whenever n settles at 0.
func (q *outgoingQueue) markDrained() {
	if q.drainOpen {
		close(q.drained)
		q.drainOpen = false
	}
}

func (q *outgoingQueue) enqueue(msg *Message) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		msg.finish(StatusAbort, nil, nil)
		return
	}
	lane := msg.Priority & 0x3
	q.lanes[lane] = append(q.lanes[lane], msg)
	q.n++
	q.markNotDrained()
	q.mu.Unlock()
	q.cond.Broadcast()
}

// dequeueBatch blocks until at least one message is queued or the queue is
// closed, then drains every currently-queued, non-canceled message in
// priority order. Returning a batch (rather than one message at a time)
// is what lets the stream write pipeline coalesce several frames into one
// writev (spec §4.4).
func (q *outgoingQueue) dequeueBatch() ([]*Message, bool) {
	q.mu.Lock()
	for q.n == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.n == 0 && q.closed {
		q.mu.Unlock()
		return nil, false
	}
	batch := make([]*Message, 0, q.n)
	for lane := 3; lane >= 0; lane-- {
		for _, m := range q.lanes[lane] {
			if !m.Canceled() {
				batch = append(batch, m)
			}
		}
		q.lanes[lane] = nil
	}
	q.n = 0
	q.markDrained()
	q.mu.Unlock()
	return batch, true
}

func (q *outgoingQueue) waitDrained(ctx context.Context) error {
	q.mu.Lock()
	ch := q.drained
	q.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abortPending discards every still-queued message with StatusAbort,
// called during Disconnect (spec §4.9).
func (q *outgoingQueue) abortPending() {
	q.mu.Lock()
	var pending []*Message
	for lane := range q.lanes {
		pending = append(pending, q.lanes[lane]...)
		q.lanes[lane] = nil
	}
	q.n = 0
	q.markDrained()
	q.mu.Unlock()
	for _, m := range pending {
		m.finish(StatusAbort, nil, nil)
	}
}

// shutdown wakes a blocked dequeueBatch for good, used when the channel is
// permanently retired.
func (q *outgoingQueue) shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
