// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"context"
	"testing"
	"time"
)

func TestOutgoingQueuePriorityOrdering(t *testing.T) {
	var q outgoingQueue
	q.init()

	low := &Message{Priority: 0, FD: -1}
	high := &Message{Priority: 3, FD: -1}
	mid := &Message{Priority: 1, FD: -1}

	q.enqueue(low)
	q.enqueue(high)
	q.enqueue(mid)

	batch, ok := q.dequeueBatch()
	if !ok {
		t.Fatalf("dequeueBatch returned ok=false")
	}
	if len(batch) != 3 {
		t.Fatalf("batch length = %d, want 3", len(batch))
	}
	if batch[0] != high || batch[1] != mid || batch[2] != low {
		t.Fatalf("batch not drained highest-priority-first: %+v", batch)
	}
}

func TestOutgoingQueueSkipsCanceled(t *testing.T) {
	var q outgoingQueue
	q.init()

	a := &Message{FD: -1}
	b := &Message{FD: -1}
	b.canceled = true
	q.enqueue(a)
	q.enqueue(b)

	batch, ok := q.dequeueBatch()
	if !ok {
		t.Fatalf("dequeueBatch returned ok=false")
	}
	if len(batch) != 1 || batch[0] != a {
		t.Fatalf("canceled message was not skipped: %+v", batch)
	}
}

func TestOutgoingQueueEnqueueAfterCloseAborts(t *testing.T) {
	var q outgoingQueue
	q.init()
	q.shutdown()

	var gotStatus Status
	msg := NewMessage(1, nil, func(m *Message, status Status, payload []byte, decodeErr error) {
		gotStatus = status
	})
	q.enqueue(msg)
	if gotStatus != StatusAbort {
		t.Fatalf("status = %v, want StatusAbort", gotStatus)
	}
}

func TestOutgoingQueueWaitDrained(t *testing.T) {
	var q outgoingQueue
	q.init()

	msg := &Message{FD: -1}
	q.enqueue(msg)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- q.waitDrained(ctx)
	}()

	// Give waitDrained a moment to observe the not-drained state, then drain.
	time.Sleep(10 * time.Millisecond)
	if _, ok := q.dequeueBatch(); !ok {
		t.Fatalf("dequeueBatch returned ok=false")
	}

	if err := <-done; err != nil {
		t.Fatalf("waitDrained: %v", err)
	}
}

func TestOutgoingQueueAbortPending(t *testing.T) {
	var q outgoingQueue
	q.init()

	var statuses []Status
	for i := 0; i < 3; i++ {
		msg := NewMessage(int32(i), nil, func(m *Message, status Status, payload []byte, decodeErr error) {
			statuses = append(statuses, status)
		})
		q.enqueue(msg)
	}
	q.abortPending()
	if len(statuses) != 3 {
		t.Fatalf("got %d callbacks, want 3", len(statuses))
	}
	for _, s := range statuses {
		if s != StatusAbort {
			t.Fatalf("status = %v, want StatusAbort", s)
		}
	}
}
