// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool is the process-wide message allocator (spec §2, §9: "the
// process-wide pool allocator for messages... expose them as an explicit
// runtime object ... avoid hidden singletons"). Unlike the original's
// fixed-size mem_fifo_pool, Go's garbage collector reclaims Message
// storage on its own; Pool's only real job is to optionally bound how
// many messages may be outstanding at once, which it does with a
// semaphore rather than a hand-rolled free list.
type Pool struct {
	sem *semaphore.Weighted // nil: unbounded
}

// NewPool returns a pool. capacity<=0 means unbounded.
func NewPool(capacity int64) *Pool {
	if capacity <= 0 {
		return &Pool{}
	}
	return &Pool{sem: semaphore.NewWeighted(capacity)}
}

// acquire blocks (respecting ctx) until a pool slot is available. An
// unbounded pool never blocks.
func (p *Pool) acquire(ctx context.Context) error {
	if p.sem == nil {
		return nil
	}
	return p.sem.Acquire(ctx, 1)
}

// tryAcquire reports whether a slot was available without blocking.
func (p *Pool) tryAcquire() bool {
	if p.sem == nil {
		return true
	}
	return p.sem.TryAcquire(1)
}

// release returns m's slot to the pool. Safe to call on a message that
// never went through acquire (e.g. constructed directly with NewMessage):
// such messages carry a nil pool and release is then a no-op.
func (p *Pool) release(m *Message) {
	if p == nil || p.sem == nil {
		return
	}
	p.sem.Release(1)
}

// NewMessage allocates a query/async message through the pool, blocking
// (respecting ctx) if the pool is at capacity.
func (p *Pool) NewMessage(ctx context.Context, cmd int32, payload []byte, cb ReplyFunc) (*Message, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	m := NewMessage(cmd, payload, cb)
	m.pool = p
	return m, nil
}
