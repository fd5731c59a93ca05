// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "testing"

func TestRuntimeRegisterUniqueIDs(t *testing.T) {
	rt := NewRuntime()
	disp := NewDispatcher()
	a := newChannel(rt, disp, defaultChannelOptions)
	b := newChannel(rt, disp, defaultChannelOptions)
	if a.ID() == b.ID() {
		t.Fatalf("two channels got the same id %d", a.ID())
	}
	if got, ok := rt.ChannelByID(a.ID()); !ok || got != a {
		t.Fatalf("ChannelByID(%d) = %v, %v; want a, true", a.ID(), got, ok)
	}
}

func TestRuntimeUnregisterWipesLookup(t *testing.T) {
	rt := NewRuntime()
	ch := newChannel(rt, NewDispatcher(), defaultChannelOptions)
	id := ch.ID()
	rt.unregister(id)
	if _, ok := rt.ChannelByID(id); ok {
		t.Fatalf("channel still resolvable after unregister")
	}
}

func TestRuntimeReplyToUnknownChannelGone(t *testing.T) {
	rt := NewRuntime()
	ch := newChannel(rt, NewDispatcher(), defaultChannelOptions)
	slot := ch.slotIDFor(1)
	rt.unregister(ch.ID())
	if err := rt.ReplyTo(slot, StatusOK, nil); err != ErrChannelGone {
		t.Fatalf("ReplyTo on a wiped channel id: err = %v, want ErrChannelGone", err)
	}
}

func TestPoolBoundedAcquireRelease(t *testing.T) {
	p := NewPool(1)
	if !p.tryAcquire() {
		t.Fatalf("first tryAcquire on a capacity-1 pool must succeed")
	}
	if p.tryAcquire() {
		t.Fatalf("second tryAcquire on a capacity-1 pool must fail while the first is held")
	}
	p.sem.Release(1)
	if !p.tryAcquire() {
		t.Fatalf("tryAcquire after release must succeed")
	}
}

func TestPoolUnboundedNeverBlocks(t *testing.T) {
	p := NewPool(0)
	for i := 0; i < 1000; i++ {
		if !p.tryAcquire() {
			t.Fatalf("unbounded pool refused tryAcquire at i=%d", i)
		}
	}
}
