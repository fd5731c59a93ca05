// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "testing"

func TestHookRegistryFastPathRoundTrip(t *testing.T) {
	r := newHookRegistry()
	slot := MakeSlotID(ForeignNative, 1, 1)
	ctx := r.newContext(slot, nil, nil, nil)
	got := r.get(slot)
	if got != ctx {
		t.Fatalf("get returned %v, want the context just installed", got)
	}
	r.delete(ctx)
	if r.get(slot) != nil {
		t.Fatalf("context still present after delete")
	}
}

func TestHookRegistryNestingSpillsToMap(t *testing.T) {
	r := newHookRegistry()
	slotA := MakeSlotID(ForeignNative, 1, 1)
	slotB := MakeSlotID(ForeignNative, 1, 2)

	ctxA := r.newContext(slotA, nil, nil, nil)
	ctxB := r.newContext(slotB, nil, nil, nil) // displaces ctxA into the map

	if r.get(slotA) != ctxA {
		t.Fatalf("ctxA not retrievable after being displaced from the fast path")
	}
	if r.get(slotB) != ctxB {
		t.Fatalf("ctxB not retrievable from the fast path")
	}

	r.delete(ctxA)
	if r.get(slotA) != nil {
		t.Fatalf("ctxA still present after delete")
	}
	if r.get(slotB) != ctxB {
		t.Fatalf("deleting ctxA must not disturb ctxB")
	}
}

func TestRunPreHookSkipsMainHandlerOnSyncReply(t *testing.T) {
	entry := &DispatchEntry{
		PreHook: func(ch *Channel, slot SlotID, hdr []byte, arg any) bool {
			return true // pretend it already replied synchronously
		},
	}
	rt := NewRuntime()
	ch := newChannel(rt, NewDispatcher(), defaultChannelOptions)
	slot := ch.slotIDFor(1)
	if runPreHook(ch, slot, nil, entry) {
		t.Fatalf("runPreHook must return false when the pre-hook replied synchronously")
	}
}

func TestRunPreHookNoHookAlwaysProceeds(t *testing.T) {
	entry := &DispatchEntry{}
	rt := NewRuntime()
	ch := newChannel(rt, NewDispatcher(), defaultChannelOptions)
	slot := ch.slotIDFor(1)
	if !runPreHook(ch, slot, nil, entry) {
		t.Fatalf("runPreHook with no PreHook must always return true")
	}
}

func TestRunPostHookFiresOnce(t *testing.T) {
	var calls int
	entry := &DispatchEntry{
		PostHook: func(ch *Channel, status Status, ctx *HookContext, arg any) { calls++ },
	}
	rt := NewRuntime()
	ch := newChannel(rt, NewDispatcher(), defaultChannelOptions)
	slot := ch.slotIDFor(1)
	runPreHook(ch, slot, nil, entry)
	runPostHook(ch, StatusOK, slot)
	runPostHook(ch, StatusOK, slot) // context already discarded; must not fire again
	if calls != 1 {
		t.Fatalf("post-hook fired %d times, want 1", calls)
	}
}
