// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "testing"

func TestSlotIDRoundTrip(t *testing.T) {
	id := MakeSlotID(ForeignNative, 12345, 678)
	if id.Foreignness() != ForeignNative {
		t.Fatalf("foreignness = %v, want ForeignNative", id.Foreignness())
	}
	if id.ChannelID() != 12345 {
		t.Fatalf("channel id = %d, want 12345", id.ChannelID())
	}
	if id.Slot() != 678 {
		t.Fatalf("slot = %d, want 678", id.Slot())
	}
	if id.IsAsync() {
		t.Fatalf("slot 678 should not be async")
	}
}

func TestSlotIDAsync(t *testing.T) {
	id := MakeSlotID(ForeignNative, 1, 0)
	if !id.IsAsync() {
		t.Fatalf("slot 0 should be async")
	}
}

func TestSlotIDHTTPForeign(t *testing.T) {
	id := MakeSlotID(ForeignHTTP, 1, 1)
	if !id.IsHTTP() {
		t.Fatalf("expected IsHTTP true for ForeignHTTP")
	}
}

func TestSlotTableAllocateTakeRoundTrip(t *testing.T) {
	tbl := newSlotTable()
	msg := &Message{Cmd: 1}
	slot, err := tbl.allocate(msg)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if slot == 0 {
		t.Fatalf("allocate must never hand out slot 0")
	}
	if tbl.len() != 1 {
		t.Fatalf("len = %d, want 1", tbl.len())
	}
	got := tbl.take(slot)
	if got != msg {
		t.Fatalf("take returned %v, want original message", got)
	}
	if tbl.take(slot) != nil {
		t.Fatalf("second take of the same slot must return nil")
	}
}

func TestSlotTableAllocateNeverReturnsZero(t *testing.T) {
	tbl := newSlotTable()
	for i := 0; i < 10_000; i++ {
		slot, err := tbl.allocate(&Message{})
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if slot == 0 {
			t.Fatalf("allocate returned reserved slot 0")
		}
		tbl.take(slot)
	}
}

func TestSlotTableAbortAll(t *testing.T) {
	tbl := newSlotTable()
	for i := 0; i < 3; i++ {
		if _, err := tbl.allocate(&Message{Cmd: int32(i)}); err != nil {
			t.Fatalf("allocate: %v", err)
		}
	}
	aborted := tbl.abortAll()
	if len(aborted) != 3 {
		t.Fatalf("abortAll returned %d messages, want 3", len(aborted))
	}
	if tbl.len() != 0 {
		t.Fatalf("table should be empty after abortAll")
	}
}
