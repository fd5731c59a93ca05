// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "testing"

func TestDispatcherRegisterLookup(t *testing.T) {
	d := NewDispatcher()
	called := false
	err := d.RegisterHandler(7, nil, func(ch *Channel, slot SlotID, payload []byte, hdr []byte) {
		called = true
	})
	if err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}
	entry, ok := d.lookup(7)
	if !ok {
		t.Fatalf("lookup(7) missing after registration")
	}
	entry.Handler(nil, SlotID(0), nil, nil)
	if !called {
		t.Fatalf("looked-up handler was not the registered one")
	}
}

func TestDispatcherCollision(t *testing.T) {
	d := NewDispatcher()
	if err := d.RegisterHandler(1, nil, nil); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := d.RegisterHandler(1, nil, nil); err == nil {
		t.Fatalf("expected collision error on duplicate registration")
	}
}

func TestDispatcherUnregister(t *testing.T) {
	d := NewDispatcher()
	if err := d.RegisterHandler(1, nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d.Unregister(1)
	if _, ok := d.lookup(1); ok {
		t.Fatalf("entry still present after Unregister")
	}
}

func TestDispatcherIndirectProxyFollowsPointer(t *testing.T) {
	d := NewDispatcher()
	var target *Channel
	if err := d.RegisterIndirectProxy(5, nil, &target); err != nil {
		t.Fatalf("RegisterIndirectProxy: %v", err)
	}
	entry, ok := d.lookup(5)
	if !ok {
		t.Fatalf("lookup(5) missing")
	}
	if entry.Type != CBIndirectProxy {
		t.Fatalf("entry.Type = %v, want CBIndirectProxy", entry.Type)
	}
	if *entry.IndirectTarget != nil {
		t.Fatalf("expected nil target before assignment")
	}
}
