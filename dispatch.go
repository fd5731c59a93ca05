// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"fmt"
	"sync"
)

// CBType is one of the five dispatch-entry variants (spec §3, §4.5).
type CBType int

const (
	CBNormal        CBType = iota // local callback
	CBStaticProxy                 // fixed target channel + optional forced header
	CBIndirectProxy               // target channel may be swapped at runtime
	CBDynamicProxy                // callback returns (channel, header) per query
	CBShared                      // used by the HTTP front end (out of scope here)
)

// Handler implements the server side of an RPC. It may reply
// synchronously through ch (see Channel.Reply/Channel.ReplyErr) or save
// slot and reply later from any goroutine via Runtime.ReplyTo.
type Handler func(ch *Channel, slot SlotID, payload []byte, hdr []byte)

// DynamicProxyFunc resolves a proxy target per query, given the query's
// header and the entry's private argument (spec §3: ic_dynproxy_f).
type DynamicProxyFunc func(hdr []byte, arg any) (target *Channel, forcedHdr []byte)

// PreHook runs after header/value decode and before the main handler
// (spec §4.8). Returning true suppresses the main handler, signaling that
// the hook already replied synchronously.
type PreHook func(ch *Channel, slot SlotID, hdr []byte, arg any) (repliedSynchronously bool)

// PostHook runs exactly once per completed query, just before the reply
// leaves the channel (spec §4.8).
type PostHook func(ch *Channel, status Status, ctx *HookContext, arg any)

// DispatchEntry maps one command code to how the channel should handle a
// received query (spec §3, §4.5).
type DispatchEntry struct {
	Type CBType
	RPC  any // opaque schema descriptor reference

	// CBNormal / CBShared
	Handler Handler

	// CBStaticProxy
	StaticTarget *Channel
	StaticHeader []byte

	// CBIndirectProxy: a pointer so the target may be swapped at runtime;
	// if *IndirectTarget is nil or not ready the query is rejected.
	IndirectTarget **Channel

	// CBDynamicProxy
	DynamicFunc DynamicProxyFunc
	DynamicArg  any

	PreHook  PreHook
	PostHook PostHook
	PreArg   any
	PostArg  any
}

// Dispatcher maps a 32-bit command code to its DispatchEntry (spec §3).
type Dispatcher struct {
	mu      sync.RWMutex
	entries map[int32]*DispatchEntry
}

// NewDispatcher returns an empty dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{entries: make(map[int32]*DispatchEntry)}
}

// Register adds e under cmd. It returns an error on collision, mirroring
// the original's e_assert_n "collision in RPC registering".
func (d *Dispatcher) Register(cmd int32, e DispatchEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[cmd]; exists {
		return fmt.Errorf("ioprpc: dispatch collision registering cmd %d", cmd)
	}
	entry := e
	d.entries[cmd] = &entry
	return nil
}

// RegisterHandler is the common case: a local callback with no hooks.
func (d *Dispatcher) RegisterHandler(cmd int32, rpc any, h Handler) error {
	return d.Register(cmd, DispatchEntry{Type: CBNormal, RPC: rpc, Handler: h})
}

// RegisterStaticProxy relays cmd unconditionally to target.
func (d *Dispatcher) RegisterStaticProxy(cmd int32, rpc any, target *Channel, forcedHeader []byte) error {
	return d.Register(cmd, DispatchEntry{Type: CBStaticProxy, RPC: rpc, StaticTarget: target, StaticHeader: forcedHeader})
}

// RegisterIndirectProxy relays cmd to whatever *targetPtr currently holds.
func (d *Dispatcher) RegisterIndirectProxy(cmd int32, rpc any, targetPtr **Channel) error {
	return d.Register(cmd, DispatchEntry{Type: CBIndirectProxy, RPC: rpc, IndirectTarget: targetPtr})
}

// RegisterDynamicProxy relays cmd to whatever fn resolves per query.
func (d *Dispatcher) RegisterDynamicProxy(cmd int32, rpc any, fn DynamicProxyFunc, arg any) error {
	return d.Register(cmd, DispatchEntry{Type: CBDynamicProxy, RPC: rpc, DynamicFunc: fn, DynamicArg: arg})
}

// Unregister removes cmd's dispatch entry, if any.
func (d *Dispatcher) Unregister(cmd int32) {
	d.mu.Lock()
	delete(d.entries, cmd)
	d.mu.Unlock()
}

func (d *Dispatcher) lookup(cmd int32) (*DispatchEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[cmd]
	return e, ok
}
