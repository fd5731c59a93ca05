// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "sync"

// HookContext carries per-query state from a pre-hook to its matching
// post-hook, keyed by slot identifier (spec §3, §4.8).
type HookContext struct {
	Slot     SlotID
	RPC      any
	PostHook PostHook
	PostArg  any

	// Data is the caller-defined trailer a pre-hook can stash for its
	// post-hook to read (spec §3: "a caller-defined byte trailer").
	Data any
}

// hookRegistry is the process-wide (here: Runtime-wide) map from slot
// identifier to hook context. A single-slot fast path avoids the map
// entirely in the common case where pre- and post-hooks run back-to-back
// with no other query's hooks interleaved; the boundary between
// "still-fast-path" and "now-in-map" is the second pre-hook observed
// before a matching post-hook fires (spec §4.8, §9).
type hookRegistry struct {
	mu   sync.Mutex
	fast *HookContext
	m    map[SlotID]*HookContext
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{}
}

// newContext creates and installs a context for slot. If a different
// context currently occupies the fast-path slot, that means hooks have
// nested (another query's pre-hook ran before this one's post-hook fired)
// and the displaced context migrates into the map.
func (r *hookRegistry) newContext(slot SlotID, rpc any, post PostHook, postArg any) *HookContext {
	ctx := &HookContext{Slot: slot, RPC: rpc, PostHook: post, PostArg: postArg}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fast != nil && r.fast.Slot != slot {
		if r.m == nil {
			r.m = make(map[SlotID]*HookContext)
		}
		r.m[r.fast.Slot] = r.fast
	}
	r.fast = ctx
	return ctx
}

func (r *hookRegistry) get(slot SlotID) *HookContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fast != nil && r.fast.Slot == slot {
		return r.fast
	}
	if r.m != nil {
		return r.m[slot]
	}
	return nil
}

func (r *hookRegistry) delete(ctx *HookContext) {
	if ctx == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fast == ctx {
		r.fast = nil
		return
	}
	if r.m != nil {
		delete(r.m, ctx.Slot)
	}
}

// runPreHook runs e's pre-hook (if any) and installs its hook context.
// It returns false when the pre-hook already replied synchronously, in
// which case the main handler must be skipped (spec §4.5, §4.8).
func runPreHook(ch *Channel, slot SlotID, hdr []byte, e *DispatchEntry) bool {
	if e.PreHook == nil && e.PostHook == nil {
		return true
	}
	ctx := ch.runtime.hooks.newContext(slot, e.RPC, e.PostHook, e.PostArg)
	if e.PreHook == nil {
		return true
	}
	replied := e.PreHook(ch, slot, hdr, e.PreArg)
	if replied {
		// The pre-hook's synchronous reply already ran the post-hook and
		// deleted the context (see Channel.ReplyErr); nothing left to do.
		return false
	}
	_ = ctx
	return true
}

// runPostHook fires the post-hook registered for slot exactly once, then
// discards its context (spec §4.8).
func runPostHook(ch *Channel, status Status, slot SlotID) {
	ctx := ch.runtime.hooks.get(slot)
	if ctx == nil {
		return
	}
	if ctx.PostHook != nil {
		ctx.PostHook(ch, status, ctx, ctx.PostArg)
	}
	ch.runtime.hooks.delete(ctx)
}
