// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"log/slog"
	"sync"
)

const channelIDMax = 1<<30 - 1

// RuntimeOptions configures a Runtime, following the teacher's functional
// options pattern (code.hybscloud.com/framer's Options/Option).
type RuntimeOptions struct {
	// PoolCapacity bounds the number of outstanding pool-allocated
	// messages; zero means unbounded (spec §9: explicit runtime object,
	// no hidden global pool).
	PoolCapacity int64

	// Logger receives structured diagnostics for fatal/disconnect events
	// (spec §7: "An implementation may log, but the core itself is silent
	// on transient errors"). Nil means silent, matching the teacher.
	Logger *slog.Logger
}

var defaultRuntimeOptions = RuntimeOptions{}

type RuntimeOption func(*RuntimeOptions)

func WithPoolCapacity(n int64) RuntimeOption {
	return func(o *RuntimeOptions) { o.PoolCapacity = n }
}

func WithLogger(l *slog.Logger) RuntimeOption {
	return func(o *RuntimeOptions) { o.Logger = l }
}

// Runtime is the process-wide (but explicitly constructed, never a hidden
// singleton — spec §9 Design Notes) collection of shared state: the
// channel registry resolving a 30-bit id to its Channel, the message
// pool, and the hook-context map. Exactly one Runtime is normally
// constructed at program startup and threaded through every Channel.
type Runtime struct {
	opts RuntimeOptions

	mu       sync.Mutex
	channels map[uint32]*Channel
	nextID   uint32

	pool  *Pool
	hooks *hookRegistry
}

// NewRuntime constructs a Runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	o := defaultRuntimeOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Runtime{
		opts:     o,
		channels: make(map[uint32]*Channel),
		nextID:   1,
		pool:     NewPool(o.PoolCapacity),
		hooks:    newHookRegistry(),
	}
}

func (r *Runtime) log(msg string, args ...any) {
	if r.opts.Logger != nil {
		r.opts.Logger.Debug(msg, args...)
	}
}

// register picks a collision-free id for ch and adds it to the registry
// (spec §3 invariant i: "id is unique per process for its lifetime").
func (r *Runtime) register(ch *Channel) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.nextID
	for {
		id := r.nextID
		r.nextID = (r.nextID + 1) & channelIDMax
		if r.nextID == 0 {
			r.nextID = 1
		}
		if _, busy := r.channels[id]; !busy {
			r.channels[id] = ch
			return id
		}
		if r.nextID == start {
			// Practically unreachable (2^30 live channels); fall back to
			// reusing start so callers never hang.
			r.channels[start] = ch
			return start
		}
	}
}

// unregister removes id so that a stale SlotID referencing it resolves to
// "no such channel" rather than a recycled, unrelated Channel (spec §9:
// "Pointer-vs-id discipline").
func (r *Runtime) unregister(id uint32) {
	r.mu.Lock()
	delete(r.channels, id)
	r.mu.Unlock()
}

// ChannelByID resolves a registered channel, or false if its id has been
// wiped/recycled away.
func (r *Runtime) ChannelByID(id uint32) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// channelForSlot resolves the channel a SlotID was issued by.
func (r *Runtime) channelForSlot(slot SlotID) (*Channel, bool) {
	if slot.IsHTTP() {
		return nil, false
	}
	return r.ChannelByID(slot.ChannelID())
}

// ReplyTo answers a query from any goroutine, given only the SlotID a
// Handler saved earlier — the deferred-reply path documented on Handler
// (spec §3, §4.5: a handler "may save slot and reply later").
func (r *Runtime) ReplyTo(slot SlotID, status Status, payload []byte) error {
	ch, ok := r.channelForSlot(slot)
	if !ok {
		return ErrChannelGone
	}
	return ch.ReplyErr(slot, status, payload)
}
