// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"sync"
	"time"
)

// ReplyFunc is invoked at most once per Message (spec §3 invariant i)
// with the reply's payload bytes as the peer sent them: the result (status
// OK), the exception (status Exn), or whatever the peer attached to any
// other status; locally produced outcomes (abort, timeout, cancel) carry
// no payload. decodeErr is non-nil when status is StatusInvalid because the
// reply body could not be split, or when status is StatusAbort because the
// write pipeline rejected the message or failed to send it.
type ReplyFunc func(msg *Message, status Status, payload []byte, decodeErr error)

// Message is the unit of work queued for send and awaiting a reply. It
// owns its serialized bytes, its reply callback, its optional passed file
// descriptor, its optional schema-header bytes, its timeout timer and its
// cancellation flag (spec §3).
type Message struct {
	Cmd      int32
	Slot     uint32 // assigned by the channel on enqueue; zero means async
	Header   []byte // optional, sent only when HasHdr
	Payload  []byte
	FD       int // >=0 if a descriptor travels with this message
	Async    bool
	Raw      bool // caller wants the undecoded reply payload
	Trace    bool
	Priority uint8

	// ForcePack and ForceDup only matter in local mode and are mutually
	// exclusive (spec §3 invariant iii); both are no-ops on a remote channel.
	ForcePack bool
	ForceDup  bool

	// Timeout is the query's max lifetime; zero means no timeout.
	Timeout time.Duration

	// RPC is an opaque reference to the schema descriptor of the RPC this
	// message belongs to (nil is fine — the codec collaborator, not this
	// package, needs it).
	RPC any

	// Priv is the caller-defined private scratch area (spec §3: "a small
	// private scratch area whose layout is caller-defined").
	Priv any

	// Finalizer, if set, runs once when the message is deleted, after the
	// reply callback has already fired (spec §9 Open Question iii).
	Finalizer func(*Message)

	cb        ReplyFunc
	isProxy   bool
	proxySlot SlotID // originator slot, valid only when isProxy

	mu        sync.Mutex
	canceled  bool
	replied   bool
	channelID uint32
	runtime   *Runtime
	timer     *time.Timer
	pool      *Pool
}

// NewMessage allocates a query/async message carrying payload (the slice
// is used as is, not copied) and no passed descriptor.
func NewMessage(cmd int32, payload []byte, cb ReplyFunc) *Message {
	return &Message{Cmd: cmd, Payload: payload, FD: -1, cb: cb}
}

// NewMessageFD allocates a message that additionally adopts a file
// descriptor to send alongside the frame.
func NewMessageFD(cmd int32, payload []byte, fd int, cb ReplyFunc) *Message {
	m := NewMessage(cmd, payload, cb)
	m.FD = fd
	return m
}

// newProxyMessage stashes the originator's 64-bit slot identifier so a
// proxied reply can be routed back without decoding (spec §4.2, §4.7).
// This replaces the original's "proxy magic" reply-callback pointer trick
// with an explicit tag, which is the idiomatic Go way to special-case a
// value without relying on function-pointer identity.
func newProxyMessage(cmd int32, payload []byte, fd int, hdr []byte, origin SlotID) *Message {
	return &Message{
		Cmd: cmd, Payload: payload, FD: fd, Header: hdr,
		isProxy: true, proxySlot: origin,
	}
}

// SetTimeout registers the query's max lifetime and returns msg for chaining.
func (m *Message) SetTimeout(d time.Duration) *Message {
	m.Timeout = d
	return m
}

// SetPriority sets the message's send priority and returns msg for chaining.
func (m *Message) SetPriority(p uint8) *Message {
	m.Priority = p & 0x3
	return m
}

// Canceled reports whether Cancel has been called on this message.
func (m *Message) Canceled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}

// Cancel flags the message as canceled (spec §4.2, §5):
//   - before send: the message is discarded the next time the write
//     pipeline encounters it.
//   - after send, while still awaiting a reply: the eventual reply is
//     dropped.
//
// If the message is not async and has not yet terminally replied, Cancel
// invokes the reply callback immediately with StatusCanceled. Idempotent:
// canceling an already-canceled message is a no-op (spec §8 invariant 6).
func (m *Message) Cancel() {
	m.mu.Lock()
	if m.canceled {
		m.mu.Unlock()
		return
	}
	m.canceled = true
	already := m.replied
	if !already {
		m.replied = true
	}
	cb, async := m.cb, m.Async
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()

	if !already && !async && cb != nil {
		cb(m, StatusCanceled, nil, nil)
	}
	if !already {
		m.delete()
	}
}

// tryDeliver invokes the reply callback at most once across the message's
// lifetime (spec §8 invariant 3), returning whether this call actually won
// the race to deliver.
func (m *Message) tryDeliver(status Status, payload []byte, decodeErr error) bool {
	m.mu.Lock()
	if m.replied || m.canceled {
		m.mu.Unlock()
		return false
	}
	m.replied = true
	cb := m.cb
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()

	if cb != nil {
		cb(m, status, payload, decodeErr)
	}
	return true
}

// finish delivers the reply (if not already replied/canceled) and then
// releases the message's resources exactly once. Every terminal path —
// reply arrival, timeout, abort on disconnect, slot exhaustion — goes
// through this instead of calling tryDeliver and delete separately.
func (m *Message) finish(status Status, payload []byte, decodeErr error) {
	if m.tryDeliver(status, payload, decodeErr) {
		m.delete()
	}
}

// delete releases the file descriptor if owned, runs the finalizer and
// returns the message's storage to its pool, mirroring ic_msg_delete's
// order of operations (spec §4.2).
func (m *Message) delete() {
	if m.FD >= 0 {
		closeFD(m.FD)
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	if m.Finalizer != nil {
		m.Finalizer(m)
	}
	if m.pool != nil {
		m.pool.release(m)
	}
}
