// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

// NewLocalPair builds two Channels paired in-process: sends on one are
// delivered directly into the other's dispatch path with no serialization,
// the zero-copy fast path spec §4.6 and §9 call out as a deliberate
// departure from always going through the wire codec. Each side gets its
// own dispatcher so they can register different handlers, as two
// independently-compiled components in the same process would.
func NewLocalPair(rt *Runtime, dispA, dispB *Dispatcher, opts ...ChannelOption) (a, b *Channel) {
	oa := defaultChannelOptions
	for _, fn := range opts {
		fn(&oa)
	}
	ob := oa

	a = newChannel(rt, dispA, oa)
	b = newChannel(rt, dispB, ob)
	a.kind, b.kind = transportLocal, transportLocal
	a.peer, b.peer = b, a

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()

	a.fireEvent(EventConnected)
	b.fireEvent(EventConnected)
	return a, b
}

// transmit is Send/ReplyErr/Bye/Nop's common exit point: a socketed
// channel queues msg for its writer goroutine, a local channel delivers
// it straight into its peer's dispatch path on the calling goroutine.
func (ch *Channel) transmit(msg *Message) {
	if ch.kind != transportLocal {
		ch.out.enqueue(msg)
		return
	}
	peer := ch.peer
	if peer == nil {
		msg.finish(StatusAbort, nil, nil)
		return
	}
	if msg.ForcePack || msg.ForceDup {
		// force_pack additionally means "packed even on a local channel"
		// in the original, but here Payload is always already-packed bytes
		// (spec §1: the codec is an external collaborator), so the only
		// observable difference left to reproduce is force_dup's defensive
		// copy — which is why the original's own test matrix (zchk-iop-rpc)
		// asserts identical behavior for every force_pack/force_dup pairing.
		msg.Payload = cloneBytes(msg.Payload)
		msg.Header = cloneBytes(msg.Header)
	}
	body := buildFrameBody(msg)
	h := frameHeader(msg, body)
	var fds []int
	if msg.FD >= 0 {
		fds = []int{msg.FD}
	}
	peer.dispatchFrame(h, body, fds)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
