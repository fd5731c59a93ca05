// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"context"
	"errors"
	"io"

	"github.com/iop-rpc/ioprpc/internal/wire"
)

// readLoop is the channel's dedicated reader goroutine. Frame parsing and
// dispatch both run here, on one goroutine, matching the original's
// single-threaded "decode then call the handler inline" model even though
// writing now happens concurrently on its own goroutine (spec §9).
func (ch *Channel) readLoop() {
	defer ch.wg.Done()
	buf := make([]byte, wire.MaxFrameSize)
	for {
		var h wire.Header
		var n int
		var err error
		var fds []int

		if ch.unixConn != nil {
			h, n, fds, err = wire.ReadFrameFDs(ch.unixConn, buf)
		} else {
			h, n, err = ch.reader.ReadFrame(buf)
			if errors.Is(err, io.ErrShortBuffer) {
				grown := make([]byte, h.Length)
				h, n, err = ch.reader.ReadFrame(grown)
				buf = grown
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				ch.log("read error, disconnecting", "err", err)
			}
			ch.Disconnect()
			return
		}

		ch.activity.touch(ch)
		ch.dispatchFrame(h, buf[:n], fds)
	}
}

// dispatchFrame routes one decoded frame to the reply, query, or
// stream-control path (spec §4.1, §4.5).
func (ch *Channel) dispatchFrame(h wire.Header, body []byte, fds []int) {
	fd := -1
	if len(fds) > 0 {
		fd = fds[0]
		for _, extra := range fds[1:] {
			closeFD(extra) // this package's contract is one FD per frame
		}
	}

	switch {
	case h.Cmd == streamControlCmd:
		ch.handleStreamControl(h.Slot)
	case h.Cmd <= 0:
		ch.handleReply(h.Slot, Status(-h.Cmd), h, body, fd)
	default:
		ch.handleQuery(h, body, fd)
	}
}

// handleReply completes the message occupying slot, relaying it onward
// if it was a proxy stub rather than a genuine local caller (spec §4.2,
// §4.7).
func (ch *Channel) handleReply(slot uint32, status Status, h wire.Header, body []byte, fd int) {
	msg := ch.slots.take(slot)
	if msg == nil {
		if fd >= 0 {
			closeFD(fd)
		}
		return // unknown slot: already answered, canceled, or timed out
	}
	hdr, payload, err := splitFrameBody(h.HasHdr, body)
	if err != nil {
		status, payload, hdr = StatusInvalid, nil, nil
	}

	if msg.isProxy {
		origin := msg.proxySlot
		if originCh, ok := ch.runtime.channelForSlot(origin); ok {
			relay := &Message{Cmd: int32(-status), Slot: origin.Slot(), Payload: payload, Header: hdr, FD: fd}
			originCh.transmit(relay)
		} else if fd >= 0 {
			closeFD(fd)
		}
		msg.FD = -1
		msg.delete()
		return
	}

	if fd >= 0 {
		msg.FD = fd
	}
	if msg.Raw {
		msg.finish(status, payload, nil)
		return
	}
	msg.finish(status, payload, err)
}

// handleQuery dispatches an incoming query by command code: unimplemented
// if no entry is registered, otherwise pre-hook, handler/proxy, post-hook
// (spec §3, §4.5, §4.8).
func (ch *Channel) handleQuery(h wire.Header, body []byte, fd int) {
	slot := ch.slotIDFor(h.Slot)
	hdr, payload, err := splitFrameBody(h.HasHdr, body)
	if err != nil {
		if h.Slot != 0 {
			_ = ch.ReplyErr(slot, StatusInvalid, append([]byte(err.Error()), 0))
		}
		if fd >= 0 {
			closeFD(fd)
		}
		return
	}

	entry, ok := ch.dispatcher.lookup(h.Cmd)
	if !ok {
		if h.Slot != 0 {
			_ = ch.ReplyErr(slot, StatusUnimplemented, nil)
		}
		if fd >= 0 {
			closeFD(fd)
		}
		return
	}

	ch.mu.Lock()
	closing := ch.closing
	ch.mu.Unlock()
	if closing {
		if h.Slot != 0 {
			_ = ch.ReplyErr(slot, StatusRetry, nil)
		}
		if fd >= 0 {
			closeFD(fd)
		}
		return
	}

	if !runPreHook(ch, slot, hdr, entry) {
		return // pre-hook already replied synchronously
	}

	switch entry.Type {
	case CBStaticProxy:
		ch.proxyQuery(slot, entry.StaticTarget, h.Cmd, payload, fd, coalesceHeader(entry.StaticHeader, hdr))
	case CBIndirectProxy:
		var target *Channel
		if entry.IndirectTarget != nil {
			target = *entry.IndirectTarget
		}
		ch.proxyQuery(slot, target, h.Cmd, payload, fd, hdr)
	case CBDynamicProxy:
		target, forced := entry.DynamicFunc(hdr, entry.DynamicArg)
		ch.proxyQuery(slot, target, h.Cmd, payload, fd, coalesceHeader(forced, hdr))
	default: // CBNormal, CBShared
		if entry.Handler != nil {
			entry.Handler(ch, slot, payload, hdr)
		}
	}
}

func coalesceHeader(forced, original []byte) []byte {
	if forced != nil {
		return forced
	}
	return original
}

// handleStreamControl implements BYE (remote-initiated graceful shutdown:
// stop accepting new work, let in-flight queries finish, then disconnect)
// and NOP (keepalive; activity was already recorded by readLoop).
func (ch *Channel) handleStreamControl(sub uint32) {
	switch sub {
	case scBye:
		ch.mu.Lock()
		ch.closing = true
		ch.mu.Unlock()
		go func() {
			_ = ch.Flush(context.Background())
			ch.Disconnect()
		}()
	case scNop:
		// activity timestamp already updated by the caller.
	}
}
