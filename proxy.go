// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

// proxyQuery relays an incoming query to target, stashing the originating
// slot so the eventual reply can be routed straight back without decoding
// (spec §4.5's static/indirect/dynamic proxy variants, §4.7). It implements
// all three proxy CBTypes; the only difference between them is how the
// caller already resolved target and the forced header.
func (ch *Channel) proxyQuery(origin SlotID, target *Channel, cmd int32, payload []byte, fd int, hdr []byte) {
	async := origin.IsAsync()
	if target == nil || !target.isReady() {
		if fd >= 0 {
			closeFD(fd)
		}
		if !async {
			_ = ch.ReplyErr(origin, StatusProxyError, nil)
		}
		return
	}

	msg := newProxyMessage(cmd, payload, fd, hdr, origin)
	msg.Async = async
	if err := target.Send(msg); err != nil {
		if fd >= 0 {
			closeFD(fd)
		}
		if !async {
			_ = ch.ReplyErr(origin, StatusProxyError, nil)
		}
	}
}

// Forward relays msg's just-arrived reply onward to another channel's
// originSlot without decoding it — a manual alternative to the automatic
// proxy-reply relay in handleReply, for handlers that resolve their proxy
// target only after inspecting a reply (spec §4.7's zero-copy relay).
//
// It requires msg to have been sent with Raw: true, since a decoded reply
// has nothing left to copy bytes from (spec §4.2's ForcePack/ForceDup
// mutual exclusion applies to the analogous local-mode case). originSlot
// must not be HTTP-foreign, since the HTTP front end is out of scope here.
func Forward(msg *Message, status Status, payload []byte, to *Channel, originSlot SlotID) error {
	if !msg.Raw {
		return ErrForwardConsumed
	}
	if originSlot.IsHTTP() {
		return ErrForwardHTTPOrigin
	}
	if !to.isReady() {
		return ErrNotReady
	}
	to.transmit(&Message{Cmd: int32(-status), Slot: originSlot.Slot(), Payload: payload, FD: msg.FD})
	msg.FD = -1 // ownership transferred to the relay message
	return nil
}
