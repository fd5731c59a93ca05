// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"encoding/binary"

	"github.com/iop-rpc/ioprpc/internal/wire"
)

// buildFrameBody lays out a frame's body bytes: when the message carries
// an optional schema-header (spec §3's "optional header, sent only when
// HasHdr"), it is prefixed with its own 4-byte little-endian length so the
// receiver can split it back out of the single wire.Header.Length span.
func buildFrameBody(msg *Message) []byte {
	if len(msg.Header) == 0 {
		return msg.Payload
	}
	body := make([]byte, 4+len(msg.Header)+len(msg.Payload))
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(msg.Header)))
	copy(body[4:], msg.Header)
	copy(body[4+len(msg.Header):], msg.Payload)
	return body
}

// splitFrameBody is buildFrameBody's inverse.
func splitFrameBody(hasHdr bool, body []byte) (hdr, payload []byte, err error) {
	if !hasHdr {
		return nil, body, nil
	}
	if len(body) < 4 {
		return nil, nil, ErrHeaderRejected
	}
	n := binary.LittleEndian.Uint32(body[0:4])
	if int(n) > len(body)-4 {
		return nil, nil, ErrHeaderRejected
	}
	return body[4 : 4+n], body[4+n:], nil
}

// frameHeader builds the wire.Header describing msg.
func frameHeader(msg *Message, body []byte) wire.Header {
	return wire.Header{
		Slot:     msg.Slot,
		HasFD:    msg.FD >= 0,
		HasHdr:   len(msg.Header) > 0,
		Traced:   msg.Trace,
		Priority: msg.Priority & 0x3,
		Cmd:      msg.Cmd,
		Length:   uint32(len(body)),
	}
}
