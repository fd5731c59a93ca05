// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire implements the IOP-RPC frame codec: the 12-byte
// little-endian header described by the channel spec, plus the
// stream/packet read and write primitives that sit underneath it.
//
// It is deliberately free of any RPC semantics (slots, dispatch,
// status codes): those live in the parent ioprpc package. wire only
// knows how to turn a Header + payload into bytes on the wire and
// back, the way code.hybscloud.com/framer turns length-prefixed
// messages into bytes — non-blocking first, with short-write/partial
// read bookkeeping but no protocol interpretation.
package wire

import (
	"errors"

	"code.hybscloud.com/iox"
)

var (
	// ErrWouldBlock means "no further progress without waiting". Re-exported
	// from iox so callers of this package never need to import it directly.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means a partial frame was processed and more I/O is needed to
	// complete it; callers must retry with the same buffer.
	ErrMore = iox.ErrMore

	// ErrTooLong reports a payload length outside the wire format's bounds
	// or above the configured ReadLimit/MaxFrameSize.
	ErrTooLong = errors.New("wire: frame too long")

	// ErrHeaderInvalid reports a header that failed validation: unknown
	// flag bits, or fewer than HeaderLen bytes. An over-limit length is
	// reported as ErrTooLong instead.
	ErrHeaderInvalid = errors.New("wire: invalid frame header")

	// ErrInvalidArgument mirrors the teacher's sentinel for nil reader/writer
	// or malformed options.
	ErrInvalidArgument = errors.New("wire: invalid argument")

	// ErrNotUnixConn is returned by the FD-passing helpers when asked to
	// operate on a connection that isn't a *net.UnixConn.
	ErrNotUnixConn = errors.New("wire: ancillary data requires a unix socket")
)
