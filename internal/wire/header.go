// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import "encoding/binary"

// orderOrDefault returns order if non-nil, else little-endian — the wire
// default used whenever two ends might not share a machine.
func orderOrDefault(order binary.ByteOrder) binary.ByteOrder {
	if order == nil {
		return binary.LittleEndian
	}
	return order
}

// Wire format (stream and packet modes alike): a fixed 12-byte
// little-endian header followed by a payload of exactly Length bytes.
//
//	word 0: slot (low 24 bits) | flags (high 8 bits)
//	word 1: signed 32-bit command code
//	word 2: unsigned 32-bit payload length
const (
	HeaderLen = 12

	slotMask       = 1<<24 - 1
	flagHasFD      = 1 << 24
	flagHasHdr     = 1 << 25
	flagIsTraced   = 1 << 26
	priorityShift  = 27
	priorityMask   = 0x3 << priorityShift
	knownFlagsMask = flagHasFD | flagHasHdr | flagIsTraced | priorityMask

	// MaxFrameSize bounds a single frame, header included, for one write
	// or one datagram. The stream write pipeline does not slice a larger
	// frame across writes: it aborts any message whose body exceeds
	// MaxFrameSize-HeaderLen. For packets this is the sendmsg ceiling.
	MaxFrameSize = 64 * 1024

	// LargeMessageThreshold marks a payload "large" per the header
	// validation rule: the command must be checked against the dispatch
	// table before further allocation happens.
	LargeMessageThreshold = 10 << 20

	// MaxAllocSize is the allocator-wide bound on a single payload length;
	// it stands in for the original's per-process pool allocator ceiling.
	MaxAllocSize = 1 << 30
)

// Header is the parsed form of a frame's 12-byte prefix.
type Header struct {
	Slot     uint32 // 24-bit local slot
	HasFD    bool
	HasHdr   bool
	Traced   bool
	Priority uint8 // 0-3
	Cmd      int32
	Length   uint32
}

// Encode writes h into a fresh 12-byte buffer using wire byte order
// (little-endian), the form used whenever the two ends might not share a
// machine.
func (h Header) Encode() [HeaderLen]byte {
	return h.EncodeOrder(binary.LittleEndian)
}

// EncodeOrder writes h using an explicit byte order. A transport known to
// stay within one host (spec §9's "local stream" variant) may pass
// internal/bo's Native() order instead, skipping the swap LittleEndian
// would otherwise force on big-endian hosts.
func (h Header) EncodeOrder(order binary.ByteOrder) [HeaderLen]byte {
	order = orderOrDefault(order)
	var b [HeaderLen]byte
	word0 := h.Slot & slotMask
	if h.HasFD {
		word0 |= flagHasFD
	}
	if h.HasHdr {
		word0 |= flagHasHdr
	}
	if h.Traced {
		word0 |= flagIsTraced
	}
	word0 |= uint32(h.Priority&0x3) << priorityShift
	order.PutUint32(b[0:4], word0)
	order.PutUint32(b[4:8], uint32(h.Cmd))
	order.PutUint32(b[8:12], h.Length)
	return b
}

// DecodeHeader parses a 12-byte buffer in wire byte order (little-endian).
// It rejects unknown flag bits and out-of-range lengths but has no notion
// of slot tables or dispatch tables — those checks belong to the caller
// (readpipe.go), per spec §4.1.
func DecodeHeader(b []byte) (Header, error) {
	return DecodeHeaderOrder(b, binary.LittleEndian)
}

// DecodeHeaderOrder parses b using an explicit byte order; see EncodeOrder.
func DecodeHeaderOrder(b []byte, order binary.ByteOrder) (Header, error) {
	order = orderOrDefault(order)
	if len(b) < HeaderLen {
		return Header{}, ErrHeaderInvalid
	}
	word0 := order.Uint32(b[0:4])
	cmd := int32(order.Uint32(b[4:8]))
	length := order.Uint32(b[8:12])

	if word0&^uint32(slotMask|knownFlagsMask) != 0 {
		return Header{}, ErrHeaderInvalid
	}
	if length > MaxAllocSize {
		return Header{}, ErrTooLong
	}
	h := Header{
		Slot:     word0 & slotMask,
		HasFD:    word0&flagHasFD != 0,
		HasHdr:   word0&flagHasHdr != 0,
		Traced:   word0&flagIsTraced != 0,
		Priority: uint8((word0 & priorityMask) >> priorityShift),
		Cmd:      cmd,
		Length:   length,
	}
	return h, nil
}
