// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Slot: 0x123456 & slotMask, HasFD: true, HasHdr: true, Traced: false, Priority: 2, Cmd: -5, Length: 42}
	enc := h.Encode()
	got, err := DecodeHeader(enc[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
}

func TestHeaderRejectsUnknownFlags(t *testing.T) {
	h := Header{Slot: 1, Cmd: 1, Length: 0}
	enc := h.Encode()
	// Set an undefined bit (bit 29, above the 2-bit priority field).
	enc[3] |= 0x20
	if _, err := DecodeHeader(enc[:]); err != ErrHeaderInvalid {
		t.Fatalf("expected ErrHeaderInvalid, got %v", err)
	}
}

func TestHeaderRejectsOverlongLength(t *testing.T) {
	h := Header{Slot: 1, Cmd: 1, Length: MaxAllocSize + 1}
	enc := h.Encode()
	if _, err := DecodeHeader(enc[:]); err != ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestHeaderTooShort(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, 4)); err != ErrHeaderInvalid {
		t.Fatalf("expected ErrHeaderInvalid, got %v", err)
	}
}

func TestHeaderNativeByteOrderRoundTrip(t *testing.T) {
	o := Options{NativeByteOrder: true}
	h := Header{Slot: 42, HasFD: true, Cmd: -3, Length: 7}
	enc := h.EncodeOrder(o.byteOrder())
	got, err := DecodeHeaderOrder(enc[:], o.byteOrder())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
}
