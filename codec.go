// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

// Codec is the IOP-schema collaborator this package consumes (spec §6):
// pack/unpack for a type given its descriptor, a constraint check, a deep
// copy primitive, and a per-type size estimator. Schema compilation is
// out of scope (spec §1); production callers plug in their own generated
// codec, keyed by the RPC descriptor carried on Message.RPC.
type Codec interface {
	// Pack serializes v into wire bytes.
	Pack(v any) ([]byte, error)
	// Unpack deserializes data into a fresh value shaped like zero-value
	// hint (typically a pointer the caller allocated).
	Unpack(data []byte, hint any) (any, error)
	// CheckConstraints validates a freshly unpacked value against its
	// schema's constraints (spec §4.5: "enforce constraint-checking").
	CheckConstraints(v any) error
	// Clone deep-copies v. The local-mode force-dup path copies payload
	// bytes itself and does not call it.
	Clone(v any) any
	// EstimateSize returns a size hint for v. This package does not call it.
	EstimateSize(v any) int
}

// passthroughCodec treats payloads as opaque []byte: Pack/Unpack are
// identity operations. It is useful for tests and for callers that
// serialize outside this package and only want framing/dispatch.
type passthroughCodec struct{}

// PassthroughCodec is the identity Codec.
var PassthroughCodec Codec = passthroughCodec{}

func (passthroughCodec) Pack(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, ErrCodecMismatch
}

func (passthroughCodec) Unpack(data []byte, hint any) (any, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (passthroughCodec) CheckConstraints(v any) error { return nil }

func (passthroughCodec) Clone(v any) any {
	if b, ok := v.([]byte); ok {
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp
	}
	return v
}

func (passthroughCodec) EstimateSize(v any) int {
	if b, ok := v.([]byte); ok {
		return len(b)
	}
	return 0
}
