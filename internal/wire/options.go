// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"time"

	"github.com/iop-rpc/ioprpc/internal/bo"
)

// Mode describes whether the underlying transport preserves message
// boundaries, the same distinction the teacher's Protocol type makes.
type Mode uint8

const (
	// StreamMode: boundaries are not preserved (TCP, Unix stream). The
	// header's Length field is load-bearing and frames are parsed
	// incrementally out of a byte stream.
	StreamMode Mode = iota
	// PacketMode: boundaries are preserved (SOCK_SEQPACKET, UDP). One
	// underlying Read/ReadMsgUnix call yields exactly one frame.
	PacketMode
)

// Options configures a Reader/Writer pair.
type Options struct {
	Mode Mode

	// ReadLimit caps the maximum accepted payload size in bytes. Zero means
	// MaxAllocSize (the allocator-wide bound).
	ReadLimit int

	// RetryDelay controls how ErrWouldBlock from the underlying transport
	// is handled:
	//   negative: non-blocking, return ErrWouldBlock immediately
	//   zero: cooperative yield (runtime.Gosched) and retry
	//   positive: sleep for the duration and retry
	RetryDelay time.Duration

	// NativeByteOrder selects the machine's native byte order (via
	// internal/bo) for the header instead of the wire default
	// (little-endian). Only correct when both ends are known to run on the
	// same host, e.g. the "local stream" loopback transport (spec §9); a
	// real network peer must never set this.
	NativeByteOrder bool
}

var defaultOptions = Options{
	Mode:       StreamMode,
	ReadLimit:  0,
	RetryDelay: 0,
}

type Option func(*Options)

func WithMode(m Mode) Option { return func(o *Options) { o.Mode = m } }

func WithReadLimit(limit int) Option { return func(o *Options) { o.ReadLimit = limit } }

func WithRetryDelay(d time.Duration) Option { return func(o *Options) { o.RetryDelay = d } }

// WithNativeByteOrder opts into host-native header byte order; see
// Options.NativeByteOrder.
func WithNativeByteOrder() Option { return func(o *Options) { o.NativeByteOrder = true } }

func (o Options) byteOrder() binary.ByteOrder {
	if o.NativeByteOrder {
		return bo.Native()
	}
	return binary.LittleEndian
}

func (o Options) readLimit() int64 {
	if o.ReadLimit <= 0 {
		return MaxAllocSize
	}
	return int64(o.ReadLimit)
}
