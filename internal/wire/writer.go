// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"runtime"
	"time"
)

// Writer writes single frames to an io.Writer, honoring short-write and
// ErrWouldBlock retry semantics. Coalescing several frames into one writev
// is done one level up (the channel's write pipeline builds a net.Buffers
// directly from Header.Encode() + payload slices); Writer exists for the
// simple one-frame-at-a-time case (datagram sends, the local-stream
// fallback, and tests).
type Writer struct {
	wr   io.Writer
	opts Options

	header [HeaderLen]byte
	hoff   int
	length int
	poff   int
}

func NewWriter(w io.Writer, opts ...Option) *Writer {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Writer{wr: w, opts: o}
}

func (w *Writer) writeOnce(p []byte) (int, error) {
	for {
		n, err := w.wr.Write(p)
		if len(p) != 0 && n == 0 && err == nil {
			return 0, io.ErrShortWrite
		}
		if n > 0 || err != ErrWouldBlock {
			return n, err
		}
		if !w.waitOnceOnWouldBlock() {
			return n, err
		}
	}
}

func (w *Writer) waitOnceOnWouldBlock() bool {
	switch {
	case w.opts.RetryDelay < 0:
		return false
	case w.opts.RetryDelay == 0:
		runtime.Gosched()
		return true
	default:
		time.Sleep(w.opts.RetryDelay)
		return true
	}
}

// WriteFrame writes h's header followed by payload. It is safe to retry
// after ErrWouldBlock/ErrMore with the exact same (h, payload) pair; the
// writer remembers how much of the current frame already landed.
func (w *Writer) WriteFrame(h Header, payload []byte) (int, error) {
	if w.wr == nil {
		return 0, ErrInvalidArgument
	}
	if int(h.Length) != len(payload) {
		return 0, ErrInvalidArgument
	}
	if len(payload) > MaxFrameSize {
		return 0, ErrTooLong
	}

	if w.hoff == 0 && w.poff == 0 {
		w.header = h.EncodeOrder(w.opts.byteOrder())
		w.length = len(payload)
	}

	for w.hoff < HeaderLen {
		n, err := w.writeOnce(w.header[w.hoff:HeaderLen])
		w.hoff += n
		if err != nil {
			return 0, err
		}
	}

	n := 0
	for w.poff < w.length {
		wn, err := w.writeOnce(payload[w.poff:])
		w.poff += wn
		n += wn
		if err != nil {
			return n, err
		}
	}

	w.hoff, w.poff, w.length = 0, 0, 0
	return n, nil
}
