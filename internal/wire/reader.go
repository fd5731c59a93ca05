// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"runtime"
	"time"
)

// Reader parses frames incrementally off an io.Reader in StreamMode, or
// treats one underlying Read as one frame in PacketMode.
//
// It keeps per-frame parse state across calls so a caller driven by a
// non-blocking transport can retry ReadFrame after ErrWouldBlock without
// losing already-consumed header bytes, exactly as the teacher's framer
// keeps fr.offset/fr.length across readStream calls.
type Reader struct {
	rd   io.Reader
	opts Options

	header [HeaderLen]byte
	hoff   int
	cur    Header
	parsed bool // header fully decoded; Length known, payload not yet (fully) read
	poff   int  // payload bytes already delivered into the caller's buffer
}

func NewReader(r io.Reader, opts ...Option) *Reader {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Reader{rd: r, opts: o}
}

func (r *Reader) readOnce(p []byte) (int, error) {
	for {
		n, err := r.rd.Read(p)
		if len(p) != 0 && n == 0 && err == nil {
			return 0, io.ErrNoProgress
		}
		if n > 0 || err != ErrWouldBlock {
			return n, err
		}
		if !r.waitOnceOnWouldBlock() {
			return n, err
		}
	}
}

func (r *Reader) waitOnceOnWouldBlock() bool {
	switch {
	case r.opts.RetryDelay < 0:
		return false
	case r.opts.RetryDelay == 0:
		runtime.Gosched()
		return true
	default:
		time.Sleep(r.opts.RetryDelay)
		return true
	}
}

// ReadFrame reads one frame. buf receives the payload; pass nil to drive
// header parsing only. In StreamMode, once the header is known, if len(buf)
// is smaller than the payload length, ReadFrame returns (header, 0,
// io.ErrShortBuffer) so the caller can size a buffer to header.Length and
// call again. In PacketMode a datagram body longer than buf is reported as
// ErrTooLong, and that datagram is not delivered.
func (r *Reader) ReadFrame(buf []byte) (Header, int, error) {
	if r.rd == nil {
		return Header{}, 0, ErrInvalidArgument
	}
	if r.opts.Mode == PacketMode {
		return r.readPacketFrame(buf)
	}
	return r.readStreamFrame(buf)
}

func (r *Reader) readPacketFrame(buf []byte) (Header, int, error) {
	// One underlying Read == one datagram == one frame.
	scratch := make([]byte, HeaderLen+len(buf)+1)
	n, err := r.readOnce(scratch)
	if n < HeaderLen {
		if err != nil {
			return Header{}, 0, err
		}
		return Header{}, 0, ErrHeaderInvalid
	}
	h, derr := DecodeHeaderOrder(scratch[:HeaderLen], r.opts.byteOrder())
	if derr != nil {
		return Header{}, 0, derr
	}
	body := scratch[HeaderLen:n]
	if int64(len(body)) > r.opts.readLimit() {
		return h, 0, ErrTooLong
	}
	if len(body) > len(buf) {
		return h, 0, ErrTooLong
	}
	copy(buf, body)
	if err == io.EOF && len(body) > 0 {
		// Final datagram delivered together with EOF: treat as a complete frame;
		// the caller will observe EOF on the next ReadFrame call.
		return h, len(body), nil
	}
	return h, len(body), err
}

func (r *Reader) readStreamFrame(buf []byte) (Header, int, error) {
	for r.hoff < HeaderLen {
		n, err := r.readOnce(r.header[r.hoff:HeaderLen])
		r.hoff += n
		if err != nil {
			if err == io.EOF {
				if r.hoff == 0 {
					return Header{}, 0, io.EOF
				}
				return Header{}, 0, io.ErrUnexpectedEOF
			}
			return Header{}, 0, err
		}
	}
	if !r.parsed {
		h, derr := DecodeHeaderOrder(r.header[:], r.opts.byteOrder())
		if derr != nil {
			return Header{}, 0, derr
		}
		if int64(h.Length) > r.opts.readLimit() {
			return h, 0, ErrTooLong
		}
		r.cur = h
		r.parsed = true
		r.poff = 0
	}

	need := int(r.cur.Length)
	if need > len(buf) {
		return r.cur, 0, io.ErrShortBuffer
	}

	for r.poff < need {
		n, err := r.readOnce(buf[r.poff:need])
		r.poff += n
		if err != nil {
			if err == io.EOF {
				return r.cur, r.poff, io.ErrUnexpectedEOF
			}
			return r.cur, r.poff, err
		}
	}

	h := r.cur
	r.hoff, r.parsed, r.poff = 0, false, 0
	return h, need, nil
}
