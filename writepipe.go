// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import (
	"net"

	"github.com/iop-rpc/ioprpc/internal/wire"
)

// writeLoop is the channel's dedicated writer goroutine. It owns the
// transport's write side exclusively, so no locking is needed around
// ch.writer/ch.conn writes themselves (spec §9's goroutine-per-channel
// adaptation of the original's single-threaded event loop).
func (ch *Channel) writeLoop() {
	defer ch.wg.Done()
	for {
		batch, ok := ch.out.dequeueBatch()
		if !ok {
			return
		}
		var err error
		switch ch.kind {
		case transportPacket:
			err = ch.writeDatagramBatch(batch)
		default:
			err = ch.writeStreamBatch(batch)
		}
		if err != nil {
			ch.log("write error, disconnecting", "err", err)
			ch.Disconnect()
			return
		}
		ch.activity.touch(ch)
	}
}

// writeStreamBatch coalesces every frame in batch into a single
// net.Buffers.WriteTo call, giving the kernel one writev instead of one
// write(2) per queued message (spec §4.4). Messages whose body is too
// large, or that carry a descriptor (disallowed on stream transports),
// are aborted individually rather than failing the whole batch.
func (ch *Channel) writeStreamBatch(batch []*Message) error {
	var bufs net.Buffers
	var survivors []*Message
	for _, msg := range batch {
		if msg.FD >= 0 {
			msg.finish(StatusAbort, nil, ErrStreamFDDisallowed)
			continue
		}
		body := buildFrameBody(msg)
		if len(body) > wire.MaxFrameSize-wire.HeaderLen {
			msg.finish(StatusAbort, nil, wire.ErrTooLong)
			continue
		}
		h := frameHeader(msg, body).Encode()
		bufs = append(bufs, h[:])
		if len(body) > 0 {
			bufs = append(bufs, body)
		}
		survivors = append(survivors, msg)
	}
	if len(bufs) == 0 {
		return nil
	}
	_, err := bufs.WriteTo(ch.conn)
	if err != nil {
		// Every survivor in this batch shares one writev call; on failure
		// none of them are known to have landed, so all are aborted. A
		// partially-sent stream is unrecoverable anyway once the transport
		// is about to be torn down.
		for _, msg := range survivors {
			if msg.Cmd != streamControlCmd {
				if taken := ch.slots.take(msg.Slot); taken != nil {
					taken.finish(StatusAbort, nil, err)
				}
			}
		}
	}
	return err
}

// writeDatagramBatch sends each message as its own datagram/seqpacket
// frame, with up to one file descriptor attached via SCM_RIGHTS (spec
// §4.4, §6).
func (ch *Channel) writeDatagramBatch(batch []*Message) error {
	for _, msg := range batch {
		body := buildFrameBody(msg)
		if len(body) > wire.MaxFrameSize-wire.HeaderLen {
			msg.finish(StatusAbort, nil, wire.ErrTooLong)
			continue
		}
		h := frameHeader(msg, body)

		var err error
		if ch.unixConn != nil {
			var fds []int
			if msg.FD >= 0 {
				fds = []int{msg.FD}
			}
			err = wire.WriteFrameFDs(ch.unixConn, h, body, fds)
		} else {
			_, err = ch.writer.WriteFrame(h, body)
		}
		if err != nil {
			if msg.Cmd != streamControlCmd {
				if taken := ch.slots.take(msg.Slot); taken != nil {
					taken.finish(StatusAbort, nil, err)
				}
			}
			return err
		}
	}
	return nil
}
