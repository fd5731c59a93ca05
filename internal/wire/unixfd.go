//go:build !windows

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"net"

	"golang.org/x/sys/unix"
)

// MaxAncillaryFDs is the per-datagram ceiling on SCM_RIGHTS file
// descriptors (spec §4.4: "up to 32 file descriptors per send").
const MaxAncillaryFDs = 32

// WriteFrameFDs sends one frame on a unix datagram/seqpacket socket with
// up to MaxAncillaryFDs file descriptors attached as SCM_RIGHTS ancillary
// data, in the same datagram as the frame (spec §6: "one per HAS_FD flag,
// in the same datagram as their frame for seqpacket").
func WriteFrameFDs(conn *net.UnixConn, h Header, payload []byte, fds []int) error {
	if len(payload) > MaxFrameSize-HeaderLen {
		return ErrTooLong
	}
	if len(fds) > MaxAncillaryFDs {
		return ErrTooLong
	}
	buf := make([]byte, HeaderLen+len(payload))
	hdr := h.Encode()
	copy(buf, hdr[:])
	copy(buf[HeaderLen:], payload)

	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	_, _, err := conn.WriteMsgUnix(buf, oob, nil)
	return err
}

// ReadFrameFDs reads one frame from a unix datagram/seqpacket socket,
// returning any file descriptors carried as SCM_RIGHTS ancillary data.
// Descriptors beyond HasFD's single-slot contract are the caller's
// responsibility to close if unused (spec §4.5, §5: unretrieved FDs are
// closed by the channel at end of frame processing).
func ReadFrameFDs(conn *net.UnixConn, buf []byte) (Header, int, []int, error) {
	oob := make([]byte, unix.CmsgSpace(MaxAncillaryFDs*4))
	scratch := make([]byte, HeaderLen+len(buf))
	n, oobn, _, _, err := conn.ReadMsgUnix(scratch, oob)
	if n < HeaderLen {
		if err != nil {
			return Header{}, 0, nil, err
		}
		return Header{}, 0, nil, ErrHeaderInvalid
	}
	h, derr := DecodeHeader(scratch[:HeaderLen])
	if derr != nil {
		return Header{}, 0, nil, derr
	}
	body := scratch[HeaderLen:n]
	if len(body) > len(buf) {
		return h, 0, nil, ErrTooLong
	}
	copy(buf, body)

	var fds []int
	if oobn > 0 {
		cmsgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
		if perr == nil {
			for _, cmsg := range cmsgs {
				rights, rerr := unix.ParseUnixRights(&cmsg)
				if rerr == nil {
					fds = append(fds, rights...)
				}
			}
		}
	}
	return h, len(body), fds, err
}

// PeerCredentials captures SO_PEERCRED (Linux) / LOCAL_PEERCRED (BSD/Apple)
// for a just-accepted unix socket, per spec §4.9.
type PeerCredentials struct {
	UID int
	GID int
	PID int
}
