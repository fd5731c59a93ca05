//go:build windows

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"net"
)

// MaxAncillaryFDs is unused on Windows; kept for API symmetry.
const MaxAncillaryFDs = 32

var errFDPassingUnsupported = errors.New("wire: ancillary fd passing not supported on this platform")

func WriteFrameFDs(conn *net.UnixConn, h Header, payload []byte, fds []int) error {
	return errFDPassingUnsupported
}

func ReadFrameFDs(conn *net.UnixConn, buf []byte) (Header, int, []int, error) {
	return Header{}, 0, nil, errFDPassingUnsupported
}
