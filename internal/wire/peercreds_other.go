//go:build !linux && !darwin

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"net"
)

var errPeerCredsUnsupported = errors.New("wire: peer credentials not supported on this platform")

// GetPeerCredentials is unsupported outside Linux/Darwin; spec §4.9 treats
// absence of credential support as "no credentials available", not fatal.
func GetPeerCredentials(conn *net.UnixConn) (PeerCredentials, error) {
	return PeerCredentials{}, errPeerCredsUnsupported
}
