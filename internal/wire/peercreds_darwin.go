//go:build darwin

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import "net"
import "golang.org/x/sys/unix"

// GetPeerCredentials reads LOCAL_PEERCRED off a just-accepted unix socket.
func GetPeerCredentials(conn *net.UnixConn) (PeerCredentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return PeerCredentials{}, err
	}
	var xucred *unix.Xucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		xucred, sockErr = unix.GetsockoptXucred(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	})
	if err != nil {
		return PeerCredentials{}, err
	}
	if sockErr != nil {
		return PeerCredentials{}, sockErr
	}
	pid, _ := unixPeerPID(raw)
	return PeerCredentials{UID: int(xucred.Uid), GID: int(xucred.Groups[0]), PID: pid}, nil
}

// unixPeerPID best-effort resolves LOCAL_PEERPID; absence is not fatal.
func unixPeerPID(raw interface{ Control(func(uintptr)) error }) (int, error) {
	var pid int
	var sockErr error
	err := raw.Control(func(fd uintptr) {
		v, e := unix.GetsockoptInt(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERPID)
		pid, sockErr = v, e
	})
	if err != nil {
		return 0, err
	}
	return pid, sockErr
}
