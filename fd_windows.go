//go:build windows

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

func closeFD(fd int) {
	// File descriptor passing is a unix-socket-only feature (spec §6);
	// there is nothing to close on Windows.
}
