//go:build !windows

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ioprpc

import "syscall"

func closeFD(fd int) {
	_ = syscall.Close(fd)
}
