// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build linux

package interp

import (
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// sigchldSet builds a Sigset_t containing only SIGCHLD. x/sys/unix's
// Sigset_t on Linux is a 1024-bit mask laid out as 16 uint64 words; setting
// bit (sig-1) is the same encoding the kernel's sigsetops use.
func sigchldSet() unix.Sigset_t {
	var set unix.Sigset_t
	bit := uint(syscall.SIGCHLD) - 1
	set.Val[bit/64] |= 1 << (bit % 64)
	return set
}

func lockAndBlockSigchld() {
	runtime.LockOSThread()
	set := sigchldSet()
	unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil)
}

func unblockAndUnlockSigchld() {
	set := sigchldSet()
	unix.PthreadSigmask(unix.SIG_UNBLOCK, &set, nil)
	runtime.UnlockOSThread()
}
