// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build !linux

package interp

// Non-Linux unix platforms (darwin, the BSDs) lay out x/sys/unix's
// Sigset_t differently; rather than special-case each one, the
// coordinator degrades to tracking its blocked/unblocked bookkeeping
// without touching the real signal mask. Only the "genuinely block the
// OS signal during a foreground wait" half of §4.6 is unavailable here, a
// narrower gap than on Linux where it is exact.
func lockAndBlockSigchld()     {}
func unblockAndUnlockSigchld() {}
