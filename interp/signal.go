// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// sigchldCoordinator is the Signal Coordinator (C6). This engine never
// backgrounds a job (§9 Open Questions: "&" sequences, it does not fork
// into a job table), so every child it starts is always reaped by the
// same stage's own os/exec Wait in exec.go — there is never an orphan
// left for a handler to clean up. A background handler that reaped with
// Wait4(-1) regardless would race that specific-pid Wait for the exact
// same child: whichever call won the race would turn the other's exit
// status into ECHILD. So the handler below only drains SIGCHLD to keep
// it off the process's default disposition; it does not reap. Block and
// Unblock still bracket every foreground wait, documenting the §4.6
// contract even though there is no longer a competing reaper to guard
// against.
type sigchldCoordinator struct {
	ch   chan os.Signal
	done chan struct{}

	mu      sync.Mutex
	blocked bool
}

func newSigchldCoordinator() *sigchldCoordinator {
	return &sigchldCoordinator{
		ch:   make(chan os.Signal, 32),
		done: make(chan struct{}),
	}
}

// Start installs the handler. Go's signal delivery runs on a dedicated
// runtime thread before a Go channel send ever reaches user code, so unlike
// the C original there is no true async-signal-safety constraint left to
// honor in the handler goroutine itself — only the ordinary data-race
// discipline of not touching shared state without synchronization (§4.6).
func (s *sigchldCoordinator) Start() {
	signal.Notify(s.ch, syscall.SIGCHLD)
	go s.loop()
}

// Stop removes the handler and terminates the draining goroutine.
func (s *sigchldCoordinator) Stop() {
	signal.Stop(s.ch)
	close(s.done)
}

func (s *sigchldCoordinator) loop() {
	for {
		select {
		case <-s.ch:
			// Deliberately nothing: the child this signal is for is
			// always reaped by the foreground Wait of the stage that
			// started it.
		case <-s.done:
			return
		}
	}
}

// Block blocks SIGCHLD on the calling goroutine's current OS thread for the
// duration of a foreground wait. It locks the goroutine to its OS thread,
// since POSIX signal masks are per-thread and Go would otherwise be free to
// migrate the goroutine mid-wait; Unblock releases the lock.
func (s *sigchldCoordinator) Block() {
	lockAndBlockSigchld()
	s.mu.Lock()
	s.blocked = true
	s.mu.Unlock()
}

// Unblock reverses Block. Must be called from the same goroutine.
func (s *sigchldCoordinator) Unblock() {
	unblockAndUnlockSigchld()
	s.mu.Lock()
	s.blocked = false
	s.mu.Unlock()
}

// IsBlocked exposes the coordinator's bookkeeping for assertions, the
// Go-idiomatic stand-in for the reference implementation's is_blocked
// predicate (§4.6).
func (s *sigchldCoordinator) IsBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}
