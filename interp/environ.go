// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import "os"

// environ is the ambient environment described in §6.3: no shell-local
// variable table, reads and writes go straight through to the OS's
// get/set-env interface. It satisfies expand.Environ for the Word Expander.
type environ struct{}

func (environ) Get(name string) (string, bool) { return os.LookupEnv(name) }

// Set mutates the ambient environment in the parent process (§3,
// "Environment... mutated only by variable assignment in the parent").
// Child processes inherit a copy via os/exec's default environment
// passthrough; their own mutations are never visible back here.
func (environ) Set(name, value string) error { return os.Setenv(name, value) }
