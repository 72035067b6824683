// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package interp is the Process Runner (C4), Statement Evaluator (C5), and
// Signal Coordinator (C6). It walks a tree-sitter concrete syntax tree
// produced by the tsast package and turns it into observable process
// behavior: forking/exec'ing external commands, wiring pipes and
// redirections, and maintaining last_status. See §4.4–§4.6 of
// SPEC_FULL.md.
package interp

import (
	"context"
	"io"
	"os"

	sitter "github.com/smacker/go-tree-sitter"

	"minibash/expand"
	"minibash/tsast"
)

// Runner interprets one script buffer. It is not safe for concurrent use;
// the engine is single-threaded by design (§5). Build one with New.
type Runner struct {
	Reg *tsast.Registry

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Env environ

	// lastStatus is the single shell status cell described in §3. It is a
	// Runner field rather than a package-level global so that nested
	// evaluations (command substitution, §4.2.3) and the top-level REPL
	// loop each carry their own explicit context, per §9's "avoid mutable
	// globals" design note.
	lastStatus int
	exited     bool
	exitCode   int

	sigs *sigchldCoordinator

	// XTrace, when non-nil, receives one line per executed simple command
	// (the ambient "-x" debug facility from SPEC_FULL §6.1). It has no
	// bearing on last_status or stdout/stderr.
	XTrace func(argv []string)
}

// RunnerOption configures a Runner, mirroring the functional-options style
// used throughout this codebase's process-execution layer.
type RunnerOption func(*Runner)

// StdIO sets the three standard streams. A nil argument leaves that stream
// at the default New sets (os.Stdin, os.Stdout or os.Stderr).
func StdIO(in io.Reader, out, errw io.Writer) RunnerOption {
	return func(r *Runner) {
		if in != nil {
			r.Stdin = in
		}
		if out != nil {
			r.Stdout = out
		}
		if errw != nil {
			r.Stderr = errw
		}
	}
}

// New builds a Runner with the ambient environment and stdio, applying any
// options on top.
func New(opts ...RunnerOption) *Runner {
	r := &Runner{
		Reg:    tsast.NewRegistry(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		sigs:   newSigchldCoordinator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sigs.Start()
	return r
}

// Close stops the Signal Coordinator's background goroutine. Callers that
// build a Runner for the lifetime of a process do not need to call this;
// it exists for tests and for a REPL that wants to tear a Runner down.
func (r *Runner) Close() { r.sigs.Stop() }

// LastStatus returns the shell status cell (§3).
func (r *Runner) LastStatus() int { return r.lastStatus }

// Exited reports whether the "exit" builtin (SUPPLEMENTED FEATURES) has
// ended this Runner; ExitCode is only meaningful once Exited is true.
func (r *Runner) Exited() bool  { return r.exited }
func (r *Runner) ExitCode() int { return r.exitCode }

// Run parses nothing itself (parsing is out of scope, §1): it walks the
// already-parsed root node — typically a "program" node from tsast.Parse —
// evaluating each top-level statement in source order (§5, "statements are
// evaluated in source order"). ctx is checked for cancellation between
// statements, and each external command is started with
// exec.CommandContext, so a cancelled ctx also kills a running child.
func (r *Runner) Run(ctx context.Context, src []byte, root *sitter.Node) int {
	r.evalStatementSequence(ctx, src, topLevelChildren(root))
	return r.lastStatus
}

func topLevelChildren(root *sitter.Node) []*sitter.Node {
	if root == nil {
		return nil
	}
	nodes := make([]*sitter.Node, 0, root.NamedChildCount())
	for i := 0; i < int(root.NamedChildCount()); i++ {
		nodes = append(nodes, root.NamedChild(i))
	}
	return nodes
}

// expandConfig builds the expand.Config a single expansion needs, capturing
// the Runner's current last_status and environment and wiring command
// substitution back into this Runner (§4.2.3: the engine reenters itself).
func (r *Runner) expandConfig(ctx context.Context, src []byte) *expand.Config {
	return &expand.Config{
		Src:        src,
		Reg:        r.Reg,
		Env:        r.Env,
		LastStatus: r.lastStatus,
		CmdSubst: func(script string) (string, error) {
			return r.runCommandSubstitution(ctx, script)
		},
	}
}
