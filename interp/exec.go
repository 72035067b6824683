// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	sitter "github.com/smacker/go-tree-sitter"

	"minibash/expand"
	"minibash/redirect"
	"minibash/tsast"
)

// redirectFailure carries enough context to format the exact diagnostic
// §7 requires: "minibash: cannot open for <input|output>: <path>".
type redirectFailure struct {
	dir  string
	path string
	err  error
}

func (f *redirectFailure) Error() string {
	return fmt.Sprintf("cannot open for %s: %s", f.dir, f.path)
}

// applyPlan opens the files named by plan and returns the final stdin/stdout
// overrides (later entries targeting the same fd win, per §3), plus a
// cleanup that closes every fd this call opened — the parent's copies, per
// §5's fd-ownership rule.
func (r *Runner) applyPlan(plan []redirect.Action) (stdin, stdout *os.File, cleanup func(), err error) {
	var opened []*os.File
	cleanup = func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, act := range plan {
		switch act.Kind {
		case redirect.Input:
			f, oerr := os.OpenFile(act.Path, os.O_RDONLY, 0)
			if oerr != nil {
				cleanup()
				return nil, nil, func() {}, &redirectFailure{dir: "input", path: act.Path, err: oerr}
			}
			opened = append(opened, f)
			stdin = f
		case redirect.Output:
			flag := os.O_WRONLY | os.O_CREATE
			if act.Truncate {
				flag |= os.O_TRUNC
			} else {
				flag |= os.O_APPEND
			}
			f, oerr := os.OpenFile(act.Path, flag, 0666)
			if oerr != nil {
				cleanup()
				return nil, nil, func() {}, &redirectFailure{dir: "output", path: act.Path, err: oerr}
			}
			opened = append(opened, f)
			stdout = f
		}
	}
	return stdin, stdout, cleanup, nil
}

func coalesceFile(primary, fallback *os.File) *os.File {
	if primary != nil {
		return primary
	}
	return fallback
}

func readerOf(f *os.File, fallback io.Reader) io.Reader {
	if f != nil {
		return f
	}
	return fallback
}

func writerOf(f *os.File, fallback io.Writer) io.Writer {
	if f != nil {
		return f
	}
	return fallback
}

// cmdStage is a "command" node that has been started but not yet waited
// on. Splitting start from wait is what lets runPipeline launch every
// stage of a pipeline before it closes a single pipe fd: fusing the two,
// as an earlier version of this file did, left the parent holding every
// downstream stage's write end open for as long as an upstream stage's
// own Wait blocked, which is forever, since that write end is exactly
// what the upstream stage needs closed to see EOF (§4.4.2 step 4).
type cmdStage struct {
	wait    func() int
	cleanup func()
}

// startSimpleCommand is the Process Runner's entry for a "command" node
// (§4.4.1): it opens the command's own redirects, assembles argv, and
// either runs an in-process builtin to completion or forks argv[0] via
// os/exec's Start, returning a wait closure rather than blocking on it.
// extraIn/extraOut are the descriptors an enclosing pipeline or
// redirected_statement has already wired up; nil means "inherit".
func (r *Runner) startSimpleCommand(ctx context.Context, src []byte, cmdNode *sitter.Node, extraIn, extraOut *os.File) (cmdStage, error) {
	plan, err := redirect.Plan(cmdNode, r.Reg, src)
	if err != nil {
		return cmdStage{}, err
	}
	localIn, localOut, cleanup, rerr := r.applyPlan(plan)
	if rerr != nil {
		cleanup()
		return cmdStage{}, rerr
	}

	stdin := coalesceFile(localIn, extraIn)
	stdout := coalesceFile(localOut, extraOut)

	cfg := r.expandConfig(ctx, src)
	argv, aerr := expand.Argv(cmdNode, r.Reg, cfg)
	if aerr != nil {
		cleanup()
		return cmdStage{}, aerr
	}
	if len(argv) == 0 {
		cleanup()
		return cmdStage{wait: func() int { return 1 }}, nil
	}
	if r.XTrace != nil {
		r.XTrace(argv)
	}

	if fn, ok := builtins[argv[0]]; ok {
		// Builtins run to completion right here rather than in a
		// separate wait phase: §4.4.4's builtins never read stdin and
		// write at most one bounded line, so they can't block on a
		// pipe that isn't being drained yet.
		status := fn(r, argv, stdin, stdout)
		return cmdStage{wait: func() int { return status }, cleanup: cleanup}, nil
	}

	// Otherwise fork and exec argv[0] (§4.4.1 steps 3–4). os/exec's
	// Start performs the fork+exec in one step and resolves PATH only
	// when argv[0] has no "/", exactly as specified.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = readerOf(stdin, r.Stdin)
	cmd.Stdout = writerOf(stdout, r.Stdout)
	cmd.Stderr = r.Stderr
	if err := cmd.Start(); err != nil {
		cleanup()
		fmt.Fprintf(r.Stderr, "minibash: %s: %v\n", argv[0], err)
		return cmdStage{wait: func() int { return 127 }}, nil
	}

	return cmdStage{
		wait: func() int {
			r.sigs.Block()
			err := cmd.Wait()
			r.sigs.Unblock()
			return waitErrToStatus(err)
		},
		cleanup: cleanup,
	}, nil
}

// runSimpleCommand runs a single command outside of a pipeline, where
// there is no sibling stage holding a competing copy of a pipe fd, so
// starting and waiting can be fused safely.
func (r *Runner) runSimpleCommand(ctx context.Context, src []byte, cmdNode *sitter.Node, extraIn, extraOut *os.File) int {
	stage, err := r.startSimpleCommand(ctx, src, cmdNode, extraIn, extraOut)
	if err != nil {
		fmt.Fprintf(r.Stderr, "minibash: %v\n", err)
		return 1
	}
	if stage.cleanup != nil {
		defer stage.cleanup()
	}
	return stage.wait()
}

func waitErrToStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal())
			}
			return ws.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return 1
}

// pipelineCommands collects the N "command" children of a pipeline node in
// source order (§4.4.2 step 1).
func pipelineCommands(n *sitter.Node, reg *tsast.Registry) []*sitter.Node {
	var cmds []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if reg.Is(child, tsast.KindCommand) {
			cmds = append(cmds, child)
		}
	}
	return cmds
}

// runPipeline implements §4.4.2: N-1 anonymous pipes, N stages started
// before any pipe fd is closed, parent closes every pipe endpoint, then N
// concurrent waits; last_status comes from the final stage.
func (r *Runner) runPipeline(ctx context.Context, src []byte, n *sitter.Node, extraIn, extraOut *os.File) int {
	cmds := pipelineCommands(n, r.Reg)
	if len(cmds) == 0 {
		return 0
	}
	if len(cmds) == 1 {
		return r.runSimpleCommand(ctx, src, cmds[0], extraIn, extraOut)
	}

	N := len(cmds)
	readers := make([]*os.File, N-1)
	writers := make([]*os.File, N-1)
	for i := 0; i < N-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			for j := 0; j < i; j++ {
				readers[j].Close()
				writers[j].Close()
			}
			fmt.Fprintf(r.Stderr, "minibash: pipe: %v\n", err)
			return 1
		}
		readers[i], writers[i] = pr, pw
	}

	// Every stage is started — a builtin runs to completion, an external
	// command is forked via Start — before a single pipe fd is closed.
	// Closing any earlier would let the parent's own copy of a stage's
	// stdin or stdout disappear while a later stage is still being
	// started against it.
	stages := make([]cmdStage, N)
	for i, cmdNode := range cmds {
		stageIn := extraIn
		if i > 0 {
			stageIn = readers[i-1]
		}
		stageOut := extraOut
		if i < N-1 {
			stageOut = writers[i]
		}
		stage, err := r.startSimpleCommand(ctx, src, cmdNode, stageIn, stageOut)
		if err != nil {
			fmt.Fprintf(r.Stderr, "minibash: %v\n", err)
			stage = cmdStage{wait: func() int { return 1 }}
		}
		stages[i] = stage
	}

	// Now that every stage holds its own reference to its pipe fds (an
	// external command inherited one across fork; a builtin already
	// finished using its), the parent closes every one of its own
	// copies. Holding these open past this point is exactly what leaves
	// a downstream reader stage without an EOF on its stdin, hanging its
	// Wait forever (§4.4.2 step 4, §5 "unclosed write ends hang readers
	// forever").
	for i := 0; i < N-1; i++ {
		readers[i].Close()
		writers[i].Close()
	}

	results := make([]int, N)
	var wg sync.WaitGroup
	wg.Add(N)
	for i := range stages {
		i := i
		go func() {
			defer wg.Done()
			if stages[i].cleanup != nil {
				defer stages[i].cleanup()
			}
			results[i] = stages[i].wait()
		}()
	}
	wg.Wait()

	return results[N-1]
}

// runRedirectedStatement implements §4.4.3: open the statement-level
// redirection plan once in the parent, run the wrapped command or
// pipeline with those fds supplied, then close the parent's copies.
func (r *Runner) runRedirectedStatement(ctx context.Context, src []byte, n *sitter.Node) int {
	plan, err := redirect.Plan(n, r.Reg, src)
	if err != nil {
		fmt.Fprintf(r.Stderr, "minibash: %v\n", err)
		return 1
	}
	stdin, stdout, cleanup, rerr := r.applyPlan(plan)
	defer cleanup()
	if rerr != nil {
		fmt.Fprintf(r.Stderr, "minibash: %v\n", rerr)
		return 1
	}

	inner := innerStatement(n, r.Reg)
	if inner == nil {
		return 0
	}
	switch inner.Type() {
	case tsast.KindPipeline:
		return r.runPipeline(ctx, src, inner, stdin, stdout)
	case tsast.KindCommand:
		return r.runSimpleCommand(ctx, src, inner, stdin, stdout)
	default:
		fmt.Fprintf(r.Stderr, "minibash: unimplemented: redirected %s\n", inner.Type())
		return 1
	}
}

func innerStatement(n *sitter.Node, reg *tsast.Registry) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if reg.Is(child, tsast.KindCommand) || reg.Is(child, tsast.KindPipeline) {
			return child
		}
	}
	return nil
}

// runCommandSubstitution implements §4.2.3: the engine reenters itself
// rather than degrading to /bin/sh (§9 Open Questions, decided), running
// the inner text as a complete script with stdout captured to a buffer.
//
// The nested evaluation runs against a value copy of the Runner, not the
// receiver itself. A pipeline stage runs in its own goroutine (runPipeline
// above), and two stages each expanding a $(...) at the same time would
// otherwise race on the shared Stdout field — and on last_status and the
// exit builtin's fields, since evalStatementSequence mutates all three.
// Copying gives each nested evaluation its own cells; it also makes
// "exit" inside a substitution end only the substitution, which matches
// the subshell-like scoping real shells give command substitution.
func (r *Runner) runCommandSubstitution(ctx context.Context, script string) (string, error) {
	tree, err := tsast.Parse(ctx, r.Reg, []byte(script))
	if err != nil {
		return "", err
	}
	root := tsast.Root(tree)

	sub := *r
	var buf bytes.Buffer
	sub.Stdout = &buf
	sub.exited = false
	sub.exitCode = 0

	sub.evalStatementSequence(ctx, []byte(script), topLevelChildren(root))
	return buf.String(), nil
}

// builtin is the signature every in-process builtin shares (§4.4.4).
type builtin func(r *Runner, argv []string, stdin, stdout *os.File) int

var builtins = map[string]builtin{
	"echo": echoBuiltin,
	"cd":   cdBuiltin,
	"exit": exitBuiltin,
}

// echoBuiltin writes its arguments separated by a single space followed by
// a newline; it recognizes no flags and always yields 0 (§4.4.4).
func echoBuiltin(r *Runner, argv []string, stdin, stdout *os.File) int {
	w := writerOf(stdout, r.Stdout)
	fmt.Fprintln(w, strings.Join(argv[1:], " "))
	return 0
}

// cdBuiltin changes the interpreter's own working directory (SUPPLEMENTED
// FEATURES): it must run in-process, since a subprocess's chdir is never
// visible to the parent shell.
func cdBuiltin(r *Runner, argv []string, stdin, stdout *os.File) int {
	dir := ""
	if len(argv) > 1 {
		dir = argv[1]
	}
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	if dir == "" {
		fmt.Fprintln(r.Stderr, "minibash: cd: HOME not set")
		return 1
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(r.Stderr, "minibash: cd: %v\n", err)
		return 1
	}
	return 0
}

// exitBuiltin ends the interpreter (SUPPLEMENTED FEATURES). The status
// defaults to the current last_status, matching "exit" with no argument in
// the reference implementation.
func exitBuiltin(r *Runner, argv []string, stdin, stdout *os.File) int {
	code := r.lastStatus
	if len(argv) > 1 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			code = n & 0xff
		}
	}
	r.exited = true
	r.exitCode = code
	return code
}
