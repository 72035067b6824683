// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Command minibash is the CLI front end described in §6.1 of
// SPEC_FULL.md. The prompt/readline surface and the build system are out
// of scope for the interpreter itself (§1); this file is the thin wiring
// around the interp.Runner that the spec's command-line surface names.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"minibash/interp"
	"minibash/tsast"
)

var (
	command = flag.String("c", "", "execute the given script string and exit")
	xtrace  = flag.Bool("x", false, "print each executed command's argv to stderr")
	reg     = tsast.NewRegistry()
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stdout, "usage: minibash [-h] [-c command] [-x] [script]")
	}
	flag.Parse()

	r := interp.New()
	defer r.Close()
	if *xtrace {
		r.XTrace = func(argv []string) {
			fmt.Fprintf(os.Stderr, "+ %s\n", strings.Join(argv, " "))
		}
	}

	os.Exit(run(r))
}

func run(r *interp.Runner) int {
	if *command != "" {
		return evalSource(r, []byte(*command))
	}

	args := flag.Args()
	if len(args) > 0 {
		src, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "minibash: %v\n", err)
			return 1
		}
		return evalSource(r, src)
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return runInteractive(r)
	}

	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minibash: %v\n", err)
		return 1
	}
	return evalSource(r, src)
}

// evalSource parses the whole buffer and evaluates it top to bottom,
// matching the "no argument, stdin not a terminal: read to EOF, evaluate"
// and "script argument: execute the file" paths of §6.1.
func evalSource(r *interp.Runner, src []byte) int {
	ctx := context.Background()
	tree, err := tsast.Parse(ctx, reg, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minibash: %v\n", err)
		return 1
	}
	status := r.Run(ctx, src, tsast.Root(tree))
	if r.Exited() {
		return r.ExitCode()
	}
	return status
}

// runInteractive implements the "minibash> " prompt loop (§6.1), reading
// lines through chzyer/readline for history and basic editing instead of a
// hand-rolled raw-terminal reader, and recovering from an unterminated
// quote by reading continuation lines (SUPPLEMENTED FEATURES).
func runInteractive(r *interp.Runner) int {
	rl, err := readline.New("minibash> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "minibash: %v\n", err)
		return 1
	}
	defer rl.Close()

	ctx := context.Background()
	var pending strings.Builder
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}
		pending.WriteString(line)
		pending.WriteString("\n")

		if unterminatedQuote(pending.String()) {
			rl.SetPrompt("> ")
			continue
		}
		rl.SetPrompt("minibash> ")

		src := []byte(pending.String())
		pending.Reset()

		tree, perr := tsast.Parse(ctx, reg, src)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "minibash: %v\n", perr)
			continue
		}
		r.Run(ctx, src, tsast.Root(tree))
		if r.Exited() {
			return r.ExitCode()
		}
	}
	if r.Exited() {
		return r.ExitCode()
	}
	return r.LastStatus()
}

// unterminatedQuote reports whether buf has an odd number of unescaped
// quote characters of either kind still open, the same heuristic the
// reference implementation's interactive loop uses to decide whether to
// keep reading continuation lines (SUPPLEMENTED FEATURES).
func unterminatedQuote(buf string) bool {
	var single, double bool
	escaped := false
	for _, r := range buf {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if !single {
				escaped = true
			}
		case '\'':
			if !double {
				single = !single
			}
		case '"':
			if !single {
				double = !double
			}
		}
	}
	return single || double
}
