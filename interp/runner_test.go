// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minibash/tsast"
)

func runScript(t *testing.T, script string) (stdout, stderr string, status int) {
	t.Helper()
	reg := tsast.NewRegistry()
	src := []byte(script)
	tree, err := tsast.Parse(context.Background(), reg, src)
	if err != nil {
		t.Fatalf("parse %q: %v", script, err)
	}

	var out, errBuf bytes.Buffer
	r := New(StdIO(strings.NewReader(""), &out, &errBuf))
	r.Reg = reg
	defer r.Close()

	status = r.Run(context.Background(), src, tsast.Root(tree))
	return out.String(), errBuf.String(), status
}

func TestEchoBuiltinWritesArgsSpaceJoined(t *testing.T) {
	out, _, status := runScript(t, "echo one two three")
	if out != "one two three\n" {
		t.Fatalf("stdout = %q, want %q", out, "one two three\n")
	}
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
}

func TestVariableAssignmentThenExpansion(t *testing.T) {
	out, _, _ := runScript(t, "A=hello; echo $A")
	if out != "hello\n" {
		t.Fatalf("stdout = %q, want %q", out, "hello\n")
	}
}

func TestAndOrShortCircuitsOnFailure(t *testing.T) {
	out, _, status := runScript(t, "false && echo should-not-print")
	if out != "" {
		t.Fatalf("stdout = %q, want empty", out)
	}
	if status == 0 {
		t.Fatalf("status = %d, want nonzero (false's exit code)", status)
	}
}

func TestOrRunsRightSideOnFailure(t *testing.T) {
	out, _, status := runScript(t, "false || echo fallback")
	if out != "fallback\n" {
		t.Fatalf("stdout = %q, want %q", out, "fallback\n")
	}
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
}

func TestSemicolonAlwaysRunsBothSides(t *testing.T) {
	out, _, _ := runScript(t, "echo first; echo second")
	if out != "first\nsecond\n" {
		t.Fatalf("stdout = %q, want %q", out, "first\nsecond\n")
	}
}

func TestDollarQuestionReflectsLastStatus(t *testing.T) {
	out, _, _ := runScript(t, "false; echo $?")
	if strings.TrimSpace(out) == "0" {
		t.Fatalf("stdout = %q, want a nonzero status echoed", out)
	}
}

func TestExitBuiltinStopsEvaluation(t *testing.T) {
	reg := tsast.NewRegistry()
	src := []byte("echo before; exit 3; echo after")
	tree, err := tsast.Parse(context.Background(), reg, src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	r := New(StdIO(strings.NewReader(""), &out, &out))
	r.Reg = reg
	defer r.Close()

	r.Run(context.Background(), src, tsast.Root(tree))
	if !r.Exited() {
		t.Fatal("expected Exited() to be true after the exit builtin")
	}
	if r.ExitCode() != 3 {
		t.Fatalf("ExitCode() = %d, want 3", r.ExitCode())
	}
	if strings.Contains(out.String(), "after") {
		t.Fatalf("stdout = %q, should not contain the statement after exit", out.String())
	}
}

func TestCdBuiltinChangesWorkingDirectory(t *testing.T) {
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(orig)

	dir := t.TempDir()
	_, _, status := runScript(t, "cd "+dir)
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	got, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	gotResolved, err := filepath.EvalSymlinks(got)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if gotResolved != want {
		t.Fatalf("Getwd() = %q, want %q", gotResolved, want)
	}
}

func TestPipelineStatusComesFromLastStage(t *testing.T) {
	out, _, status := runScript(t, "echo hello | cat")
	if out != "hello\n" {
		t.Fatalf("stdout = %q, want %q", out, "hello\n")
	}
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
}

func TestOutputRedirectionWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	_, _, status := runScript(t, "echo redirected > "+path)
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "redirected\n" {
		t.Fatalf("file contents = %q, want %q", got, "redirected\n")
	}
}

func TestCommandSubstitutionCapturesStdout(t *testing.T) {
	out, _, _ := runScript(t, `echo $(echo inner)`)
	if out != "inner\n" {
		t.Fatalf("stdout = %q, want %q", out, "inner\n")
	}
}

func TestCommandSubstitutionInsideDoubleQuotes(t *testing.T) {
	out, _, _ := runScript(t, `echo "before-$(echo inner)-after"`)
	if out != "before-inner-after\n" {
		t.Fatalf("stdout = %q, want %q", out, "before-inner-after\n")
	}
}
