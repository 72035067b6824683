// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	sitter "github.com/smacker/go-tree-sitter"

	"minibash/tsast"
)

type mapEnv map[string]string

func (m mapEnv) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// findFirst walks n depth-first for the first descendant of the given
// kind, including n itself. Good enough for these single-node fixtures.
func findFirst(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == kind {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := findFirst(n.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}

func parseScript(t *testing.T, script string) (*tsast.Registry, []byte, *sitter.Node) {
	t.Helper()
	reg := tsast.NewRegistry()
	src := []byte(script)
	tree, err := tsast.Parse(context.Background(), reg, src)
	if err != nil {
		t.Fatalf("parse %q: %v", script, err)
	}
	return reg, src, tsast.Root(tree)
}

func TestWordExpansionIsVerbatimSlice(t *testing.T) {
	reg, src, root := parseScript(t, "echo hello")
	n := findFirst(root, tsast.KindWord)
	if n == nil {
		t.Fatal("no word node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "hello" && got != "echo" {
		t.Fatalf("Word(%q) = %q, want the literal source slice", tsast.Text(n, src), got)
	}
}

func TestRawStringStripsQuotes(t *testing.T) {
	reg, src, root := parseScript(t, "echo 'hi there'")
	n := findFirst(root, tsast.KindRawString)
	if n == nil {
		t.Fatal("no raw_string node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "hi there" {
		t.Fatalf("Word(raw_string) = %q, want %q", got, "hi there")
	}
}

func TestSimpleExpansionReadsEnv(t *testing.T) {
	reg, src, root := parseScript(t, `echo $A`)
	n := findFirst(root, tsast.KindSimpleExpansion)
	if n == nil {
		t.Fatal("no simple_expansion node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg, Env: mapEnv{"A": "one"}})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "one" {
		t.Fatalf("Word($A) = %q, want %q", got, "one")
	}
}

func TestSimpleExpansionUnsetIsEmpty(t *testing.T) {
	reg, src, root := parseScript(t, `echo $UNSET_VAR`)
	n := findFirst(root, tsast.KindSimpleExpansion)
	if n == nil {
		t.Fatal("no simple_expansion node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg, Env: mapEnv{}})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "" {
		t.Fatalf("Word($UNSET_VAR) = %q, want empty string", got)
	}
}

func TestDollarQuestionReadsLastStatus(t *testing.T) {
	reg, src, root := parseScript(t, `echo $?`)
	n := findFirst(root, tsast.KindSimpleExpansion)
	if n == nil {
		t.Fatal("no simple_expansion node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg, LastStatus: 7})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "7" {
		t.Fatalf("Word($?) = %q, want %q", got, "7")
	}
}

func TestDoubleQuotedConcatenatesParts(t *testing.T) {
	reg, src, root := parseScript(t, `echo "$A-$B"`)
	n := findFirst(root, tsast.KindString)
	if n == nil {
		t.Fatal("no string node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg, Env: mapEnv{"A": "one", "B": "two"}})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "one-two" {
		t.Fatalf("Word(string) = %q, want %q", got, "one-two")
	}
}

func TestCommandSubstitutionStripsTrailingNewlines(t *testing.T) {
	reg, src, root := parseScript(t, "echo $(inner)")
	n := findFirst(root, tsast.KindCommandSubstitution)
	if n == nil {
		t.Fatal("no command_substitution node found")
	}
	cfg := &Config{
		Src: src,
		Reg: reg,
		CmdSubst: func(script string) (string, error) {
			if script != "inner" {
				t.Fatalf("CmdSubst got %q, want %q", script, "inner")
			}
			return "x\n\n\n", nil
		},
	}
	got, err := Word(n, cfg)
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "x" {
		t.Fatalf("Word($(...)) = %q, want %q", got, "x")
	}
}

func TestEmptyArgumentIsPreserved(t *testing.T) {
	reg, src, root := parseScript(t, `echo ""`)
	n := findFirst(root, tsast.KindString)
	if n == nil {
		t.Fatal("no string node found")
	}
	got, err := Word(n, &Config{Src: src, Reg: reg})
	if err != nil {
		t.Fatalf("Word: %v", err)
	}
	if got != "" {
		t.Fatalf("Word(\"\") = %q, want empty string", got)
	}
}

func TestArgvAssemblySkipsRedirectsAndAssignments(t *testing.T) {
	reg, src, root := parseScript(t, `A=1 echo one "" $B > out.txt`)
	cmd := findFirst(root, tsast.KindCommand)
	if cmd == nil {
		t.Fatal("no command node found")
	}
	got, err := Argv(cmd, reg, &Config{Src: src, Reg: reg, Env: mapEnv{"B": "two"}})
	if err != nil {
		t.Fatalf("Argv: %v", err)
	}
	want := []string{"echo", "one", "", "two"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Argv() mismatch (-want +got):\n%s", diff)
	}
}
