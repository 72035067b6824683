// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package expand is the Word Expander (C2): it turns an argument-like AST
// node into a concrete byte string, and assembles the argv of a command
// node. See §4.2 of SPEC_FULL.md.
//
// There is no word splitting and no pathname expansion anywhere in this
// package, inside double quotes or on any other expansion result (§4.2.2).
package expand

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"minibash/tsast"
)

// Environ is the read side of the ambient environment (§6.3). The real
// Runner backs this with os.LookupEnv; tests back it with a map.
type Environ interface {
	Get(name string) (value string, ok bool)
}

// OSEnviron reads the ambient process environment directly.
type OSEnviron struct{}

func (OSEnviron) Get(name string) (string, bool) { return os.LookupEnv(name) }

// CmdSubstFunc runs the inner text of a $(...) node as a complete script of
// this shell and returns its captured standard output. It is supplied by
// the Statement Evaluator (C5) so that this package never depends on the
// evaluator — expand must stay reentrant-safe without importing the thing
// that reenters it (§9, "nested shell for $(...)").
type CmdSubstFunc func(script string) (string, error)

// Config carries everything a single expansion call needs, in place of the
// mutable globals the reference implementation threads through every call
// (§9, "Global last_status and input pointer").
type Config struct {
	Src        []byte
	Reg        *tsast.Registry
	Env        Environ
	LastStatus int
	CmdSubst   CmdSubstFunc
}

// Word expands a single argument-like node per §4.2.1. It never returns a
// null result (Go has no such thing); on failure it returns the empty
// string and a non-nil error, which is this module's rendition of the
// spec's OOM out-parameter (§4.2.1, "on allocation failure... signals OOM").
func Word(n *sitter.Node, c *Config) (string, error) {
	if n == nil {
		return "", nil
	}
	switch n.Type() {
	case tsast.KindWord:
		return tsast.Text(n, c.Src), nil

	case tsast.KindRawString:
		s := tsast.Text(n, c.Src)
		if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
			return s[1 : len(s)-1], nil
		}
		return s, nil

	case tsast.KindString:
		return expandDoubleQuoted(n, c)

	case tsast.KindSimpleExpansion:
		return expandSimple(n, c)

	case tsast.KindExpansion:
		return expandBraced(n, c)

	case tsast.KindCommandSubstitution:
		return expandCommandSubstitution(n, c)

	default:
		// Forward-compatible fallback: treat anything unrecognized as
		// literal text rather than failing the whole statement.
		return tsast.Text(n, c.Src), nil
	}
}

// expandDoubleQuoted renders a "string" node per §4.2.2.
func expandDoubleQuoted(n *sitter.Node, c *Config) (string, error) {
	if n.NamedChildCount() == 0 {
		s := tsast.Text(n, c.Src)
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			return s[1 : len(s)-1], nil
		}
		return s, nil
	}

	// Literal text between two expansions (the "-" in "$A-$B") is not
	// always a named child, so the bytes between children are copied too.
	start, end := n.StartByte(), n.EndByte()
	if end-start >= 2 && c.Src[start] == '"' && c.Src[end-1] == '"' {
		start, end = start+1, end-1
	}
	pos := start
	var b strings.Builder
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.StartByte() > pos {
			b.Write(c.Src[pos:child.StartByte()])
		}
		switch child.Type() {
		case tsast.KindStringContent:
			b.WriteString(tsast.Text(child, c.Src))
		case tsast.KindExpansion, tsast.KindSimpleExpansion, tsast.KindCommandSubstitution:
			part, err := Word(child, c)
			if err != nil {
				return "", err
			}
			b.WriteString(part)
		default:
			b.WriteString(tsast.Text(child, c.Src))
		}
		pos = child.EndByte()
	}
	if end > pos {
		b.Write(c.Src[pos:end])
	}
	return b.String(), nil
}

// expandSimple expands $NAME, $?, and $$ (§4.2.1).
func expandSimple(n *sitter.Node, c *Config) (string, error) {
	lit := tsast.Text(n, c.Src)
	switch lit {
	case "$?":
		return strconv.Itoa(c.LastStatus), nil
	case "$$":
		// Always the root interpreter's pid, never a subshell's: this
		// package never forks, so os.Getpid is correct even from inside
		// a nested command-substitution evaluation (SPEC_FULL §4.2.3).
		return strconv.Itoa(os.Getpid()), nil
	}
	name := variableName(n, c)
	if name == "" {
		return "", nil
	}
	val, _ := c.Env.Get(name)
	return val, nil
}

// expandBraced expands ${NAME} (§4.2.1). No modifiers are honored; unknown
// forms fall back to the literal slice, per spec.
func expandBraced(n *sitter.Node, c *Config) (string, error) {
	name := variableName(n, c)
	if name == "" {
		return tsast.Text(n, c.Src), nil
	}
	val, _ := c.Env.Get(name)
	return val, nil
}

// variableName extracts the variable_name named child of a simple_expansion
// or expansion node.
func variableName(n *sitter.Node, c *Config) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == tsast.KindVariableName {
			return tsast.Text(child, c.Src)
		}
	}
	return ""
}

// expandCommandSubstitution expands $(...) per §4.2.3: strip the outer
// "$(" and ")", hand the inner text to the evaluator via c.CmdSubst, and
// strip trailing newlines (not interior ones) from the captured output.
func expandCommandSubstitution(n *sitter.Node, c *Config) (string, error) {
	inner := innerCommandSubstText(n, c.Src)
	if c.CmdSubst == nil {
		return "", fmt.Errorf("expand: command substitution unsupported in this context")
	}
	out, err := c.CmdSubst(inner)
	if err != nil {
		// Command-substitution spawn failure (§7): the expansion itself
		// yields the empty string; the caller decides how last_status
		// reacts to the returned error.
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func innerCommandSubstText(n *sitter.Node, src []byte) string {
	s := tsast.Text(n, src)
	s = strings.TrimPrefix(s, "$(")
	s = strings.TrimSuffix(s, ")")
	return s
}
