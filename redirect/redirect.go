// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package redirect is the Redirection Planner (C3): it scans a command or
// redirected_statement node for file_redirect children and produces an
// ordered sequence of fd actions. See §4.3 of SPEC_FULL.md.
package redirect

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"minibash/tsast"
)

// Kind distinguishes the two redirection actions the spec defines (§3).
type Kind int

const (
	Input  Kind = iota // open path read-only, duplicate onto fd 0
	Output             // open path write-only, create, dup onto fd 1
)

// Action is one entry of a redirection plan.
type Action struct {
	Kind     Kind
	Path     string
	Truncate bool // only meaningful for Output: truncate (>) vs append (>>)
}

// Plan scans the named children of target (a command or
// redirected_statement node) for file_redirect children and builds an
// ordered plan. Later entries targeting the same fd override earlier ones
// in the order the Process Runner's applyPlan (interp/exec.go) processes
// them (§3); Plan does not itself discard
// earlier entries, since the spec permits either "open all then dup in
// order" or "open-dup-close per entry" as long as final dup order holds,
// and the caller (the Process Runner) is the one actually opening fds.
//
// Destination paths are not expanded (§9 Open Questions: this module takes
// the literal byte slice of the destination field, deliberately not calling
// into the Word Expander — an extension point, not taken here).
func Plan(target *sitter.Node, reg *tsast.Registry, src []byte) ([]Action, error) {
	var plan []Action
	for i := 0; i < int(target.NamedChildCount()); i++ {
		child := target.NamedChild(i)
		if !reg.Is(child, tsast.KindFileRedirect) {
			continue
		}
		act, err := parseFileRedirect(child, reg, src)
		if err != nil {
			return nil, err
		}
		plan = append(plan, act)
	}
	return plan, nil
}

func parseFileRedirect(n *sitter.Node, reg *tsast.Registry, src []byte) (Action, error) {
	lit := tsast.Text(n, src)
	dest := reg.ChildByField(n, tsast.FieldDestination)
	if dest == nil {
		return Action{}, fmt.Errorf("redirect: file_redirect %q has no destination", lit)
	}
	path := tsast.Text(dest, src)

	switch {
	case strings.HasPrefix(lit, ">>"):
		return Action{Kind: Output, Path: path, Truncate: false}, nil
	case strings.HasPrefix(lit, "<"):
		return Action{Kind: Input, Path: path}, nil
	case strings.HasPrefix(lit, ">"):
		return Action{Kind: Output, Path: path, Truncate: true}, nil
	default:
		// &>, <<, <<-, n> and friends: out of scope (§1 Non-goals).
		return Action{}, fmt.Errorf("redirect: unsupported redirection operator in %q", lit)
	}
}

// Merge applies "statement redirections take precedence over the command's"
// (§4.3, last paragraph): the statement's plan is appended after the
// command's, so a later same-fd entry (applyPlan in interp/exec.go processes
// entries left to right) wins.
func Merge(commandPlan, statementPlan []Action) []Action {
	if len(statementPlan) == 0 {
		return commandPlan
	}
	merged := make([]Action, 0, len(commandPlan)+len(statementPlan))
	merged = append(merged, commandPlan...)
	merged = append(merged, statementPlan...)
	return merged
}
