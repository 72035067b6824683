// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	sitter "github.com/smacker/go-tree-sitter"

	"minibash/tsast"
)

// Argv assembles the argument vector of a command node per §4.2.4:
//  1. locate the program-name node,
//  2. count the argv elements,
//  3. expand each selected node, preserving empty strings.
//
// On any per-element expansion failure it returns a nil slice and the
// error; the caller (the Process Runner) treats a
// non-nil error exactly like argc == 0 per §4.4.1 step 1.
func Argv(cmd *sitter.Node, reg *tsast.Registry, c *Config) ([]string, error) {
	progNode := programNameNode(cmd, reg)
	if progNode == nil {
		return nil, nil
	}

	argv := make([]string, 0, cmd.NamedChildCount())
	prog, err := Word(progNode, c)
	if err != nil {
		return nil, err
	}
	argv = append(argv, prog)

	nameNode := findCommandName(cmd, reg)
	for i := 0; i < int(cmd.NamedChildCount()); i++ {
		child := cmd.NamedChild(i)
		if nameNode != nil && child == nameNode {
			continue
		}
		if child == progNode {
			continue
		}
		if reg.SkippableForArgv(child) {
			continue
		}
		if !reg.Argumenty(child) {
			continue
		}
		arg, err := Word(child, c)
		if err != nil {
			return nil, err
		}
		argv = append(argv, arg)
	}
	return argv, nil
}

// programNameNode implements §4.2.4 step 1: the first named child of kind
// command_name, descended into for its first argument-like child; failing
// that, the first top-level argument-like child that is neither
// command_name nor skippable.
func programNameNode(cmd *sitter.Node, reg *tsast.Registry) *sitter.Node {
	if nameNode := findCommandName(cmd, reg); nameNode != nil {
		for i := 0; i < int(nameNode.NamedChildCount()); i++ {
			child := nameNode.NamedChild(i)
			if reg.Argumenty(child) {
				return child
			}
		}
	}
	for i := 0; i < int(cmd.NamedChildCount()); i++ {
		child := cmd.NamedChild(i)
		if reg.Is(child, tsast.KindCommandName) {
			continue
		}
		if reg.SkippableForArgv(child) {
			continue
		}
		if reg.Argumenty(child) {
			return child
		}
	}
	return nil
}

func findCommandName(cmd *sitter.Node, reg *tsast.Registry) *sitter.Node {
	for i := 0; i < int(cmd.NamedChildCount()); i++ {
		child := cmd.NamedChild(i)
		if reg.Is(child, tsast.KindCommandName) {
			return child
		}
	}
	return nil
}
