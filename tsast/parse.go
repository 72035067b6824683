// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package tsast

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parse turns a script buffer into a tree-sitter concrete syntax tree using
// the bash grammar resolved by r. The returned *sitter.Tree owns node
// storage; every *sitter.Node handed out by it borrows from src for the
// lifetime of one evaluation, per §3 (script buffer / AST node lifetime).
//
// Parsing itself is out of scope for this module (§1): this is a thin call
// into the external grammar, not a hand-rolled recursive-descent parser.
func Parse(ctx context.Context, r *Registry, src []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(r.Language())
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tsast: parse: %w", err)
	}
	return tree, nil
}

// Root returns tree's root node, typically of kind KindProgram.
func Root(tree *sitter.Tree) *sitter.Node {
	return tree.RootNode()
}
