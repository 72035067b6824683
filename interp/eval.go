// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"minibash/expand"
	"minibash/tsast"
)

// evalStatementSequence runs a flat sequence of statements with the
// short-circuit semantics of §4.5.1, used both for the top-level program
// and for the named children of an explicit "list" node. ctx cancellation
// is checked between statements here; a running external command is
// stopped through its own exec.CommandContext.
func (r *Runner) evalStatementSequence(ctx context.Context, src []byte, nodes []*sitter.Node) {
	if len(nodes) == 0 {
		return
	}
	r.evalStatement(ctx, src, nodes[0])
	prev := nodes[0]
	for _, n := range nodes[1:] {
		if ctx.Err() != nil || r.exited {
			return
		}
		op := scanOperator(src[prev.EndByte():n.StartByte()])
		switch op {
		case "&&":
			if r.lastStatus == 0 {
				r.evalStatement(ctx, src, n)
			}
		case "||":
			if r.lastStatus != 0 {
				r.evalStatement(ctx, src, n)
			}
		case ";", "&":
			// ";" always runs the right side; "&" is treated as
			// sequencing, not real backgrounding (§9 Open Questions).
			r.evalStatement(ctx, src, n)
		}
		prev = n
	}
}

// scanOperator implements the raw-byte operator discovery of §4.5.1: the
// first occurrence of, in priority order, &&, ||, ;, &. Checking the
// two-byte operators before the one-byte ones at each position keeps "&&"
// from being misread as "&" followed by a stray "&" (§9, "Operator
// discovery in lists").
func scanOperator(between []byte) string {
	for i := 0; i < len(between); i++ {
		switch {
		case i+1 < len(between) && between[i] == '&' && between[i+1] == '&':
			return "&&"
		case i+1 < len(between) && between[i] == '|' && between[i+1] == '|':
			return "||"
		case between[i] == ';':
			return ";"
		case between[i] == '&':
			return "&"
		}
	}
	// No explicit junction found (e.g. a bare newline): treat as ";".
	return ";"
}

// evalStatement dispatches on node kind (§4.5's table). This is the sum
// type mapped onto a Go switch the way §9 ("Node kinds as sum types")
// recommends: one case per kind, plus a clearly-named unknown arm.
func (r *Runner) evalStatement(ctx context.Context, src []byte, n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case tsast.KindComment:
		// no-op

	case tsast.KindVariableAssignment:
		r.evalAssignment(src, n)

	case tsast.KindCommand:
		r.lastStatus = r.runSimpleCommand(ctx, src, n, nil, nil)

	case tsast.KindPipeline:
		r.lastStatus = r.runPipeline(ctx, src, n, nil, nil)

	case tsast.KindRedirectedStatement:
		r.lastStatus = r.runRedirectedStatement(ctx, src, n)

	case tsast.KindList:
		r.evalStatementSequence(ctx, src, namedChildren(n))

	case tsast.KindAndOr, tsast.KindBinaryExpression:
		r.evalBinary(ctx, src, n)

	case tsast.KindSubshell:
		r.evalSubshell(ctx, src, n)

	default:
		fmt.Fprintf(r.Stderr, "minibash: unimplemented: %s\n", n.Type())
	}
}

// evalBinary handles a grammar that exposes an explicit and_or/
// binary_expression node with operator/left/right fields directly, the
// preferred path over raw byte scanning per §9.
func (r *Runner) evalBinary(ctx context.Context, src []byte, n *sitter.Node) {
	left := r.Reg.ChildByField(n, tsast.FieldLeft)
	right := r.Reg.ChildByField(n, tsast.FieldRight)
	opNode := r.Reg.ChildByField(n, tsast.FieldOperator)
	if left == nil || right == nil {
		fmt.Fprintf(r.Stderr, "minibash: unimplemented: %s with missing operands\n", n.Type())
		return
	}
	r.evalStatement(ctx, src, left)

	op := ";"
	if opNode != nil {
		op = tsast.Text(opNode, src)
	}
	switch op {
	case "&&":
		if r.lastStatus == 0 {
			r.evalStatement(ctx, src, right)
		}
	case "||":
		if r.lastStatus != 0 {
			r.evalStatement(ctx, src, right)
		}
	default:
		r.evalStatement(ctx, src, right)
	}
}

// evalSubshell runs a parenthesized statement list in the current process:
// the engine has no subprocess-per-subshell model (§1 Non-goals list no
// subshell feature; this exists only because the grammar names it as
// optional in §6.2), so "(...)" behaves like "{...}" here — it shares
// last_status and environment with the parent rather than forking.
func (r *Runner) evalSubshell(ctx context.Context, src []byte, n *sitter.Node) {
	r.evalStatementSequence(ctx, src, namedChildren(n))
}

// evalAssignment implements the "variable_assignment" row of §4.5's table:
// evaluate the right-hand value via the Word Expander (bare word permitted,
// empty string if absent), set the ambient environment, last_status <- 0.
func (r *Runner) evalAssignment(src []byte, n *sitter.Node) {
	nameNode := r.Reg.ChildByField(n, tsast.FieldName)
	if nameNode == nil {
		nameNode = firstNamed(n)
	}
	if nameNode == nil {
		r.lastStatus = 1
		return
	}
	name := tsast.Text(nameNode, src)

	valNode := r.Reg.ChildByField(n, tsast.FieldValue)
	cfg := r.expandConfig(context.Background(), src)
	value := ""
	if valNode != nil {
		v, err := expand.Word(valNode, cfg)
		if err != nil {
			r.lastStatus = 1
			return
		}
		value = v
	}
	r.Env.Set(name, value)
	r.lastStatus = 0
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}
