// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package tsast is the Symbol / Field Registry (C1): a thin, typed view over
// a tree-sitter concrete syntax tree produced by the bash grammar. It is the
// only package in this module that imports go-tree-sitter directly; every
// other package talks to a *sitter.Node through the predicates and field
// accessors declared here.
//
// The parser itself is out of scope for this module (see the package-level
// comment in parse.go): Registry never builds a grammar, it only resolves
// the node-kind and field names the rest of the engine depends on, once,
// at construction, the way the C reference implementation resolves
// ts_language_field_id_for_name results into a single cached table.
package tsast

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
)

// Node kinds consumed by the engine (§6.2).
const (
	KindProgram             = "program"
	KindComment             = "comment"
	KindCommand             = "command"
	KindCommandName         = "command_name"
	KindWord                = "word"
	KindRawString           = "raw_string"
	KindString              = "string"
	KindStringContent       = "string_content"
	KindSimpleExpansion     = "simple_expansion"
	KindExpansion           = "expansion"
	KindVariableName        = "variable_name"
	KindCommandSubstitution = "command_substitution"
	KindFileRedirect        = "file_redirect"
	KindVariableAssignment  = "variable_assignment"
	KindPipeline            = "pipeline"
	KindRedirectedStatement = "redirected_statement"
	KindList                = "list"

	// Optional kinds: present in the grammar, not required for every script.
	KindAndOr            = "and_or"
	KindBinaryExpression = "binary_expression"
	KindSubshell         = "subshell"
)

// Field names consumed by the engine (§6.2). The Go tree-sitter binding
// resolves fields by name via (*sitter.Node).ChildByFieldName, so unlike the
// C API there is no separate numeric id to cache; Registry still centralizes
// the name constants so every call site shares one source of truth, which is
// the Go-idiomatic analogue of the C layer's one-time id resolution.
const (
	FieldName        = "name"
	FieldValue       = "value"
	FieldVariable    = "variable"
	FieldBody        = "body"
	FieldDestination = "destination"
	FieldOperator    = "operator"
	FieldLeft        = "left"
	FieldRight       = "right"
	FieldRedirect    = "redirect"
	FieldCondition   = "condition"
)

// Registry resolves grammar-specific details once and exposes typed
// predicates to the rest of the engine. It is safe for concurrent read-only
// use once constructed; the engine itself is single-threaded (§5), so no
// locking is attempted here.
type Registry struct {
	lang *sitter.Language

	argumenty        map[string]bool
	skippableForArgv map[string]bool
}

// NewRegistry resolves the bash grammar and builds the predicate tables.
// It never fails: go-tree-sitter's GetLanguage returns a ready-to-use value,
// there is nothing to parse yet.
func NewRegistry() *Registry {
	r := &Registry{
		lang: bash.GetLanguage(),
	}
	r.argumenty = map[string]bool{
		KindWord:                true,
		KindRawString:           true,
		KindString:              true,
		KindSimpleExpansion:     true,
		KindExpansion:           true,
		KindCommandSubstitution: true,
	}
	r.skippableForArgv = map[string]bool{
		KindFileRedirect:       true,
		KindVariableAssignment: true,
	}
	return r
}

// Language returns the resolved tree-sitter grammar, for use by Parse.
func (r *Registry) Language() *sitter.Language { return r.lang }

// Argumenty reports whether n's kind may contribute to an argv element
// (word | raw_string | string | simple_expansion | expansion |
// command_substitution).
func (r *Registry) Argumenty(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	return r.argumenty[n.Type()]
}

// SkippableForArgv reports whether n's kind is skipped when assembling argv
// for a command node (file_redirect | variable_assignment).
func (r *Registry) SkippableForArgv(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	return r.skippableForArgv[n.Type()]
}

// Is reports whether n has the given kind, nil-safe.
func (r *Registry) Is(n *sitter.Node, kind string) bool {
	return n != nil && n.Type() == kind
}

// ChildByField resolves a named field on n, returning nil for both a
// missing field and a nil node (mirrors ts_node_is_null at call sites).
func (r *Registry) ChildByField(n *sitter.Node, field string) *sitter.Node {
	if n == nil {
		return nil
	}
	c := n.ChildByFieldName(field)
	if c == nil || c.IsNull() {
		return nil
	}
	return c
}

// Text returns n's literal slice of src, the byte range [StartByte,EndByte).
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}
