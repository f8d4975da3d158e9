// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ast defines the Abstract Syntax Tree for CoinScript.
//
// Design overview:
//
//   - Node families (Decl, Stmt, Expr, TypeExpr) are sealed: each marker
//     method is unexported, so a type switch over a family in another
//     package sees a closed set of cases.
//   - Every node is position-annotated via token.Token so diagnostics can
//     reference source locations.
//   - The tree is built once by the parser and never mutated afterwards.
//     Facts derived later (state indices, folded storage values) are kept in
//     side tables by the code generator.
package ast

import (
	"bytes"
	"strings"

	"github.com/probechain/coinscript/lang/token"
)

// Node is the base interface that every AST node implements.
type Node interface {
	// Pos returns the position of the token that originated this node.
	Pos() token.Position

	// String returns a human-readable, parenthesised representation of the
	// node suitable for unit tests and debug output.
	String() string
}

// Decl is a declaration inside the coin body.
type Decl interface {
	Node
	declNode()
}

// Stmt is a statement inside an action, function, modifier or constructor.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// ---------------------------------------------------------------------------
// File root
// ---------------------------------------------------------------------------

// File is the root of a parse: include directives followed by exactly one
// coin declaration.
type File struct {
	Includes []*Include
	Coin     *Coin
}

func (f *File) Pos() token.Position {
	if len(f.Includes) > 0 {
		return f.Includes[0].Pos()
	}
	if f.Coin != nil {
		return f.Coin.Pos()
	}
	return token.Position{}
}

func (f *File) String() string {
	var out bytes.Buffer
	for _, inc := range f.Includes {
		out.WriteString(inc.String())
		out.WriteByte('\n')
	}
	if f.Coin != nil {
		out.WriteString(f.Coin.String())
	}
	return out.String()
}

// Include is an explicit library include directive.
type Include struct {
	Token token.Token // 'include'
	Path  string
}

func (d *Include) Pos() token.Position { return d.Token.Pos }
func (d *Include) String() string      { return "include " + d.Path + ";" }

// Decorator is an @name(args) annotation on the coin or an action.
type Decorator struct {
	Token token.Token // '@'
	Name  string
	Args  []Expr
}

func (d *Decorator) Pos() token.Position { return d.Token.Pos }
func (d *Decorator) String() string {
	if d.Args == nil {
		return "@" + d.Name
	}
	return "@" + d.Name + "(" + joinExprs(d.Args, ", ") + ")"
}

// Coin is the single top-level contract declaration.
type Coin struct {
	Token      token.Token // 'coin'
	Name       string
	Decorators []*Decorator
	Decls      []Decl
}

func (c *Coin) Pos() token.Position { return c.Token.Pos }
func (c *Coin) String() string {
	var out bytes.Buffer
	for _, d := range c.Decorators {
		out.WriteString(d.String())
		out.WriteByte(' ')
	}
	out.WriteString("coin ")
	out.WriteString(c.Name)
	out.WriteString(" {\n")
	for _, d := range c.Decls {
		out.WriteString("  ")
		out.WriteString(d.String())
		out.WriteByte('\n')
	}
	out.WriteString("}")
	return out.String()
}

// Actions returns the coin's actions in declaration order.
func (c *Coin) Actions() []*Action {
	var out []*Action
	for _, d := range c.Decls {
		if a, ok := d.(*Action); ok {
			out = append(out, a)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Param is one typed parameter of an action, function, modifier, event or
// constructor.
type Param struct {
	Token token.Token // the name token
	Name  string
	Type  TypeExpr
}

func (p *Param) Pos() token.Position { return p.Token.Pos }
func (p *Param) String() string      { return p.Type.String() + " " + p.Name }

// LayerArg is one argument of a layer declaration, optionally named.
type LayerArg struct {
	Name  string // empty for positional arguments
	Value Expr
}

// Layer is an explicit `layer name(args);` wrapping declaration.
type Layer struct {
	Token token.Token // 'layer'
	Name  string
	Args  []LayerArg
}

// StorageVar is an immutable, compile-time folded value.
type StorageVar struct {
	Token token.Token // the name token
	Name  string
	Type  TypeExpr
	Value Expr
}

// StateField is one field of the coin's persistent state. Index is not
// stored here; the resolver assigns it from declaration order.
type StateField struct {
	Token token.Token
	Name  string
	Type  TypeExpr
	Value Expr // optional initializer
}

// Const is a named compile-time constant.
type Const struct {
	Token token.Token // 'const'
	Name  string
	Type  TypeExpr
	Value Expr
}

// Constructor binds compile-time arguments and sets the initial state.
type Constructor struct {
	Token  token.Token // 'constructor'
	Params []*Param
	Body   []Stmt
}

// Function is a user-defined helper compiled to a defun.
type Function struct {
	Token   token.Token // 'function'
	Name    string
	Inline  bool
	Params  []*Param
	Returns TypeExpr // nil when absent
	Body    []Stmt
}

// Modifier is a reusable guard spliced around action bodies at `_;`.
type Modifier struct {
	Token  token.Token // 'modifier'
	Name   string
	Params []*Param
	Body   []Stmt
}

// ModifierRef is a modifier invocation in an action header.
type ModifierRef struct {
	Token token.Token
	Name  string
	Args  []Expr
}

// Action is a named spend behaviour.
type Action struct {
	Token      token.Token // 'action'
	Name       string
	Decorators []*Decorator
	Params     []*Param
	View       bool
	Pure       bool
	Modifiers  []*ModifierRef
	Body       []Stmt
}

// Event documents an announcement payload.
type Event struct {
	Token  token.Token // 'event'
	Name   string
	Params []*Param
}

func (d *Layer) declNode()       {}
func (d *StorageVar) declNode()  {}
func (d *StateField) declNode()  {}
func (d *Const) declNode()       {}
func (d *Constructor) declNode() {}
func (d *Function) declNode()    {}
func (d *Modifier) declNode()    {}
func (d *Action) declNode()      {}
func (d *Event) declNode()       {}

func (d *Layer) Pos() token.Position       { return d.Token.Pos }
func (d *StorageVar) Pos() token.Position  { return d.Token.Pos }
func (d *StateField) Pos() token.Position  { return d.Token.Pos }
func (d *Const) Pos() token.Position       { return d.Token.Pos }
func (d *Constructor) Pos() token.Position { return d.Token.Pos }
func (d *Function) Pos() token.Position    { return d.Token.Pos }
func (d *Modifier) Pos() token.Position    { return d.Token.Pos }
func (d *Action) Pos() token.Position      { return d.Token.Pos }
func (d *Event) Pos() token.Position       { return d.Token.Pos }

func (d *Layer) String() string {
	parts := make([]string, len(d.Args))
	for i, a := range d.Args {
		if a.Name != "" {
			parts[i] = a.Name + ": " + a.Value.String()
		} else {
			parts[i] = a.Value.String()
		}
	}
	return "layer " + d.Name + "(" + strings.Join(parts, ", ") + ");"
}

func (d *StorageVar) String() string {
	return "storage " + d.Type.String() + " " + d.Name + " = " + d.Value.String() + ";"
}

func (d *StateField) String() string {
	s := "state " + d.Type.String() + " " + d.Name
	if d.Value != nil {
		s += " = " + d.Value.String()
	}
	return s + ";"
}

func (d *Const) String() string {
	return "const " + d.Type.String() + " " + d.Name + " = " + d.Value.String() + ";"
}

func (d *Constructor) String() string {
	return "constructor(" + joinParams(d.Params) + ") " + blockString(d.Body)
}

func (d *Function) String() string {
	s := "function " + d.Name + "(" + joinParams(d.Params) + ")"
	if d.Inline {
		s = "inline " + s
	}
	if d.Returns != nil {
		s += " returns " + d.Returns.String()
	}
	return s + " " + blockString(d.Body)
}

func (d *Modifier) String() string {
	return "modifier " + d.Name + "(" + joinParams(d.Params) + ") " + blockString(d.Body)
}

func (d *Action) String() string {
	var out bytes.Buffer
	for _, dec := range d.Decorators {
		out.WriteString(dec.String())
		out.WriteByte(' ')
	}
	out.WriteString("action ")
	out.WriteString(d.Name)
	out.WriteString("(")
	out.WriteString(joinParams(d.Params))
	out.WriteString(")")
	if d.View {
		out.WriteString(" view")
	}
	if d.Pure {
		out.WriteString(" pure")
	}
	for _, m := range d.Modifiers {
		out.WriteByte(' ')
		out.WriteString(m.Name)
		if m.Args != nil {
			out.WriteString("(" + joinExprs(m.Args, ", ") + ")")
		}
	}
	out.WriteByte(' ')
	out.WriteString(blockString(d.Body))
	return out.String()
}

func (d *Event) String() string {
	return "event " + d.Name + "(" + joinParams(d.Params) + ");"
}

// HasDecorator reports whether the action carries @name.
func (d *Action) HasDecorator(name string) bool {
	for _, dec := range d.Decorators {
		if strings.EqualFold(dec.Name, name) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func joinParams(ps []*Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func joinExprs(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

func blockString(stmts []Stmt) string {
	if len(stmts) == 0 {
		return "{ }"
	}
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}
