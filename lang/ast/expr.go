// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ast

import (
	"math/big"
	"strconv"

	"github.com/probechain/coinscript/lang/token"
)

// Ident is a bare name.
type Ident struct {
	Token token.Token
	Name  string
}

// IntLit is a decimal integer literal.
type IntLit struct {
	Token token.Token
	Value *big.Int
}

// HexLit is a 0x-prefixed byte string.
type HexLit struct {
	Token token.Token
	Value []byte
}

// StringLit is a quoted string; Value holds the decoded content.
type StringLit struct {
	Token token.Token
	Value string
}

// BoolLit is true or false.
type BoolLit struct {
	Token token.Token
	Value bool
}

// ListLit is a space separated list literal such as (1 2 3).
type ListLit struct {
	Token    token.Token // '('
	Elements []Expr
}

// ArrayLit is a comma separated array literal such as [a, b].
type ArrayLit struct {
	Token    token.Token // '['
	Elements []Expr
}

// BinaryExpr is an infix operation.
type BinaryExpr struct {
	Token token.Token // the operator token
	Op    token.Type
	Left  Expr
	Right Expr
}

// UnaryExpr is a prefix operation (! - ~).
type UnaryExpr struct {
	Token   token.Token
	Op      token.Type
	Operand Expr
}

// MemberExpr is X.Name.
type MemberExpr struct {
	Token token.Token // '.'
	X     Expr
	Name  string
}

// IndexExpr is X[Index].
type IndexExpr struct {
	Token token.Token // '['
	X     Expr
	Index Expr
}

// CallExpr is Fn(Args...). Type-name casts such as uint256(x) parse as a
// call whose Fn is an *Ident naming the type.
type CallExpr struct {
	Token token.Token // '('
	Fn    Expr
	Args  []Expr
}

func (e *Ident) exprNode()      {}
func (e *IntLit) exprNode()     {}
func (e *HexLit) exprNode()     {}
func (e *StringLit) exprNode()  {}
func (e *BoolLit) exprNode()    {}
func (e *ListLit) exprNode()    {}
func (e *ArrayLit) exprNode()   {}
func (e *BinaryExpr) exprNode() {}
func (e *UnaryExpr) exprNode()  {}
func (e *MemberExpr) exprNode() {}
func (e *IndexExpr) exprNode()  {}
func (e *CallExpr) exprNode()   {}

func (e *Ident) Pos() token.Position      { return e.Token.Pos }
func (e *IntLit) Pos() token.Position     { return e.Token.Pos }
func (e *HexLit) Pos() token.Position     { return e.Token.Pos }
func (e *StringLit) Pos() token.Position  { return e.Token.Pos }
func (e *BoolLit) Pos() token.Position    { return e.Token.Pos }
func (e *ListLit) Pos() token.Position    { return e.Token.Pos }
func (e *ArrayLit) Pos() token.Position   { return e.Token.Pos }
func (e *BinaryExpr) Pos() token.Position { return e.Left.Pos() }
func (e *UnaryExpr) Pos() token.Position  { return e.Token.Pos }
func (e *MemberExpr) Pos() token.Position { return e.X.Pos() }
func (e *IndexExpr) Pos() token.Position  { return e.X.Pos() }
func (e *CallExpr) Pos() token.Position   { return e.Fn.Pos() }

func (e *Ident) String() string     { return e.Name }
func (e *IntLit) String() string    { return e.Value.String() }
func (e *HexLit) String() string    { return e.Token.Literal }
func (e *StringLit) String() string { return strconv.Quote(e.Value) }
func (e *BoolLit) String() string   { return strconv.FormatBool(e.Value) }
func (e *ListLit) String() string   { return "(" + joinExprs(e.Elements, " ") + ")" }
func (e *ArrayLit) String() string  { return "[" + joinExprs(e.Elements, ", ") + "]" }
func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}
func (e *UnaryExpr) String() string  { return "(" + e.Op.String() + e.Operand.String() + ")" }
func (e *MemberExpr) String() string { return e.X.String() + "." + e.Name }
func (e *IndexExpr) String() string  { return e.X.String() + "[" + e.Index.String() + "]" }
func (e *CallExpr) String() string   { return e.Fn.String() + "(" + joinExprs(e.Args, ", ") + ")" }

// IsStateRef reports whether e is the bare `state` name or `state.<field>`,
// returning the field name in the latter case.
func IsStateRef(e Expr) (field string, ok bool) {
	switch x := e.(type) {
	case *Ident:
		return "", x.Name == "state"
	case *MemberExpr:
		if id, isIdent := x.X.(*Ident); isIdent && id.Name == "state" {
			return x.Name, true
		}
	}
	return "", false
}
