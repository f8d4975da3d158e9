// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ast

import (
	"github.com/probechain/coinscript/lang/token"
)

// RequireStmt aborts the spend unless Cond holds.
type RequireStmt struct {
	Token   token.Token // 'require'
	Cond    Expr
	Message Expr // optional
}

// SendStmt creates a coin.
type SendStmt struct {
	Token  token.Token // 'send'
	To     Expr
	Amount Expr
	Memo   Expr // optional
}

// EmitStmt announces an event payload.
type EmitStmt struct {
	Token token.Token // 'emit'
	Event string
	Args  []Expr
}

// FailStmt raises unconditionally.
type FailStmt struct {
	Token   token.Token // 'fail' / 'exception'
	Message Expr        // optional
}

// IfStmt is a two-armed branch. Else is nil when absent, and holds a single
// nested *IfStmt for an `else if` chain.
type IfStmt struct {
	Token token.Token // 'if'
	Cond  Expr
	Then  []Stmt
	Else  []Stmt
}

// AssignStmt binds a local or a state field. Op is "=" or a compound
// operator ("+=", ...). DeclType is set for `T x = e;` local declarations.
type AssignStmt struct {
	Token    token.Token // the operator token
	Target   Expr        // *Ident or *MemberExpr on `state`
	Op       string
	Value    Expr
	DeclType TypeExpr
}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	Token token.Token
	Expr  Expr
}

// ReturnStmt ends the current body, optionally with a value.
type ReturnStmt struct {
	Token token.Token // 'return'
	Value Expr        // optional
}

// PlaceholderStmt is the `_;` marker inside a modifier body.
type PlaceholderStmt struct {
	Token token.Token
}

func (s *RequireStmt) stmtNode()     {}
func (s *SendStmt) stmtNode()        {}
func (s *EmitStmt) stmtNode()        {}
func (s *FailStmt) stmtNode()        {}
func (s *IfStmt) stmtNode()          {}
func (s *AssignStmt) stmtNode()      {}
func (s *ExprStmt) stmtNode()        {}
func (s *ReturnStmt) stmtNode()      {}
func (s *PlaceholderStmt) stmtNode() {}

func (s *RequireStmt) Pos() token.Position     { return s.Token.Pos }
func (s *SendStmt) Pos() token.Position        { return s.Token.Pos }
func (s *EmitStmt) Pos() token.Position        { return s.Token.Pos }
func (s *FailStmt) Pos() token.Position        { return s.Token.Pos }
func (s *IfStmt) Pos() token.Position          { return s.Token.Pos }
func (s *AssignStmt) Pos() token.Position      { return s.Target.Pos() }
func (s *ExprStmt) Pos() token.Position        { return s.Token.Pos }
func (s *ReturnStmt) Pos() token.Position      { return s.Token.Pos }
func (s *PlaceholderStmt) Pos() token.Position { return s.Token.Pos }

func (s *RequireStmt) String() string {
	if s.Message != nil {
		return "require(" + s.Cond.String() + ", " + s.Message.String() + ");"
	}
	return "require(" + s.Cond.String() + ");"
}

func (s *SendStmt) String() string {
	args := []Expr{s.To, s.Amount}
	if s.Memo != nil {
		args = append(args, s.Memo)
	}
	return "send(" + joinExprs(args, ", ") + ");"
}

func (s *EmitStmt) String() string {
	return "emit " + s.Event + "(" + joinExprs(s.Args, ", ") + ");"
}

func (s *FailStmt) String() string {
	if s.Message != nil {
		return "fail(" + s.Message.String() + ");"
	}
	return "fail;"
}

func (s *IfStmt) String() string {
	out := "if (" + s.Cond.String() + ") " + blockString(s.Then)
	if s.Else != nil {
		out += " else " + blockString(s.Else)
	}
	return out
}

func (s *AssignStmt) String() string {
	prefix := ""
	if s.DeclType != nil {
		prefix = s.DeclType.String() + " "
	}
	return prefix + s.Target.String() + " " + s.Op + " " + s.Value.String() + ";"
}

func (s *ExprStmt) String() string { return s.Expr.String() + ";" }

func (s *ReturnStmt) String() string {
	if s.Value != nil {
		return "return " + s.Value.String() + ";"
	}
	return "return;"
}

func (s *PlaceholderStmt) String() string { return "_;" }
