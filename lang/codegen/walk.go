// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import "github.com/probechain/coinscript/lang/ast"

// inspect traverses every statement and expression in stmts in depth-first
// order. If fn returns false the children of that node are skipped.
func inspect(stmts []ast.Stmt, fn func(ast.Node) bool) {
	for _, s := range stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s ast.Stmt, fn func(ast.Node) bool) {
	if !fn(s) {
		return
	}
	switch s := s.(type) {
	case *ast.RequireStmt:
		inspectExprs(fn, s.Cond, s.Message)
	case *ast.SendStmt:
		inspectExprs(fn, s.To, s.Amount, s.Memo)
	case *ast.EmitStmt:
		inspectExprs(fn, s.Args...)
	case *ast.FailStmt:
		inspectExprs(fn, s.Message)
	case *ast.IfStmt:
		inspectExprs(fn, s.Cond)
		inspect(s.Then, fn)
		inspect(s.Else, fn)
	case *ast.AssignStmt:
		inspectExprs(fn, s.Target, s.Value)
	case *ast.ExprStmt:
		inspectExprs(fn, s.Expr)
	case *ast.ReturnStmt:
		inspectExprs(fn, s.Value)
	case *ast.PlaceholderStmt:
	}
}

func inspectExprs(fn func(ast.Node) bool, es ...ast.Expr) {
	for _, e := range es {
		if e != nil {
			inspectExpr(e, fn)
		}
	}
}

func inspectExpr(e ast.Expr, fn func(ast.Node) bool) {
	if !fn(e) {
		return
	}
	switch e := e.(type) {
	case *ast.BinaryExpr:
		inspectExprs(fn, e.Left, e.Right)
	case *ast.UnaryExpr:
		inspectExprs(fn, e.Operand)
	case *ast.MemberExpr:
		inspectExprs(fn, e.X)
	case *ast.IndexExpr:
		inspectExprs(fn, e.X, e.Index)
	case *ast.CallExpr:
		inspectExprs(fn, e.Fn)
		inspectExprs(fn, e.Args...)
	case *ast.ListLit:
		inspectExprs(fn, e.Elements...)
	case *ast.ArrayLit:
		inspectExprs(fn, e.Elements...)
	case *ast.Ident, *ast.IntLit, *ast.HexLit, *ast.StringLit, *ast.BoolLit:
	}
}

// calleeName returns the name of a direct call, or "".
func calleeName(call *ast.CallExpr) string {
	if id, ok := call.Fn.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// actionBodies returns the action body followed by the bodies of the
// modifiers it names, skipping unknown modifiers (reported later). The
// arguments of each modifier reference come as one more body of expression
// statements, so every scan over an action also sees them.
func (c *context) actionBodies(a *ast.Action) [][]ast.Stmt {
	bodies := [][]ast.Stmt{a.Body}
	for _, ref := range a.Modifiers {
		if m, ok := c.modifiers[ref.Name]; ok {
			bodies = append(bodies, m.Body)
		}
		if len(ref.Args) == 0 {
			continue
		}
		args := make([]ast.Stmt, len(ref.Args))
		for i, arg := range ref.Args {
			args[i] = &ast.ExprStmt{Token: ref.Token, Expr: arg}
		}
		bodies = append(bodies, args)
	}
	return bodies
}

// usedFunctions returns, in declaration order, the user functions reachable
// from bodies through calls.
func (c *context) usedFunctions(bodies [][]ast.Stmt) []*ast.Function {
	seen := make(map[string]bool)
	queue := bodies
	for len(queue) > 0 {
		body := queue[0]
		queue = queue[1:]
		inspect(body, func(n ast.Node) bool {
			if call, ok := n.(*ast.CallExpr); ok {
				name := calleeName(call)
				if fn, ok := c.functions[name]; ok && !seen[name] {
					seen[name] = true
					queue = append(queue, fn.Body)
				}
			}
			return true
		})
	}
	var out []*ast.Function
	for _, fn := range c.funcOrder {
		if seen[fn.Name] {
			out = append(out, fn)
		}
	}
	return out
}
