// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"fmt"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/token"
	"github.com/probechain/coinscript/lang/types"
)

func (b *body) exprs(es []ast.Expr, sc *scope) ([]ir.Node, error) {
	out := make([]ir.Node, len(es))
	for i, e := range es {
		v, err := b.expr(e, sc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *body) expr(e ast.Expr, sc *scope) (ir.Node, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return ir.BigInt(e.Value), nil
	case *ast.HexLit:
		return ir.Hex(e.Value), nil
	case *ast.StringLit:
		return ir.Str(e.Value), nil
	case *ast.BoolLit:
		return boolNode(e.Value), nil
	case *ast.Ident:
		return b.ident(e, sc)
	case *ast.ListLit:
		return b.list(e.Elements, sc)
	case *ast.ArrayLit:
		return b.list(e.Elements, sc)
	case *ast.UnaryExpr:
		x, err := b.expr(e.Operand, sc)
		if err != nil {
			return nil, err
		}
		return unaryNode(e.Op, x, e.Pos())
	case *ast.BinaryExpr:
		l, err := b.expr(e.Left, sc)
		if err != nil {
			return nil, err
		}
		r, err := b.expr(e.Right, sc)
		if err != nil {
			return nil, err
		}
		return binaryNode(e.Op, l, r, e.Pos())
	case *ast.MemberExpr:
		return b.member(e, sc)
	case *ast.IndexExpr:
		return b.index(e, sc)
	case *ast.CallExpr:
		return b.call(e, sc)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

// ident resolves a name: local binding, parameter, reserved name, folded
// storage, and finally a free reference.
func (b *body) ident(e *ast.Ident, sc *scope) (ir.Node, error) {
	if v, ok := sc.lookup(e.Name); ok {
		return v, nil
	}
	if v, ok := b.params[e.Name]; ok {
		return v, nil
	}
	switch e.Name {
	case "state":
		if b.state == nil {
			return nil, diag.Semanticf(e.Pos(), "state is not available in %s", b.owner)
		}
		return b.state, nil
	case "msg", "block", "this":
		return nil, diag.Semanticf(e.Pos(), "%s can only be used with a member", e.Name)
	}
	if v, ok := b.ctx.storage[e.Name]; ok {
		if _, isList := v.(*ir.Pair); isList {
			return ir.Quote(v), nil
		}
		return v, nil
	}
	b.ctx.log.Debug("Free reference", "name", e.Name, "in", b.owner, "pos", e.Pos())
	return ir.Sym(e.Name), nil
}

func (b *body) list(elems []ast.Expr, sc *scope) (ir.Node, error) {
	if len(elems) == 0 {
		return ir.Nil, nil
	}
	items, err := b.exprs(elems, sc)
	if err != nil {
		return nil, err
	}
	return ir.Call("list", items...), nil
}

func (b *body) member(e *ast.MemberExpr, sc *scope) (ir.Node, error) {
	if field, ok := ast.IsStateRef(e); ok {
		return b.stateField(field, e.Pos(), sc)
	}
	if id, ok := e.X.(*ast.Ident); ok && isReserved(id.Name) {
		if isSender(e) {
			return nil, diag.Semanticf(e.Pos(), "msg.sender is only supported as require(msg.sender == signer)")
		}
		if in, ok := envMember(e); ok {
			return b.envRef(in, e.Pos())
		}
		return nil, diag.Semanticf(e.Pos(), "unknown member %s", e)
	}
	if e.Name == "length" {
		x, err := b.expr(e.X, sc)
		if err != nil {
			return nil, err
		}
		return ir.Call("strlen", x), nil
	}
	return nil, diag.Semanticf(e.Pos(), "unsupported member access %s", e)
}

func (b *body) stateField(field string, pos token.Position, sc *scope) (ir.Node, error) {
	idx, ok := b.ctx.stateIndex[field]
	if !ok {
		return nil, diag.Semanticf(pos, "unknown state field %q", field)
	}
	if v, ok := sc.lookup(statePrefix + field); ok {
		return v, nil
	}
	if b.state == nil {
		return nil, diag.Semanticf(pos, "state is not available in %s", b.owner)
	}
	return nth(b.state, idx), nil
}

func (b *body) envRef(in envInput, pos token.Position) (ir.Node, error) {
	slot, ok := b.env[in]
	if !ok {
		return nil, diag.Semanticf(pos, "%s is not available in %s", envInputs[in].symbol, b.owner)
	}
	return slot, nil
}

func (b *body) index(e *ast.IndexExpr, sc *scope) (ir.Node, error) {
	lit, ok := e.Index.(*ast.IntLit)
	if !ok || lit.Value.Sign() < 0 || !lit.Value.IsInt64() || lit.Value.Int64() > maxListIndex {
		return nil, diag.Semanticf(e.Index.Pos(), "index must be an integer literal between 0 and %d", maxListIndex)
	}
	x, err := b.expr(e.X, sc)
	if err != nil {
		return nil, err
	}
	return nth(x, int(lit.Value.Int64())), nil
}

// maxListIndex bounds literal indices; each step emits one (r ...).
const maxListIndex = 1024

func (b *body) call(e *ast.CallExpr, sc *scope) (ir.Node, error) {
	name := calleeName(e)
	if name == "" {
		return nil, diag.Semanticf(e.Pos(), "cannot call %s", e.Fn)
	}
	args, err := b.exprs(e.Args, sc)
	if err != nil {
		return nil, err
	}
	if types.IsName(name) {
		if len(args) != 1 {
			return nil, diag.Semanticf(e.Pos(), "cast %s takes one argument", name)
		}
		return args[0], nil
	}
	if bi, ok := builtins[name]; ok {
		return bi.compile(b, e, args)
	}
	if fn, ok := b.ctx.functions[name]; ok {
		if len(args) != len(fn.Params) {
			return nil, diag.Semanticf(e.Pos(), "function %s takes %d arguments, got %d", name, len(fn.Params), len(args))
		}
		return ir.Call(name, args...), nil
	}
	if b.ctx.cfg.AllowUnresolvedCalls {
		b.ctx.log.Warn("Unresolved call", "name", name, "in", b.owner, "pos", e.Pos())
		return ir.Call(name, args...), nil
	}
	return nil, diag.Semanticf(e.Pos(), "call to undefined function %q", name)
}

// binaryNode maps an infix operator onto target primitives. Operators the
// target lacks are synthesized from the ones it has.
func binaryNode(op token.Type, l, r ir.Node, pos token.Position) (ir.Node, error) {
	switch op {
	case token.PLUS:
		return ir.Call("+", l, r), nil
	case token.MINUS:
		return ir.Call("-", l, r), nil
	case token.STAR:
		return ir.Call("*", l, r), nil
	case token.SLASH:
		return ir.Call("/", l, r), nil
	case token.PERCENT:
		return ir.Call("r", ir.Call("divmod", l, r)), nil
	case token.EQ:
		return ir.Call("=", l, r), nil
	case token.NEQ:
		return ir.Call("not", ir.Call("=", l, r)), nil
	case token.GT:
		return ir.Call(">", l, r), nil
	case token.LT:
		return ir.Call(">", r, l), nil
	case token.LTE:
		return ir.Call("any", ir.Call(">", r, l), ir.Call("=", l, r)), nil
	case token.GTE:
		return ir.Call("any", ir.Call(">", l, r), ir.Call("=", l, r)), nil
	case token.GTS:
		return ir.Call(">s", l, r), nil
	case token.AND:
		return ir.Call("and", l, r), nil
	case token.OR:
		return ir.Call("or", l, r), nil
	case token.AMP:
		return ir.Call("logand", l, r), nil
	case token.PIPE:
		return ir.Call("logior", l, r), nil
	case token.CARET:
		return ir.Call("logxor", l, r), nil
	case token.LSHIFT:
		return ir.Call("ash", l, r), nil
	case token.RSHIFT:
		return ir.Call("ash", l, ir.Call("-", ir.I(0), r)), nil
	}
	return nil, diag.Semanticf(pos, "unsupported operator %s", op)
}

func unaryNode(op token.Type, x ir.Node, pos token.Position) (ir.Node, error) {
	switch op {
	case token.BANG:
		return ir.Call("not", x), nil
	case token.MINUS:
		return ir.Call("-", ir.I(0), x), nil
	case token.TILDE:
		return ir.Call("lognot", x), nil
	}
	return nil, diag.Semanticf(pos, "unsupported unary operator %s", op)
}
