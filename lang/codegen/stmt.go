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
)

// cont produces the compiled rest of a body given the bindings in effect
// where the rest begins.
type cont func(sc *scope) (ir.Node, error)

// body compiles one action or function. Statements are compiled in
// continuation-passing style: every statement receives the compiled rest of
// its block, so a binding made on one branch of an if is invisible to the
// other.
type body struct {
	ctx    *context
	owner  string      // "action \"x\"" or "function \"f\"", for diagnostics
	action *ast.Action // nil for functions

	params    map[string]ir.Node
	paramList []ir.Node // declared parameters in order
	state     ir.Node   // incoming state, nil when unavailable
	env       map[envInput]ir.Node
	envUsed   []envInput

	returnsValue bool
	final        cont // what `return;` and the end of the body produce

	// placeholder compiles the spliced body at `_;`; nil outside modifiers.
	placeholder func(sc *scope, k cont) (ir.Node, error)

	frame []ir.Node // parameters of the enclosing mod or defun
	joins *joinSink // nil copies the rest of a block into both arms of an if
}

func emptyConditions(*scope) (ir.Node, error) { return ir.Nil, nil }

func (b *body) block(stmts []ast.Stmt, sc *scope, k cont) (ir.Node, error) {
	if len(stmts) == 0 {
		return k(sc)
	}
	return b.stmt(stmts[0], sc, func(sc *scope) (ir.Node, error) {
		return b.block(stmts[1:], sc, k)
	})
}

func (b *body) stmt(s ast.Stmt, sc *scope, k cont) (ir.Node, error) {
	switch s := s.(type) {
	case *ast.RequireStmt:
		return b.require(s, sc, k)
	case *ast.SendStmt:
		return b.send(s, sc, k)
	case *ast.EmitStmt:
		return b.emit(s, sc, k)
	case *ast.FailStmt:
		if s.Message == nil {
			return ir.Call("x"), nil
		}
		msg, err := b.expr(s.Message, sc)
		if err != nil {
			return nil, err
		}
		return ir.Call("x", msg), nil
	case *ast.IfStmt:
		return b.ifStmt(s, sc, k)
	case *ast.AssignStmt:
		return b.assign(s, sc, k)
	case *ast.ExprStmt:
		return b.exprStmt(s, sc, k)
	case *ast.ReturnStmt:
		if s.Value == nil {
			return b.final(sc)
		}
		if !b.returnsValue {
			return nil, diag.Semanticf(s.Pos(), "%s cannot return a value; only functions and view or pure actions can", b.owner)
		}
		return b.expr(s.Value, sc)
	case *ast.PlaceholderStmt:
		if b.placeholder == nil {
			return nil, diag.Semanticf(s.Pos(), "_; is only allowed in a modifier body")
		}
		return b.placeholder(sc, k)
	}
	return nil, fmt.Errorf("unsupported statement %T", s)
}

func (b *body) require(s *ast.RequireStmt, sc *scope, k cont) (ir.Node, error) {
	if signer, ok := senderCheck(s.Cond); ok {
		if b.action == nil {
			return nil, diag.Semanticf(s.Pos(), "msg.sender is only available in actions")
		}
		key, err := b.expr(signer, sc)
		if err != nil {
			return nil, err
		}
		rest, err := k(sc)
		if err != nil {
			return nil, err
		}
		message := ir.Call("sha256tree", ir.Call("list", b.paramList...))
		return ir.Call("c", ir.Call("list", ir.Sym(condAggSigMe), key, message), rest), nil
	}
	cond, err := b.expr(s.Cond, sc)
	if err != nil {
		return nil, err
	}
	fail := ir.Call("x")
	if s.Message != nil {
		msg, err := b.expr(s.Message, sc)
		if err != nil {
			return nil, err
		}
		fail = ir.Call("x", msg)
	}
	rest, err := k(sc)
	if err != nil {
		return nil, err
	}
	return ir.Call("if", cond, rest, fail), nil
}

func (b *body) send(s *ast.SendStmt, sc *scope, k cont) (ir.Node, error) {
	var (
		to  ir.Node
		err error
	)
	if lit, ok := s.To.(*ast.StringLit); ok {
		to, err = b.ctx.stringLiteral(lit)
	} else {
		to, err = b.expr(s.To, sc)
	}
	if err != nil {
		return nil, err
	}
	amount, err := b.expr(s.Amount, sc)
	if err != nil {
		return nil, err
	}
	args := []ir.Node{ir.Sym(condCreateCoin), to, amount}
	if s.Memo != nil {
		memo, err := b.expr(s.Memo, sc)
		if err != nil {
			return nil, err
		}
		args = append(args, ir.Call("list", memo))
	}
	rest, err := k(sc)
	if err != nil {
		return nil, err
	}
	return ir.Call("c", ir.Call("list", args...), rest), nil
}

// emit announces the payload only; the event name never reaches the chain.
func (b *body) emit(s *ast.EmitStmt, sc *scope, k cont) (ir.Node, error) {
	if ev, ok := b.ctx.events[s.Event]; ok && len(ev.Params) != len(s.Args) {
		return nil, diag.Semanticf(s.Pos(), "event %s takes %d arguments, got %d", s.Event, len(ev.Params), len(s.Args))
	}
	args, err := b.exprs(s.Args, sc)
	if err != nil {
		return nil, err
	}
	var payload ir.Node
	switch len(args) {
	case 0:
		payload = ir.Nil
	case 1:
		payload = args[0]
	default:
		payload = ir.Call("sha256tree", ir.Call("list", args...))
	}
	rest, err := k(sc)
	if err != nil {
		return nil, err
	}
	return ir.Call("c", ir.Call("list", ir.Sym(condCreateCoinAnnouncement), payload), rest), nil
}

var compoundOps = map[string]token.Type{
	"+=": token.PLUS,
	"-=": token.MINUS,
	"*=": token.STAR,
	"/=": token.SLASH,
	"%=": token.PERCENT,
}

// assign records a binding for the rest of the block. Nothing is emitted.
func (b *body) assign(s *ast.AssignStmt, sc *scope, k cont) (ir.Node, error) {
	value, err := b.expr(s.Value, sc)
	if err != nil {
		return nil, err
	}
	if op, ok := compoundOps[s.Op]; ok {
		cur, err := b.expr(s.Target, sc)
		if err != nil {
			return nil, err
		}
		if value, err = binaryNode(op, cur, value, s.Pos()); err != nil {
			return nil, err
		}
	}
	if field, ok := ast.IsStateRef(s.Target); ok {
		if field == "" {
			return nil, diag.Semanticf(s.Pos(), "cannot assign to state as a whole")
		}
		if b.action == nil || !isStateful(b.action) {
			return nil, diag.Semanticf(s.Pos(), "%s writes state but is not @stateful", b.owner)
		}
		if _, known := b.ctx.stateIndex[field]; !known {
			return nil, diag.Semanticf(s.Pos(), "unknown state field %q", field)
		}
		return k(sc.bind(statePrefix+field, value))
	}
	id, ok := s.Target.(*ast.Ident)
	if !ok {
		return nil, diag.Semanticf(s.Pos(), "cannot assign to %s", s.Target)
	}
	if _, isStorage := b.ctx.storage[id.Name]; isStorage && s.DeclType == nil {
		return nil, diag.Semanticf(s.Pos(), "cannot assign to storage variable %q", id.Name)
	}
	return k(sc.bind(id.Name, value))
}

// exprStmt prepends the condition of a condition built-in. Any other
// expression statement has no on-chain effect and is dropped once it has
// been checked.
func (b *body) exprStmt(s *ast.ExprStmt, sc *scope, k cont) (ir.Node, error) {
	v, err := b.expr(s.Expr, sc)
	if err != nil {
		return nil, err
	}
	if call, ok := s.Expr.(*ast.CallExpr); ok {
		if bi, ok := builtins[calleeName(call)]; ok && bi.kind == builtinCond {
			rest, err := k(sc)
			if err != nil {
				return nil, err
			}
			return ir.Call("c", v, rest), nil
		}
	}
	return k(sc)
}

// ---- Actions, modifiers and functions --------------------------------------

// newActionBody prepares the compiler for one action. With args nil the
// declared and implicit parameters are plain symbols; otherwise they are
// read positionally from args.
func (c *context) newActionBody(a *ast.Action, args, state ir.Node) *body {
	b := &body{
		ctx:          c,
		owner:        fmt.Sprintf("action %q", a.Name),
		action:       a,
		params:       make(map[string]ir.Node),
		state:        state,
		env:          make(map[envInput]ir.Node),
		envUsed:      c.envUsage(a),
		returnsValue: a.View || a.Pure,
		final:        emptyConditions,
	}
	slot := func(i int, name string) ir.Node {
		if args == nil {
			return ir.Sym(name)
		}
		return nth(args, i)
	}
	for i, p := range a.Params {
		v := slot(i, p.Name)
		b.params[p.Name] = v
		b.paramList = append(b.paramList, v)
	}
	for j, in := range b.envUsed {
		b.env[in] = slot(len(a.Params)+j, envInputs[in].symbol)
	}
	if isStateful(a) {
		b.final = b.stateConditions
	}
	return b
}

// implicitParams returns the symbols of the environment inputs in use.
func (b *body) implicitParams() []ir.Node {
	out := make([]ir.Node, len(b.envUsed))
	for i, in := range b.envUsed {
		out[i] = ir.Sym(envInputs[in].symbol)
	}
	return out
}

// stateConditions ends a stateful path with the state marker carrying the
// full reconstructed state: written fields take their new value, the rest
// are re-read from the incoming state.
func (b *body) stateConditions(sc *scope) (ir.Node, error) {
	fields := make([]ir.Node, len(b.ctx.stateFields))
	for i, f := range b.ctx.stateFields {
		if v, ok := sc.lookup(statePrefix + f.Name); ok {
			fields[i] = v
		} else {
			fields[i] = nth(b.state, i)
		}
	}
	marker := ir.Call("list", ir.I(stateMarker), ir.Call("list", fields...))
	return ir.Call("c", marker, ir.Nil), nil
}

// compile compiles the action with its modifiers and prepends the
// assertions binding every environment input it reads.
func (b *body) compile() (ir.Node, error) {
	node, err := b.modified(0, nil, b.final)
	if err != nil {
		return nil, err
	}
	if b.returnsValue {
		return node, nil
	}
	for i := len(b.envUsed) - 1; i >= 0; i-- {
		in := b.envUsed[i]
		assertion := ir.Call("list", ir.Sym(envInputs[in].assertion), b.env[in])
		node = ir.Call("c", assertion, node)
	}
	return node, nil
}

// modified compiles modifier i around the rest of the chain. Modifier
// parameters are locals of the modifier body only; state writes made on
// either side of `_;` flow through.
func (b *body) modified(i int, sc *scope, k cont) (ir.Node, error) {
	a := b.action
	prev := b.placeholder
	defer func() { b.placeholder = prev }()

	if i == len(a.Modifiers) {
		b.placeholder = nil
		return b.block(a.Body, sc, k)
	}
	ref := a.Modifiers[i]
	m := b.ctx.modifiers[ref.Name]
	if len(ref.Args) != len(m.Params) {
		return nil, diag.Semanticf(ref.Token.Pos, "modifier %s takes %d arguments, got %d", m.Name, len(m.Params), len(ref.Args))
	}
	entry := sc
	for j, p := range m.Params {
		v, err := b.expr(ref.Args[j], sc)
		if err != nil {
			return nil, err
		}
		entry = entry.bind(p.Name, v)
	}
	outer := sc
	b.placeholder = func(at *scope, rest cont) (ir.Node, error) {
		inner := carryState(at, entry, outer)
		return b.modified(i+1, inner, func(done *scope) (ir.Node, error) {
			return rest(carryState(done, inner, at))
		})
	}
	return b.block(m.Body, entry, k)
}

// compileFunction emits (defun name (params) body), or defun-inline. Join
// defuns of the body go to joins.
func (c *context) compileFunction(fn *ast.Function, joins *joinSink) (ir.Node, error) {
	b := &body{
		ctx:          c,
		owner:        fmt.Sprintf("function %q", fn.Name),
		params:       make(map[string]ir.Node),
		returnsValue: true,
		final:        emptyConditions,
	}
	params := make([]ir.Node, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = ir.Sym(p.Name)
		b.params[p.Name] = params[i]
	}
	b.frame, b.joins = params, joins
	node, err := b.block(fn.Body, nil, b.final)
	if err != nil {
		return nil, err
	}
	kw := "defun"
	if fn.Inline {
		kw = "defun-inline"
	}
	return ir.Call(kw, ir.Sym(fn.Name), ir.List(params...), node), nil
}
