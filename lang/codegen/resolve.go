// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/probechain/coinscript/common/bech32"
	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/parser"
	"github.com/probechain/coinscript/lang/token"
	"github.com/probechain/coinscript/lang/types"
)

var (
	errNegativeOperand = errors.New("negative operand in unsigned arithmetic")
	errUintOverflow    = errors.New("unsigned arithmetic overflows 256 bits")
)

// resolve folds every compile-time value, registers functions, modifiers
// and events, indexes state fields and checks state access. It must run
// before any body is compiled.
func (c *context) resolve() error {
	var ctor *ast.Constructor
	for _, d := range c.coin.Decls {
		if k, ok := d.(*ast.Constructor); ok {
			if ctor != nil {
				return diag.Semanticf(k.Pos(), "coin %s declares more than one constructor", c.coin.Name)
			}
			ctor = k
		}
	}
	if ctor != nil {
		if err := c.bindConstructorArgs(ctor); err != nil {
			return err
		}
	}
	actions := make(map[string]bool)
	for _, d := range c.coin.Decls {
		switch d := d.(type) {
		case *ast.StorageVar:
			if err := c.define(d.Name, d.Type, d.Value, d.Pos()); err != nil {
				return err
			}
		case *ast.Const:
			if err := c.define(d.Name, d.Type, d.Value, d.Pos()); err != nil {
				return err
			}
		case *ast.StateField:
			if _, dup := c.stateIndex[d.Name]; dup {
				return diag.Semanticf(d.Pos(), "state field %q redeclared", d.Name)
			}
			if _, err := types.FromAST(d.Type); err != nil {
				return err
			}
			c.stateIndex[d.Name] = len(c.stateFields)
			c.stateFields = append(c.stateFields, d)
		case *ast.Function:
			if _, dup := c.functions[d.Name]; dup {
				return diag.Semanticf(d.Pos(), "function %q redeclared", d.Name)
			}
			if _, builtin := builtins[d.Name]; builtin {
				return diag.Semanticf(d.Pos(), "function %q shadows a built-in", d.Name)
			}
			c.functions[d.Name] = d
			c.funcOrder = append(c.funcOrder, d)
		case *ast.Modifier:
			if _, dup := c.modifiers[d.Name]; dup {
				return diag.Semanticf(d.Pos(), "modifier %q redeclared", d.Name)
			}
			c.modifiers[d.Name] = d
		case *ast.Event:
			if _, dup := c.events[d.Name]; dup {
				return diag.Semanticf(d.Pos(), "event %q redeclared", d.Name)
			}
			c.events[d.Name] = d
		case *ast.Layer:
			c.layerDecls = append(c.layerDecls, d)
		case *ast.Action:
			if actions[d.Name] {
				return diag.Semanticf(d.Pos(), "action %q redeclared", d.Name)
			}
			actions[d.Name] = true
		case *ast.Constructor:
		}
	}
	if err := c.checkNames(); err != nil {
		return err
	}
	if err := c.resolveInitialState(ctor); err != nil {
		return err
	}
	return c.checkActions()
}

// targetOperators are names a user function may not take, since a call to
// it would be read as the operator.
var targetOperators = map[string]bool{
	"q": true, "a": true, "i": true, "c": true, "f": true, "r": true, "l": true, "x": true,
	"if": true, "=": true, "+": true, "-": true, "*": true, "/": true, ">": true, ">s": true,
	"not": true, "any": true, "all": true, "and": true, "or": true, "list": true,
	"mod": true, "defun": true, "defun-inline": true, "defmacro": true, "include": true,
	"divmod": true, "ash": true, "lsh": true, "logand": true, "logior": true, "logxor": true,
	"lognot": true, "strlen": true, "substr": true, "concat": true, "sha256": true,
	"coinid": true, "softfork": true, "assert": true,
}

// reservedParams are bound by the generated programs themselves.
var reservedParams = map[string]bool{
	"state": true, "msg": true, "block": true, "this": true,
	symState: true, symAction: true, symActionArgs: true,
}

func init() {
	for _, in := range envInputs {
		reservedParams[in.symbol] = true
	}
}

// checkNames rejects function names the target reads as operators,
// parameters that shadow storage or generated symbols, and modifiers
// without exactly one `_;`.
func (c *context) checkNames() error {
	checkParams := func(owner string, params []*ast.Param) error {
		seen := make(map[string]bool)
		for _, p := range params {
			if reservedParams[p.Name] {
				return diag.Semanticf(p.Pos(), "%s: parameter name %q is reserved", owner, p.Name)
			}
			if _, ok := c.storage[p.Name]; ok {
				return diag.Semanticf(p.Pos(), "%s: parameter %q shadows storage", owner, p.Name)
			}
			if seen[p.Name] {
				return diag.Semanticf(p.Pos(), "%s: duplicate parameter %q", owner, p.Name)
			}
			seen[p.Name] = true
		}
		return nil
	}
	for _, fn := range c.funcOrder {
		if targetOperators[fn.Name] {
			return diag.Semanticf(fn.Pos(), "function name %q collides with a target operator", fn.Name)
		}
		if err := checkParams("function "+fn.Name, fn.Params); err != nil {
			return err
		}
	}
	for _, d := range c.coin.Decls {
		switch d := d.(type) {
		case *ast.Action:
			if err := checkParams("action "+d.Name, d.Params); err != nil {
				return err
			}
		case *ast.Modifier:
			if err := checkParams("modifier "+d.Name, d.Params); err != nil {
				return err
			}
			var placeholders int
			inspect(d.Body, func(n ast.Node) bool {
				if _, ok := n.(*ast.PlaceholderStmt); ok {
					placeholders++
				}
				return true
			})
			if placeholders != 1 {
				return diag.Semanticf(d.Pos(), "modifier %s must contain exactly one _; (found %d)", d.Name, placeholders)
			}
		}
	}
	return nil
}

// define folds a storage variable or constant into the substitution table.
func (c *context) define(name string, typ ast.TypeExpr, value ast.Expr, pos token.Position) error {
	if _, dup := c.storage[name]; dup {
		return diag.Semanticf(pos, "%q redeclared", name)
	}
	t, err := types.FromAST(typ)
	if err != nil {
		return err
	}
	v, err := c.foldTyped(value, t)
	if err != nil {
		return err
	}
	c.storage[name] = v
	c.storageTypes[name] = t
	return nil
}

func (c *context) bindConstructorArgs(ctor *ast.Constructor) error {
	for _, p := range ctor.Params {
		text, ok := c.cfg.ConstructorArgs[p.Name]
		if !ok {
			return diag.Semanticf(p.Pos(), "missing constructor argument %q", p.Name)
		}
		e, err := parser.ParseExpr(text)
		if err != nil {
			return diag.Semanticf(p.Pos(), "constructor argument %q: %v", p.Name, err)
		}
		t, err := types.FromAST(p.Type)
		if err != nil {
			return err
		}
		v, err := c.foldTyped(e, t)
		if err != nil {
			return diag.Semanticf(p.Pos(), "constructor argument %q: %v", p.Name, err)
		}
		if _, dup := c.storage[p.Name]; dup {
			return diag.Semanticf(p.Pos(), "%q redeclared", p.Name)
		}
		c.storage[p.Name] = v
		c.storageTypes[p.Name] = t
	}
	return nil
}

// resolveInitialState picks each field's initial value: a constructor
// assignment, else the declared initializer, else 0.
func (c *context) resolveInitialState(ctor *ast.Constructor) error {
	assigned := make(map[string]ir.Node)
	if ctor != nil {
		locals := make(map[string]ir.Node)
		for _, s := range ctor.Body {
			as, ok := s.(*ast.AssignStmt)
			if !ok {
				return diag.Semanticf(s.Pos(), "constructor body may only assign state fields and locals")
			}
			if as.Op != "=" {
				return diag.Semanticf(as.Pos(), "compound assignment %s is not allowed in a constructor", as.Op)
			}
			v, err := c.foldWith(as.Value, locals, false)
			if err != nil {
				return err
			}
			if field, ok := ast.IsStateRef(as.Target); ok && field != "" {
				if _, known := c.stateIndex[field]; !known {
					return diag.Semanticf(as.Pos(), "unknown state field %q", field)
				}
				assigned[field] = v
				continue
			}
			if id, ok := as.Target.(*ast.Ident); ok && id.Name != "state" {
				locals[id.Name] = v
				continue
			}
			return diag.Semanticf(as.Pos(), "cannot assign to %s in a constructor", as.Target)
		}
	}
	c.initialState = make([]ir.Node, len(c.stateFields))
	for i, f := range c.stateFields {
		switch {
		case assigned[f.Name] != nil:
			c.initialState[i] = assigned[f.Name]
		case f.Value != nil:
			t, err := types.FromAST(f.Type)
			if err != nil {
				return err
			}
			v, err := c.foldTyped(f.Value, t)
			if err != nil {
				return err
			}
			c.initialState[i] = v
		default:
			c.initialState[i] = ir.I(0)
		}
	}
	return nil
}

// checkActions validates action classification and rejects state access
// from actions that are neither @stateful nor view/pure.
func (c *context) checkActions() error {
	actions := c.coin.Actions()
	if len(actions) == 0 {
		return diag.Semanticf(c.coin.Pos(), "coin %s declares no actions", c.coin.Name)
	}
	var seenDefault bool
	for _, a := range actions {
		if isStateful(a) && isInnerPuzzle(a) {
			return diag.Semanticf(a.Pos(), "action %q cannot be both @stateful and @inner_puzzle", a.Name)
		}
		if isDefault(a) {
			if seenDefault {
				return diag.Semanticf(a.Pos(), "more than one default action")
			}
			seenDefault = true
			if isStateful(a) || isInnerPuzzle(a) {
				return diag.Semanticf(a.Pos(), "default action cannot be @stateful or @inner_puzzle")
			}
		}
		for _, ref := range a.Modifiers {
			if _, ok := c.modifiers[ref.Name]; !ok {
				return diag.Semanticf(ref.Token.Pos, "action %q uses unknown modifier %q", a.Name, ref.Name)
			}
		}
		if err := c.checkStateAccess(a); err != nil {
			return err
		}
	}
	return nil
}

func (c *context) checkStateAccess(a *ast.Action) error {
	var err error
	for _, body := range c.actionBodies(a) {
		inspect(body, func(n ast.Node) bool {
			if err != nil {
				return false
			}
			switch n := n.(type) {
			case *ast.AssignStmt:
				if _, ok := ast.IsStateRef(n.Target); ok && !isStateful(a) {
					err = diag.Semanticf(n.Pos(), "action %q writes state but is not @stateful", a.Name)
				}
			case ast.Expr:
				if _, ok := ast.IsStateRef(n); ok && !isStateful(a) && !a.View && !a.Pure {
					err = diag.Semanticf(n.Pos(), "action %q reads state but is not @stateful, view or pure", a.Name)
				}
			}
			return err == nil
		})
	}
	return err
}

// ---- Folding ---------------------------------------------------------------

// foldTyped folds e and checks the value against the declared type.
func (c *context) foldTyped(e ast.Expr, t types.Type) (ir.Node, error) {
	v, err := c.foldWith(e, nil, types.IsUnsigned(t))
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *ir.Int:
		if it, ok := t.(*types.IntType); ok {
			if err := it.CheckRange(x.V); err != nil {
				return nil, diag.Semanticf(e.Pos(), "%v", err)
			}
		}
	case ir.Bytes:
		if t == types.Address || t == types.Bytes32 {
			if len(x) != 32 {
				return nil, diag.Semanticf(e.Pos(), "%s value must be 32 bytes, got %d", t, len(x))
			}
		}
	}
	return v, nil
}

// foldWith evaluates a compile-time expression. Names resolve against
// locals first and then the substitution table. Unsigned arithmetic runs on
// 256-bit words and fails on overflow.
func (c *context) foldWith(e ast.Expr, locals map[string]ir.Node, unsigned bool) (ir.Node, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return ir.BigInt(e.Value), nil
	case *ast.HexLit:
		return ir.Hex(e.Value), nil
	case *ast.StringLit:
		return c.stringLiteral(e)
	case *ast.BoolLit:
		return boolNode(e.Value), nil
	case *ast.Ident:
		if v, ok := locals[e.Name]; ok {
			return v, nil
		}
		if v, ok := c.storage[e.Name]; ok {
			return v, nil
		}
		return nil, diag.Semanticf(e.Pos(), "%q is not a compile-time constant", e.Name)
	case *ast.UnaryExpr:
		v, err := c.foldWith(e.Operand, locals, unsigned)
		if err != nil {
			return nil, err
		}
		x, ok := v.(*ir.Int)
		if !ok || e.Op != token.MINUS {
			return nil, diag.Semanticf(e.Pos(), "cannot fold %s at compile time", e)
		}
		if unsigned && x.V.Sign() > 0 {
			return nil, diag.Semanticf(e.Pos(), "negative value in unsigned initializer")
		}
		return ir.BigInt(new(big.Int).Neg(x.V)), nil
	case *ast.BinaryExpr:
		return c.foldBinary(e, locals, unsigned)
	case *ast.CallExpr:
		return c.foldCall(e, locals, unsigned)
	case *ast.ListLit:
		return c.foldList(e.Elements, locals, unsigned)
	case *ast.ArrayLit:
		return c.foldList(e.Elements, locals, unsigned)
	}
	return nil, diag.Semanticf(e.Pos(), "cannot fold %s at compile time", e)
}

func (c *context) foldList(elems []ast.Expr, locals map[string]ir.Node, unsigned bool) (ir.Node, error) {
	items := make([]ir.Node, len(elems))
	for i, el := range elems {
		v, err := c.foldWith(el, locals, unsigned)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return ir.List(items...), nil
}

func (c *context) foldBinary(e *ast.BinaryExpr, locals map[string]ir.Node, unsigned bool) (ir.Node, error) {
	l, err := c.foldWith(e.Left, locals, unsigned)
	if err != nil {
		return nil, err
	}
	r, err := c.foldWith(e.Right, locals, unsigned)
	if err != nil {
		return nil, err
	}
	x, xok := l.(*ir.Int)
	y, yok := r.(*ir.Int)
	if !xok || !yok {
		return nil, diag.Semanticf(e.Pos(), "operator %s needs integer operands at compile time", e.Op)
	}
	switch e.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT:
	default:
		return nil, diag.Semanticf(e.Pos(), "operator %s cannot be folded", e.Op)
	}
	if (e.Op == token.SLASH || e.Op == token.PERCENT) && y.V.Sign() == 0 {
		return nil, diag.Semanticf(e.Pos(), "division by zero")
	}
	if unsigned {
		v, err := foldUnsigned(e.Op, x.V, y.V)
		if err != nil {
			return nil, diag.Semanticf(e.Pos(), "%v", err)
		}
		return ir.BigInt(v), nil
	}
	return ir.BigInt(foldSigned(e.Op, x.V, y.V)), nil
}

func foldUnsigned(op token.Type, x, y *big.Int) (*big.Int, error) {
	if x.Sign() < 0 || y.Sign() < 0 {
		return nil, errNegativeOperand
	}
	a, overflowA := uint256.FromBig(x)
	b, overflowB := uint256.FromBig(y)
	if overflowA || overflowB {
		return nil, errUintOverflow
	}
	var (
		z        uint256.Int
		overflow bool
	)
	switch op {
	case token.PLUS:
		_, overflow = z.AddOverflow(a, b)
	case token.MINUS:
		_, overflow = z.SubOverflow(a, b)
	case token.STAR:
		_, overflow = z.MulOverflow(a, b)
	case token.SLASH:
		z.Div(a, b)
	case token.PERCENT:
		z.Mod(a, b)
	}
	if overflow {
		return nil, errUintOverflow
	}
	return z.ToBig(), nil
}

// foldSigned uses floor division, matching the target machine.
func foldSigned(op token.Type, x, y *big.Int) *big.Int {
	z := new(big.Int)
	switch op {
	case token.PLUS:
		return z.Add(x, y)
	case token.MINUS:
		return z.Sub(x, y)
	case token.STAR:
		return z.Mul(x, y)
	}
	q, m := new(big.Int).QuoRem(x, y, new(big.Int))
	if m.Sign() != 0 && m.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		m.Add(m, y)
	}
	if op == token.SLASH {
		return q
	}
	return m
}

func (c *context) foldCall(e *ast.CallExpr, locals map[string]ir.Node, unsigned bool) (ir.Node, error) {
	name := calleeName(e)
	if types.IsName(name) {
		if len(e.Args) != 1 {
			return nil, diag.Semanticf(e.Pos(), "cast %s takes one argument", name)
		}
		return c.foldWith(e.Args[0], locals, unsigned)
	}
	if name != "sha256" && name != "keccak256" {
		return nil, diag.Semanticf(e.Pos(), "cannot fold call to %s at compile time", e.Fn)
	}
	var preimage bytes.Buffer
	for _, arg := range e.Args {
		v, err := c.foldWith(arg, locals, false)
		if err != nil {
			return nil, err
		}
		b, ok := ir.AtomBytes(v)
		if !ok {
			return nil, diag.Semanticf(arg.Pos(), "%s operand must be an atom", name)
		}
		preimage.Write(b)
	}
	if name == "sha256" {
		sum := sha256.Sum256(preimage.Bytes())
		return ir.Hex(sum[:]), nil
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(preimage.Bytes())
	return ir.Hex(h.Sum(nil)), nil
}

// stringLiteral converts address-like strings through the bech32 codec.
func (c *context) stringLiteral(e *ast.StringLit) (ir.Node, error) {
	if !bech32.HasAddressPrefix(e.Value, c.addressPrefixes()) {
		return ir.Str(e.Value), nil
	}
	hash, err := bech32.AddressToHash(e.Value)
	if err != nil {
		return nil, diag.Semanticf(e.Pos(), "invalid address literal %q: %v", e.Value, err)
	}
	return ir.Hex(hash[:]), nil
}

func (c *context) addressPrefixes() []string {
	if c.cfg.AddressPrefixes != nil {
		return c.cfg.AddressPrefixes
	}
	return bech32.DefaultPrefixes
}

func boolNode(b bool) ir.Node {
	if b {
		return ir.I(1)
	}
	return ir.Nil
}
