// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/layers"
	"github.com/probechain/coinscript/lang/token"
)

// Symbols bound by the dispatcher's parameter list.
const (
	symState      = "STATE"
	symAction     = "ACTION"
	symActionArgs = "ACTION_ARGS"
)

// synthesize compiles every action, assembles the direct program or the
// dispatcher, commits to the stateful sub-programs and applies the layers.
func (c *context) synthesize() (*Result, error) {
	res := &Result{
		Name:         c.coin.Name,
		InitialState: c.initialState,
	}
	for _, f := range c.stateFields {
		res.StateFields = append(res.StateFields, f.Name)
	}
	actions := c.coin.Actions()
	var (
		inner ir.Node
		err   error
	)
	if len(actions) == 1 && kindOf(actions[0]) != ActionStateful && kindOf(actions[0]) != ActionInnerPuzzle {
		res.Direct = true
		inner, err = c.direct(actions[0], res)
	} else {
		inner, err = c.dispatcher(actions, res)
	}
	if err != nil {
		return nil, err
	}
	res.Inner = inner
	if res.Program, err = c.wrapLayers(inner, res); err != nil {
		return nil, err
	}
	c.log.Debug("Synthesized program", "actions", len(res.Actions), "subprograms", len(res.SubPrograms), "direct", res.Direct)
	return res, nil
}

func kindOf(a *ast.Action) ActionKind {
	switch {
	case isStateful(a):
		return ActionStateful
	case isInnerPuzzle(a):
		return ActionInnerPuzzle
	case isDefault(a):
		return ActionDefault
	}
	return ActionTagged
}

func (c *context) stateParam() []ir.Node {
	if c.hasState() {
		return []ir.Node{ir.Sym(symState)}
	}
	return nil
}

func (c *context) stateSymbol() ir.Node {
	if c.hasState() {
		return ir.Sym(symState)
	}
	return nil
}

func actionInfo(a *ast.Action, b *body) ActionInfo {
	info := ActionInfo{Name: a.Name, Kind: kindOf(a), View: a.View || a.Pure}
	for _, p := range a.Params {
		info.Params = append(info.Params, p.Name)
	}
	for _, in := range b.envUsed {
		info.Env = append(info.Env, envInputs[in].symbol)
	}
	return info
}

// outerBodies returns the bodies whose code ends up in the outer program:
// the constructor and every action compiled inline.
func (c *context) outerBodies(actions []*ast.Action) [][]ast.Stmt {
	var bodies [][]ast.Stmt
	for _, d := range c.coin.Decls {
		if k, ok := d.(*ast.Constructor); ok {
			bodies = append(bodies, k.Body)
		}
	}
	for _, a := range actions {
		bodies = append(bodies, c.actionBodies(a)...)
	}
	return bodies
}

// direct emits a lone action without a dispatch tag:
// (mod ([STATE] params env) includes defuns body).
func (c *context) direct(a *ast.Action, res *Result) (ir.Node, error) {
	b := c.newActionBody(a, nil, c.stateSymbol())
	params := append(c.stateParam(), b.paramList...)
	params = append(params, b.implicitParams()...)
	joins := new(joinSink)
	b.frame, b.joins = params, joins
	node, err := b.compile()
	if err != nil {
		return nil, err
	}
	res.Actions = append(res.Actions, actionInfo(a, b))
	prog, includes, err := c.module(params, c.outerBodies([]*ast.Action{a}), node, joins)
	if err != nil {
		return nil, err
	}
	res.Includes = includes
	return prog, nil
}

// dispatcher emits (mod ([STATE] ACTION ACTION_ARGS) includes defuns CHAIN)
// where CHAIN tests the action tag against every non-default action in
// declaration order and falls back to the default action or (x).
func (c *context) dispatcher(actions []*ast.Action, res *Result) (ir.Node, error) {
	var (
		args     = ir.Sym(symActionArgs)
		state    = c.stateSymbol()
		arms     []ir.Node
		names    []string
		inline   []*ast.Action
		fallback = ir.Call("x")
		hashes   [][32]byte
		stateful []int // indexes into res.SubPrograms
		params   = append(c.stateParam(), ir.Sym(symAction), args)
		joins    = new(joinSink)
	)
	for _, a := range actions {
		var (
			arm ir.Node
			b   *body
			err error
		)
		switch kindOf(a) {
		case ActionStateful, ActionInnerPuzzle:
			var sub SubProgram
			if sub, b, err = c.subProgram(a); err != nil {
				return nil, err
			}
			slots := make([]ir.Node, len(a.Params)+len(b.envUsed))
			for i := range slots {
				slots[i] = nth(args, i)
			}
			if sub.Kind == ActionStateful {
				arm = ir.Call("a", ir.Quote(sub.Program), ir.Call("c", ir.Sym(symState), consArgs(slots)))
				hashes = append(hashes, sub.Hash)
				stateful = append(stateful, len(res.SubPrograms))
			} else {
				arm = ir.Call("a", ir.Quote(sub.Program), consArgs(slots))
			}
			res.SubPrograms = append(res.SubPrograms, sub)
		default:
			b = c.newActionBody(a, args, state)
			b.frame, b.joins = params, joins
			if arm, err = b.compile(); err != nil {
				return nil, err
			}
			inline = append(inline, a)
		}
		res.Actions = append(res.Actions, actionInfo(a, b))
		if isDefault(a) {
			fallback = arm
			continue
		}
		arms = append(arms, arm)
		names = append(names, a.Name)
	}
	chain := fallback
	for i := len(arms) - 1; i >= 0; i-- {
		test := ir.Call("=", ir.Sym(symAction), ir.Str(names[i]))
		chain = ir.Call("if", test, arms[i], chain)
	}
	if len(hashes) > 0 {
		c.commit(hashes, stateful, res)
	}
	prog, includes, err := c.module(params, c.outerBodies(inline), chain, joins)
	if err != nil {
		return nil, err
	}
	res.Includes = includes
	return prog, nil
}

// subProgram compiles a @stateful or @inner_puzzle action to a standalone
// program with its own includes and defuns.
func (c *context) subProgram(a *ast.Action) (SubProgram, *body, error) {
	kind := kindOf(a)
	var state ir.Node
	if kind == ActionStateful {
		state = ir.Sym(symState)
	}
	b := c.newActionBody(a, nil, state)
	var params []ir.Node
	if kind == ActionStateful {
		params = append(params, ir.Sym(symState))
	}
	params = append(params, b.paramList...)
	params = append(params, b.implicitParams()...)
	joins := new(joinSink)
	b.frame, b.joins = params, joins
	node, err := b.compile()
	if err != nil {
		return SubProgram{}, nil, err
	}
	prog, includes, err := c.module(params, c.actionBodies(a), node, joins)
	if err != nil {
		return SubProgram{}, nil, err
	}
	sub := SubProgram{
		Action:   a.Name,
		Kind:     kind,
		Program:  prog,
		Hash:     ir.TreeHash(prog),
		Includes: includes,
	}
	c.log.Trace("Compiled sub-program", "action", a.Name, "kind", kind, "hash", ir.Hex(sub.Hash[:]))
	return sub, b, nil
}

// commit computes the merkle root over the stateful sub-program hashes and
// attaches proofs in tree mode.
func (c *context) commit(hashes [][32]byte, stateful []int, res *Result) {
	var root [32]byte
	switch c.cfg.Merkle {
	case MerkleTree:
		var proofs [][]ProofStep
		root, proofs = merkleTree(hashes)
		for i, idx := range stateful {
			res.SubPrograms[idx].Proof = proofs[i]
		}
	default:
		root = merkleConcat(hashes)
	}
	res.MerkleRoot = root[:]
	c.log.Debug("Committed stateful actions", "mode", c.cfg.Merkle, "count", len(hashes), "root", ir.Hex(root[:]))
}

// module assembles (mod (params) (include ...) (defun ...) body). Only
// functions reachable from bodies are emitted, in declaration order, followed
// by the join defuns of the body and of those functions.
func (c *context) module(params []ir.Node, bodies [][]ast.Stmt, body ir.Node, joins *joinSink) (ir.Node, []string, error) {
	fns := c.usedFunctions(bodies)
	scanned := bodies
	for _, fn := range fns {
		scanned = append(scanned, fn.Body)
	}
	includes := c.resolveIncludes(scanFeatures(scanned))

	items := []ir.Node{ir.Sym("mod"), ir.List(params...)}
	for _, inc := range includes {
		items = append(items, ir.Call("include", ir.Sym(inc)))
	}
	for _, fn := range fns {
		def, err := c.compileFunction(fn, joins)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, def)
	}
	items = append(items, joins.defs...)
	items = append(items, body)
	return ir.List(items...), includes, nil
}

// wrapLayers applies, innermost first, the implicit action or state layer,
// the explicit layer declarations and the coin decorators.
func (c *context) wrapLayers(program ir.Node, res *Result) (ir.Node, error) {
	initial := ir.List(c.initialState...)
	var err error
	switch {
	case res.MerkleRoot != nil:
		program, err = layers.Wrap(layers.Action, program, []layers.Param{
			{Name: "merkle_root", Value: ir.Hex(res.MerkleRoot)},
			{Name: "initial_state", Value: initial},
		})
	case len(c.stateFields) > 0:
		program, err = layers.Wrap(layers.State, program, []layers.Param{
			{Name: "initial_state", Value: initial},
		})
	}
	if err != nil {
		return nil, err
	}
	for _, d := range c.layerDecls {
		params := make([]layers.Param, len(d.Args))
		for i, arg := range d.Args {
			v, err := c.layerArg(arg.Value)
			if err != nil {
				return nil, err
			}
			params[i] = layers.Param{Name: arg.Name, Value: v}
		}
		if program, err = c.applyLayer(d.Name, d.Pos(), program, params); err != nil {
			return nil, err
		}
	}
	for _, dec := range c.coin.Decorators {
		params := make([]layers.Param, len(dec.Args))
		for i, arg := range dec.Args {
			v, err := c.layerArg(arg)
			if err != nil {
				return nil, err
			}
			params[i] = layers.Param{Value: v}
		}
		if program, err = c.applyLayer(dec.Name, dec.Pos(), program, params); err != nil {
			return nil, err
		}
	}
	return program, nil
}

func (c *context) applyLayer(name string, pos token.Position, program ir.Node, params []layers.Param) (ir.Node, error) {
	kind, ok := layers.Lookup(name)
	if !ok {
		return nil, diag.Semanticf(pos, "unknown layer %q", name)
	}
	wrapped, err := layers.Wrap(kind, program, params)
	if err != nil {
		return nil, diag.Semanticf(pos, "%v", err)
	}
	return wrapped, nil
}

// layerArg folds a layer argument. A bare name that does not fold is
// passed through as a symbol for the layer module to resolve.
func (c *context) layerArg(e ast.Expr) (ir.Node, error) {
	v, err := c.foldWith(e, nil, false)
	if err == nil {
		return v, nil
	}
	if id, ok := e.(*ast.Ident); ok {
		return ir.Sym(id.Name), nil
	}
	return nil, err
}
