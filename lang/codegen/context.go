// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"strings"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/types"
	"github.com/probechain/coinscript/log"
)

// context holds everything one compilation run knows about the coin. It is
// filled by the resolver and read by the body compilers; nothing in it
// changes once code generation starts.
type context struct {
	cfg  Config
	file *ast.File
	coin *ast.Coin
	log  log.Logger

	storage      map[string]ir.Node // folded storage, consts and constructor args
	storageTypes map[string]types.Type

	stateFields  []*ast.StateField
	stateIndex   map[string]int
	initialState []ir.Node

	functions map[string]*ast.Function
	funcOrder []*ast.Function
	modifiers map[string]*ast.Modifier
	events    map[string]*ast.Event

	layerDecls []*ast.Layer
}

func newContext(file *ast.File, cfg Config, logger log.Logger) *context {
	return &context{
		cfg:          cfg,
		file:         file,
		coin:         file.Coin,
		log:          logger,
		storage:      make(map[string]ir.Node),
		storageTypes: make(map[string]types.Type),
		stateIndex:   make(map[string]int),
		functions:    make(map[string]*ast.Function),
		modifiers:    make(map[string]*ast.Modifier),
		events:       make(map[string]*ast.Event),
	}
}

// hasState reports whether programs of this coin take a STATE argument.
func (c *context) hasState() bool {
	if len(c.stateFields) > 0 {
		return true
	}
	for _, a := range c.coin.Actions() {
		if isStateful(a) {
			return true
		}
	}
	return false
}

// scope is an immutable chain of bindings. Locals are keyed by name and
// pending state writes by "state.<field>"; the two never collide because
// `state` is reserved.
type scope struct {
	parent *scope
	name   string
	value  ir.Node
}

const statePrefix = "state."

func (s *scope) bind(name string, value ir.Node) *scope {
	return &scope{parent: s, name: name, value: value}
}

func (s *scope) lookup(name string) (ir.Node, bool) {
	for ; s != nil; s = s.parent {
		if s.name == name {
			return s.value, true
		}
	}
	return nil, false
}

// carryState rebinds onto `onto` every state write made in `from` since
// `stop`, oldest first.
func carryState(from, stop, onto *scope) *scope {
	var writes []*scope
	for s := from; s != nil && s != stop; s = s.parent {
		if strings.HasPrefix(s.name, statePrefix) {
			writes = append(writes, s)
		}
	}
	for i := len(writes) - 1; i >= 0; i-- {
		onto = onto.bind(writes[i].name, writes[i].value)
	}
	return onto
}

// nth returns (f (r ... (r list))) with i applications of r.
func nth(list ir.Node, i int) ir.Node {
	for ; i > 0; i-- {
		list = ir.Call("r", list)
	}
	return ir.Call("f", list)
}

// consArgs right-folds args into (c a1 (c a2 ... ())).
func consArgs(args []ir.Node) ir.Node {
	out := ir.Nil
	for i := len(args) - 1; i >= 0; i-- {
		out = ir.Call("c", args[i], out)
	}
	return out
}

func isStateful(a *ast.Action) bool    { return a.HasDecorator("stateful") }
func isInnerPuzzle(a *ast.Action) bool { return a.HasDecorator("inner_puzzle") }
func isDefault(a *ast.Action) bool     { return a.Name == "default" }
