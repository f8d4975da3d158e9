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
	"strings"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/ir"
)

// joinInlineLimit is the largest rest of a block, in tree nodes, that is
// copied into every arm reaching it instead of being hoisted into a defun.
const joinInlineLimit = 32

// joinMark heads the placeholder an arm returns when it falls through.
const joinMark = "join-mark"

// joinSink collects the join defuns of one module. Names are numbered per
// module so a sub-program does not depend on what was compiled before it.
type joinSink struct {
	count int
	defs  []ir.Node
}

func (s *joinSink) name() string {
	s.count++
	return fmt.Sprintf("join-%d", s.count)
}

// joinUse is one path of an if falling through to the rest of the block.
type joinUse struct {
	mark *ir.Pair
	at   *scope
}

// ifStmt compiles both arms of an if against placeholders, then compiles
// the rest of the block once and puts it, or a call to it, where each
// placeholder stands.
func (b *body) ifStmt(s *ast.IfStmt, sc *scope, k cont) (ir.Node, error) {
	cond, err := b.expr(s.Cond, sc)
	if err != nil {
		return nil, err
	}
	if b.joins == nil {
		then, err := b.block(s.Then, sc, k)
		if err != nil {
			return nil, err
		}
		els, err := b.block(s.Else, sc, k)
		if err != nil {
			return nil, err
		}
		return ir.Call("if", cond, then, els), nil
	}
	var uses []joinUse
	reach := func(at *scope) (ir.Node, error) {
		u := joinUse{mark: &ir.Pair{First: ir.Sym(joinMark), Rest: ir.Nil}, at: at}
		uses = append(uses, u)
		return u.mark, nil
	}
	start := len(b.joins.defs)
	then, err := b.block(s.Then, sc, reach)
	if err != nil {
		return nil, err
	}
	els, err := b.block(s.Else, sc, reach)
	if err != nil {
		return nil, err
	}
	node := ir.Call("if", cond, then, els)
	if len(uses) == 0 {
		return node, nil
	}
	// Defuns hoisted while compiling the arms may hold marks too.
	end := len(b.joins.defs)
	targets, err := b.joinTargets(sc, uses, k)
	if err != nil {
		return nil, err
	}
	marks := make(map[*ir.Pair]ir.Node, len(uses))
	for i, u := range uses {
		marks[u.mark] = targets[i]
	}
	for i := start; i < end; i++ {
		b.joins.defs[i], _ = replaceMarks(b.joins.defs[i], marks)
	}
	node, _ = replaceMarks(node, marks)
	return node, nil
}

// joinTargets returns what each use continues with. The rest is compiled
// once with a fresh symbol for every binding an arm changed. A small rest
// without nested defuns is copied into each use; anything larger becomes
// (defun join-N (frame... carried...) rest) and each use calls it with the
// values it reaches the join with.
func (b *body) joinTargets(sc *scope, uses []joinUse, k cont) ([]ir.Node, error) {
	targets := make([]ir.Node, len(uses))
	inline := func() ([]ir.Node, error) {
		for i, u := range uses {
			rest, err := k(u.at)
			if err != nil {
				return nil, err
			}
			targets[i] = rest
		}
		return targets, nil
	}
	if len(uses) == 1 {
		return inline()
	}
	names, partial, ok := b.carried(sc, uses)
	if !ok {
		return inline()
	}
	count, ndefs := b.joins.count, len(b.joins.defs)
	name := b.joins.name()
	entry := sc
	params := append([]ir.Node{}, b.frame...)
	for _, n := range names {
		p := ir.Sym(name + "-" + strings.ReplaceAll(n, ".", "-"))
		params = append(params, p)
		entry = entry.bind(n, p)
	}
	// A name bound on some paths only must not reach the rest, which would
	// resolve it differently per path.
	unbound := make(map[*ir.Pair]bool, len(partial))
	for _, n := range partial {
		mark := &ir.Pair{First: ir.Sym(joinMark), Rest: ir.Nil}
		unbound[mark] = true
		entry = entry.bind(n, mark)
	}
	rest, err := k(entry)
	if err != nil {
		return nil, err
	}
	if len(unbound) > 0 && holdsAny(append([]ir.Node{rest}, b.joins.defs[ndefs:]...), unbound) {
		b.joins.count, b.joins.defs = count, b.joins.defs[:ndefs]
		return inline()
	}
	if len(b.joins.defs) == ndefs && treeSize(rest, joinInlineLimit) <= joinInlineLimit {
		b.joins.count = count
		if len(names) > 0 {
			return inline()
		}
		for i := range targets {
			targets[i] = rest
		}
		return targets, nil
	}
	b.joins.defs = append(b.joins.defs, ir.Call("defun", ir.Sym(name), ir.List(params...), rest))
	for i, u := range uses {
		args := append([]ir.Node{}, b.frame...)
		for _, n := range names {
			args = append(args, b.carriedValue(u.at, n))
		}
		targets[i] = ir.Call(name, args...)
	}
	return targets, nil
}

// carried splits the names bound on some path between sc and the join into
// those every path has a value for and those it does not. It reports false
// when a use does not descend from sc.
func (b *body) carried(sc *scope, uses []joinUse) (names, partial []string, ok bool) {
	var (
		all  []string
		seen = make(map[string]bool)
	)
	for _, u := range uses {
		var fresh []string
		for s := u.at; s != sc; s = s.parent {
			if s == nil {
				return nil, nil, false
			}
			if !seen[s.name] {
				seen[s.name] = true
				fresh = append(fresh, s.name)
			}
		}
		for i := len(fresh) - 1; i >= 0; i-- {
			all = append(all, fresh[i])
		}
	}
	for _, n := range all {
		if b.everywhere(sc, uses, n) {
			names = append(names, n)
		} else {
			partial = append(partial, n)
		}
	}
	return names, partial, true
}

func (b *body) everywhere(sc *scope, uses []joinUse, name string) bool {
	if _, ok := sc.lookup(name); ok {
		return true
	}
	if _, ok := b.params[name]; ok {
		return true
	}
	if strings.HasPrefix(name, statePrefix) && b.state != nil {
		return true
	}
	for _, u := range uses {
		if _, ok := u.at.lookup(name); !ok {
			return false
		}
	}
	return true
}

// carriedValue is the value of name where a use reaches the join: its
// binding, else the parameter, else the incoming state field.
func (b *body) carriedValue(at *scope, name string) ir.Node {
	if v, ok := at.lookup(name); ok {
		return v
	}
	if v, ok := b.params[name]; ok {
		return v
	}
	return nth(b.state, b.ctx.stateIndex[strings.TrimPrefix(name, statePrefix)])
}

// holdsAny reports whether any of nodes contains one of marks.
func holdsAny(nodes []ir.Node, marks map[*ir.Pair]bool) bool {
	found := false
	for _, n := range nodes {
		ir.Walk(n, func(x ir.Node) bool {
			if p, ok := x.(*ir.Pair); ok && marks[p] {
				found = true
			}
			return !found
		})
	}
	return found
}

// treeSize counts the nodes of n, stopping once the count exceeds limit.
func treeSize(n ir.Node, limit int) int {
	size := 0
	ir.Walk(n, func(ir.Node) bool {
		size++
		return size <= limit
	})
	return size
}

// replaceMarks substitutes marks by identity, sharing every subtree that
// holds none.
func replaceMarks(n ir.Node, marks map[*ir.Pair]ir.Node) (ir.Node, bool) {
	p, ok := n.(*ir.Pair)
	if !ok {
		return n, false
	}
	if v, ok := marks[p]; ok {
		return v, true
	}
	first, f := replaceMarks(p.First, marks)
	rest, r := replaceMarks(p.Rest, marks)
	if !f && !r {
		return p, false
	}
	return &ir.Pair{First: first, Rest: rest}, true
}
