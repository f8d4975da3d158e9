// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ir defines the target tree emitted by the CoinScript compiler.
//
// The tree is a binary cons structure whose leaves are atoms. Symbols name
// operators, macros and bound variables; integers, byte strings and quoted
// strings are literal atoms; Nil is the empty list. Lists are right-nested
// pairs terminated by Nil.
package ir

import (
	"bytes"
	"math/big"
)

// Node is a target tree node. The interface is sealed.
type Node interface {
	// String returns the compact text form of the node.
	String() string

	isNode()
}

// Pair is a cons cell.
type Pair struct {
	First Node
	Rest  Node
}

// Symbol is an operator or variable name.
type Symbol string

// Int is an integer atom.
type Int struct {
	V *big.Int
}

// Bytes is a byte string atom, written 0x...
type Bytes []byte

// String is a quoted string atom.
type String string

type nilNode struct{}

// Nil is the empty list.
var Nil Node = nilNode{}

func (*Pair) isNode()   {}
func (Symbol) isNode()  {}
func (*Int) isNode()    {}
func (Bytes) isNode()   {}
func (String) isNode()  {}
func (nilNode) isNode() {}

func (p *Pair) String() string  { return Serialize(p, Options{}) }
func (s Symbol) String() string { return string(s) }
func (i *Int) String() string   { return i.V.String() }
func (b Bytes) String() string  { return Serialize(b, Options{}) }
func (s String) String() string { return Serialize(s, Options{}) }
func (nilNode) String() string  { return "()" }

// ---- Constructors ----------------------------------------------------------

// Sym returns a symbol atom.
func Sym(name string) Node { return Symbol(name) }

// I returns an integer atom.
func I(v int64) Node { return &Int{V: big.NewInt(v)} }

// BigInt returns an integer atom holding a copy of v.
func BigInt(v *big.Int) Node { return &Int{V: new(big.Int).Set(v)} }

// Hex returns a byte string atom holding a copy of b.
func Hex(b []byte) Node { return Bytes(append([]byte{}, b...)) }

// Str returns a quoted string atom.
func Str(s string) Node { return String(s) }

// Cons returns the pair (first . rest).
func Cons(first, rest Node) Node { return &Pair{First: first, Rest: rest} }

// List returns the proper list of items.
func List(items ...Node) Node {
	out := Nil
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out
}

// Call returns the application (op args...).
func Call(op string, args ...Node) Node {
	return Cons(Symbol(op), List(args...))
}

// Quote returns (q . n).
func Quote(n Node) Node { return Cons(Symbol("q"), n) }

// Curry applies mod to an environment with args bound in front of the
// caller's solution: (a (q . MOD) (c (q . a1) ... (c (q . an) 1))).
func Curry(mod Node, args ...Node) Node {
	env := Node(I(1))
	for i := len(args) - 1; i >= 0; i-- {
		env = Call("c", Quote(args[i]), env)
	}
	return Call("a", Quote(mod), env)
}

// ---- Inspection ------------------------------------------------------------

// Items returns the elements of a proper list. ok is false when n is not a
// proper list.
func Items(n Node) (items []Node, ok bool) {
	for {
		switch x := n.(type) {
		case nilNode:
			return items, true
		case *Pair:
			items = append(items, x.First)
			n = x.Rest
		default:
			return items, false
		}
	}
}

// IsNil reports whether n is the empty list.
func IsNil(n Node) bool {
	_, ok := n.(nilNode)
	return ok
}

// Head returns the symbol at the head of an application, or "".
func Head(n Node) string {
	if p, ok := n.(*Pair); ok {
		if s, ok := p.First.(Symbol); ok {
			return string(s)
		}
	}
	return ""
}

// Equal reports whether two trees are structurally identical. Atoms of
// different kinds never compare equal.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Pair:
		y, ok := b.(*Pair)
		return ok && Equal(x.First, y.First) && Equal(x.Rest, y.Rest)
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x == y
	case *Int:
		y, ok := b.(*Int)
		return ok && x.V.Cmp(y.V) == 0
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case String:
		y, ok := b.(String)
		return ok && x == y
	case nilNode:
		return IsNil(b)
	}
	return false
}

// Walk calls fn for n and every node beneath it in pre-order. Returning
// false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	if p, ok := n.(*Pair); ok {
		Walk(p.First, fn)
		Walk(p.Rest, fn)
	}
}
