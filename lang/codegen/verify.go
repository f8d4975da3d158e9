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
	"strconv"

	"github.com/probechain/coinscript/lang/ir"
)

// VerifyError describes a structural fault in a generated tree.
type VerifyError struct {
	Path    string
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify error at %s: %s", e.Path, e.Message)
}

// bound limits an operand count. max is -1 for no upper bound.
type bound struct{ min, max int }

func (b bound) String() string {
	switch {
	case b.min == b.max:
		return strconv.Itoa(b.min)
	case b.max < 0:
		return "at least " + strconv.Itoa(b.min)
	}
	return strconv.Itoa(b.min) + " to " + strconv.Itoa(b.max)
}

// arity holds the operators whose operand count is fixed.
var arity = map[string]bound{
	"if":         {3, 3},
	"c":          {2, 2},
	"a":          {2, 2},
	"f":          {1, 1},
	"r":          {1, 1},
	"l":          {1, 1},
	"not":        {1, 1},
	"lognot":     {1, 1},
	"strlen":     {1, 1},
	"sha256tree": {1, 1},
	"include":    {1, 1},
	"divmod":     {2, 2},
	"ash":        {2, 2},
	"=":          {2, 2},
	">":          {2, 2},
	">s":         {2, 2},
	"substr":     {2, 3},
}

// Verify checks a generated tree for structural safety, independently of
// the code generator that produced it:
//  1. Every application is a proper list
//  2. Fixed-arity operators get the right number of operands
//  3. mod and defun parameter lists are proper lists of symbols
//  4. Quoted sub-programs are verified like the outer program
func Verify(n ir.Node) []VerifyError {
	v := &verifier{}
	v.node(n, "root")
	return v.errs
}

type verifier struct {
	errs []VerifyError
}

func (v *verifier) fail(path, format string, args ...interface{}) {
	v.errs = append(v.errs, VerifyError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *verifier) node(n ir.Node, path string) {
	p, ok := n.(*ir.Pair)
	if !ok {
		return
	}
	head := ir.Head(n)
	if head == "q" {
		// Quoted data is opaque unless it is a program.
		if ir.Head(p.Rest) == "mod" {
			v.node(p.Rest, path+".q")
		}
		return
	}
	items, proper := ir.Items(n)
	if !proper {
		v.fail(path, "improper list")
		return
	}
	switch head {
	case "":
		v.fail(path, "application head %s is not an operator", items[0])
		return
	case "mod":
		if len(items) < 3 {
			v.fail(path, "mod needs a parameter list and a body")
			return
		}
		v.params(items[1], path+".1")
		v.children(items, 2, path)
		return
	case "defun", "defun-inline":
		if len(items) != 4 {
			v.fail(path, "%s needs a name, a parameter list and a body", head)
			return
		}
		if _, ok := items[1].(ir.Symbol); !ok {
			v.fail(path+".1", "%s name must be a symbol", head)
		}
		v.params(items[2], path+".2")
		v.children(items, 3, path)
		return
	}
	if lim, ok := arity[head]; ok {
		got := len(items) - 1
		if got < lim.min || (lim.max >= 0 && got > lim.max) {
			v.fail(path, "%s takes %s operands, got %d", head, lim, got)
		}
	}
	if head == "include" {
		return
	}
	v.children(items, 1, path)
}

func (v *verifier) children(items []ir.Node, from int, path string) {
	for i := from; i < len(items); i++ {
		v.node(items[i], path+"."+strconv.Itoa(i))
	}
}

func (v *verifier) params(n ir.Node, path string) {
	items, ok := ir.Items(n)
	if !ok {
		v.fail(path, "parameter list is not a proper list")
		return
	}
	seen := make(map[ir.Symbol]bool)
	for i, it := range items {
		sym, ok := it.(ir.Symbol)
		if !ok {
			v.fail(path+"."+strconv.Itoa(i), "parameter %s is not a symbol", it)
			continue
		}
		if seen[sym] {
			v.fail(path+"."+strconv.Itoa(i), "duplicate parameter %s", sym)
		}
		seen[sym] = true
	}
}
