// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ir

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// lineWidth is the column budget for a list kept on one line in indented
// output.
const lineWidth = 80

// Options controls Serialize.
type Options struct {
	// Indent, when non-empty, breaks lists that do not fit on one line and
	// indents their elements by this string per level.
	Indent string

	// Compiled selects the hex form of the binary tree encoding instead of
	// text.
	Compiled bool
}

// Serialize renders n as compact text, indented text, or the hex of its
// binary encoding.
func Serialize(n Node, opts Options) string {
	if opts.Compiled {
		return hex.EncodeToString(Encode(n))
	}
	var b strings.Builder
	if opts.Indent == "" {
		writeCompact(&b, n)
	} else {
		writeIndented(&b, n, opts.Indent, 0)
	}
	return b.String()
}

func writeAtom(b *strings.Builder, n Node) {
	switch x := n.(type) {
	case Symbol:
		b.WriteString(string(x))
	case *Int:
		b.WriteString(x.V.String())
	case Bytes:
		b.WriteString("0x")
		b.WriteString(hex.EncodeToString(x))
	case String:
		b.WriteString(strconv.Quote(string(x)))
	case nilNode:
		b.WriteString("()")
	}
}

func writeCompact(b *strings.Builder, n Node) {
	p, ok := n.(*Pair)
	if !ok {
		writeAtom(b, n)
		return
	}
	b.WriteByte('(')
	writeCompact(b, p.First)
	for {
		switch rest := p.Rest.(type) {
		case nilNode:
			b.WriteByte(')')
			return
		case *Pair:
			b.WriteByte(' ')
			writeCompact(b, rest.First)
			p = rest
		default:
			b.WriteString(" . ")
			writeAtom(b, rest)
			b.WriteByte(')')
			return
		}
	}
}

// writeIndented keeps a list on one line when it fits in lineWidth at the
// current depth; otherwise the head stays on the opening line and every
// further element goes on its own line one level deeper.
func writeIndented(b *strings.Builder, n Node, indent string, depth int) {
	p, ok := n.(*Pair)
	if !ok {
		writeAtom(b, n)
		return
	}
	var flat strings.Builder
	writeCompact(&flat, n)
	if depth*len(indent)+flat.Len() <= lineWidth {
		b.WriteString(flat.String())
		return
	}
	pad := "\n" + strings.Repeat(indent, depth+1)
	b.WriteByte('(')
	writeIndented(b, p.First, indent, depth+1)
	for {
		switch rest := p.Rest.(type) {
		case nilNode:
			b.WriteByte(')')
			return
		case *Pair:
			b.WriteString(pad)
			writeIndented(b, rest.First, indent, depth+1)
			p = rest
		default:
			b.WriteString(pad)
			b.WriteString(". ")
			writeAtom(b, rest)
			b.WriteByte(')')
			return
		}
	}
}
