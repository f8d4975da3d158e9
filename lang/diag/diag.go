// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package diag defines the compiler's error taxonomy.
//
// Every stage of the pipeline stops at its first problem and reports it as a
// *Error carrying the kind of failure and the source position it refers to.
package diag

import (
	"fmt"
	"strings"

	"github.com/probechain/coinscript/lang/token"
)

// Kind classifies a compile error by the stage that detected it.
type Kind int

const (
	Lexical Kind = iota
	Syntax
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	case Semantic:
		return "semantic"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a positioned compile error.
type Error struct {
	Kind     Kind
	Pos      token.Position
	Msg      string
	Expected []string // token kinds the parser would have accepted
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Pos.Line > 0 {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	b.WriteString(" error: ")
	b.WriteString(e.Msg)
	if len(e.Expected) > 0 {
		b.WriteString(" (expected ")
		b.WriteString(strings.Join(e.Expected, " or "))
		b.WriteString(")")
	}
	return b.String()
}

// Lexf returns a lexical error at pos.
func Lexf(pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: Lexical, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Syntaxf returns a syntax error at pos.
func Syntaxf(pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: Syntax, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Expected returns a syntax error reporting the token found where one of
// the expected kinds was required.
func Expected(got token.Token, want ...token.Type) *Error {
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = w.String()
	}
	found := got.Type.String()
	if got.Literal != "" && got.Type != token.EOF {
		found = fmt.Sprintf("%s (%q)", got.Type, got.Literal)
	}
	return &Error{
		Kind:     Syntax,
		Pos:      got.Pos,
		Msg:      "unexpected " + found,
		Expected: names,
	}
}

// Semanticf returns a semantic error at pos.
func Semanticf(pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: Semantic, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
