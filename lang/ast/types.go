// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ast

import (
	"github.com/probechain/coinscript/lang/token"
)

// TypeExpr is a data type as written in the source.
type TypeExpr interface {
	Node
	typeNode()
}

// NamedType is a built-in type keyword. Name is lower-cased.
type NamedType struct {
	Token token.Token
	Name  string
}

// MappingType is mapping(Key => Value).
type MappingType struct {
	Token token.Token // 'mapping'
	Key   TypeExpr
	Value TypeExpr
}

// ArrayType is Elem[].
type ArrayType struct {
	Token token.Token // '['
	Elem  TypeExpr
}

func (t *NamedType) typeNode()   {}
func (t *MappingType) typeNode() {}
func (t *ArrayType) typeNode()   {}

func (t *NamedType) Pos() token.Position   { return t.Token.Pos }
func (t *MappingType) Pos() token.Position { return t.Token.Pos }
func (t *ArrayType) Pos() token.Position   { return t.Elem.Pos() }

func (t *NamedType) String() string { return t.Name }
func (t *MappingType) String() string {
	return "mapping(" + t.Key.String() + " => " + t.Value.String() + ")"
}
func (t *ArrayType) String() string { return t.Elem.String() + "[]" }
