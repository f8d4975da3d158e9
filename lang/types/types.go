// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package types defines the CoinScript data type model.
//
// Design principles:
//   - The type grammar is closed: integer widths 8..256, address, bool,
//     bytes32, bytes, string, mappings and dynamic arrays of those
//   - Types only constrain compile-time values; the target VM is untyped
//   - Integer literals folded at compile time are range-checked against the
//     declared width
package types

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
)

// Kind categorizes the fundamental shape of a type.
type Kind int

const (
	KindBool Kind = iota
	KindUint
	KindInt
	KindAddress // 32-byte puzzle hash
	KindBytes32
	KindBytes
	KindString
	KindMapping
	KindArray
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindUint:    "uint",
	KindInt:     "int",
	KindAddress: "address",
	KindBytes32: "bytes32",
	KindBytes:   "bytes",
	KindString:  "string",
	KindMapping: "mapping",
	KindArray:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Type is the interface that all CoinScript types implement.
type Type interface {
	// Kind returns the fundamental category of this type.
	Kind() Kind

	// String returns the source spelling of the type.
	String() string

	// Equals reports whether two types are structurally identical.
	Equals(other Type) bool

	// Size returns the encoded size of a value in bytes, or -1 for
	// dynamically-sized types.
	Size() int
}

// ---- Primitive types -------------------------------------------------------

type primitiveType struct {
	kind Kind
}

func (p *primitiveType) Kind() Kind     { return p.kind }
func (p *primitiveType) String() string { return p.kind.String() }

func (p *primitiveType) Equals(other Type) bool {
	if other == nil {
		return false
	}
	return p.kind == other.Kind()
}

func (p *primitiveType) Size() int {
	switch p.kind {
	case KindBool:
		return 1
	case KindAddress, KindBytes32:
		return 32
	default:
		return -1
	}
}

// Pre-allocated singletons for the non-integer primitives.
var (
	Bool    Type = &primitiveType{kind: KindBool}
	Address Type = &primitiveType{kind: KindAddress}
	Bytes32 Type = &primitiveType{kind: KindBytes32}
	Bytes   Type = &primitiveType{kind: KindBytes}
	String  Type = &primitiveType{kind: KindString}
)

// ---- Integers --------------------------------------------------------------

// IntType is a signed or unsigned integer of a fixed bit width.
type IntType struct {
	Signed bool
	Bits   int
}

// Integer singletons for the unsuffixed spellings.
var (
	Uint256 = &IntType{Bits: 256}
	Int256  = &IntType{Signed: true, Bits: 256}
)

func (t *IntType) Kind() Kind {
	if t.Signed {
		return KindInt
	}
	return KindUint
}

func (t *IntType) Size() int { return t.Bits / 8 }

func (t *IntType) String() string {
	return t.Kind().String() + strconv.Itoa(t.Bits)
}

func (t *IntType) Equals(other Type) bool {
	o, ok := other.(*IntType)
	return ok && o.Signed == t.Signed && o.Bits == t.Bits
}

// CheckRange reports whether v fits in the integer type.
func (t *IntType) CheckRange(v *big.Int) error {
	if !t.Signed {
		if v.Sign() < 0 {
			return fmt.Errorf("negative value %s for %s", v, t)
		}
		u, overflow := uint256.FromBig(v)
		if overflow || u.BitLen() > t.Bits {
			return fmt.Errorf("value %s overflows %s", v, t)
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Bits-1))
	lower := new(big.Int).Neg(limit)
	if v.Cmp(lower) < 0 || v.Cmp(limit) >= 0 {
		return fmt.Errorf("value %s overflows %s", v, t)
	}
	return nil
}

// ---- Composite types -------------------------------------------------------

// MappingType is mapping(Key => Value).
type MappingType struct {
	Key   Type
	Value Type
}

func (m *MappingType) Kind() Kind { return KindMapping }
func (m *MappingType) Size() int  { return -1 }
func (m *MappingType) String() string {
	return fmt.Sprintf("mapping(%s => %s)", m.Key, m.Value)
}
func (m *MappingType) Equals(other Type) bool {
	o, ok := other.(*MappingType)
	return ok && m.Key.Equals(o.Key) && m.Value.Equals(o.Value)
}

// ArrayType is Elem[], a dynamically-sized list.
type ArrayType struct {
	Elem Type
}

func (a *ArrayType) Kind() Kind     { return KindArray }
func (a *ArrayType) Size() int      { return -1 }
func (a *ArrayType) String() string { return a.Elem.String() + "[]" }
func (a *ArrayType) Equals(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && a.Elem.Equals(o.Elem)
}

// ---- Lookup ----------------------------------------------------------------

// Lookup resolves a built-in type name, ignoring case.
func Lookup(name string) (Type, bool) {
	name = strings.ToLower(name)
	switch name {
	case "bool":
		return Bool, true
	case "address":
		return Address, true
	case "bytes32":
		return Bytes32, true
	case "bytes":
		return Bytes, true
	case "string":
		return String, true
	case "uint":
		return Uint256, true
	case "int":
		return Int256, true
	}
	signed := strings.HasPrefix(name, "int")
	digits := strings.TrimPrefix(strings.TrimPrefix(name, "u"), "int")
	if !signed && !strings.HasPrefix(name, "uint") {
		return nil, false
	}
	bits, err := strconv.Atoi(digits)
	if err != nil || bits < 8 || bits > 256 || bits%8 != 0 || digits != strconv.Itoa(bits) {
		return nil, false
	}
	return &IntType{Signed: signed, Bits: bits}, true
}

// IsName reports whether name spells a built-in type.
func IsName(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// FromAST converts a parsed type expression to a Type.
func FromAST(t ast.TypeExpr) (Type, error) {
	switch x := t.(type) {
	case *ast.NamedType:
		typ, ok := Lookup(x.Name)
		if !ok {
			return nil, diag.Semanticf(x.Pos(), "unknown data type %q", x.Name)
		}
		return typ, nil
	case *ast.MappingType:
		k, err := FromAST(x.Key)
		if err != nil {
			return nil, err
		}
		v, err := FromAST(x.Value)
		if err != nil {
			return nil, err
		}
		return &MappingType{Key: k, Value: v}, nil
	case *ast.ArrayType:
		e, err := FromAST(x.Elem)
		if err != nil {
			return nil, err
		}
		return &ArrayType{Elem: e}, nil
	}
	return nil, fmt.Errorf("unsupported type expression %T", t)
}

// IsInteger reports whether t is a signed or unsigned integer type.
func IsInteger(t Type) bool {
	_, ok := t.(*IntType)
	return ok
}

// IsUnsigned reports whether t is an unsigned integer type.
func IsUnsigned(t Type) bool {
	it, ok := t.(*IntType)
	return ok && !it.Signed
}
