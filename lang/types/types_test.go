// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
)

// ---- Lookup ----------------------------------------------------------------

func TestLookup(t *testing.T) {
	cases := []struct {
		name     string
		wantKind Kind
		wantStr  string
		wantSize int
	}{
		{"bool", KindBool, "bool", 1},
		{"address", KindAddress, "address", 32},
		{"Address", KindAddress, "address", 32},
		{"bytes32", KindBytes32, "bytes32", 32},
		{"bytes", KindBytes, "bytes", -1},
		{"string", KindString, "string", -1},
		{"uint", KindUint, "uint256", 32},
		{"int", KindInt, "int256", 32},
		{"uint8", KindUint, "uint8", 1},
		{"uint64", KindUint, "uint64", 8},
		{"int16", KindInt, "int16", 2},
		{"UINT256", KindUint, "uint256", 32},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typ, ok := Lookup(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, typ.Kind())
			assert.Equal(t, tc.wantStr, typ.String())
			assert.Equal(t, tc.wantSize, typ.Size())
		})
	}
}

func TestLookupRejects(t *testing.T) {
	for _, name := range []string{"uint7", "uint264", "int0", "uint08", "float", "u8", "mapping", ""} {
		_, ok := Lookup(name)
		assert.False(t, ok, name)
		assert.False(t, IsName(name), name)
	}
}

func TestEquals(t *testing.T) {
	u8, _ := Lookup("uint8")
	u8b, _ := Lookup("uint8")
	i8, _ := Lookup("int8")
	assert.True(t, u8.Equals(u8b))
	assert.False(t, u8.Equals(i8))
	assert.False(t, Bool.Equals(nil))
	assert.True(t, (&ArrayType{Elem: Address}).Equals(&ArrayType{Elem: Address}))
	assert.False(t, (&ArrayType{Elem: Address}).Equals(&ArrayType{Elem: Bytes32}))
	m := &MappingType{Key: Address, Value: Uint256}
	assert.True(t, m.Equals(&MappingType{Key: Address, Value: Uint256}))
	assert.Equal(t, "mapping(address => uint256)", m.String())
}

// ---- Range checks ----------------------------------------------------------

func TestCheckRange(t *testing.T) {
	pow := func(n uint) *big.Int { return new(big.Int).Lsh(big.NewInt(1), n) }
	sub1 := func(v *big.Int) *big.Int { return new(big.Int).Sub(v, big.NewInt(1)) }

	cases := []struct {
		typ string
		v   *big.Int
		ok  bool
	}{
		{"uint8", big.NewInt(0), true},
		{"uint8", big.NewInt(255), true},
		{"uint8", big.NewInt(256), false},
		{"uint8", big.NewInt(-1), false},
		{"uint256", sub1(pow(256)), true},
		{"uint256", pow(256), false},
		{"int8", big.NewInt(127), true},
		{"int8", big.NewInt(-128), true},
		{"int8", big.NewInt(128), false},
		{"int8", big.NewInt(-129), false},
		{"int256", sub1(pow(255)), true},
		{"int256", pow(255), false},
	}
	for _, tc := range cases {
		typ, ok := Lookup(tc.typ)
		require.True(t, ok)
		err := typ.(*IntType).CheckRange(tc.v)
		if tc.ok {
			assert.NoError(t, err, "%s %s", tc.typ, tc.v)
		} else {
			assert.Error(t, err, "%s %s", tc.typ, tc.v)
		}
	}
}

// ---- AST conversion --------------------------------------------------------

func TestFromAST(t *testing.T) {
	named := func(n string) *ast.NamedType { return &ast.NamedType{Name: n} }

	typ, err := FromAST(&ast.MappingType{Key: named("address"), Value: &ast.ArrayType{Elem: named("uint64")}})
	require.NoError(t, err)
	assert.Equal(t, "mapping(address => uint64[])", typ.String())
	assert.True(t, IsInteger(typ.(*MappingType).Value.(*ArrayType).Elem))
	assert.True(t, IsUnsigned(Uint256))
	assert.False(t, IsUnsigned(Int256))

	_, err = FromAST(&ast.ArrayType{Elem: named("widget")})
	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, diag.Semantic, de.Kind)
	assert.Contains(t, de.Msg, "unknown data type")
}
