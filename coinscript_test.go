// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package coinscript

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/ir"
)

const payment = `coin P { action pay(address r) { send(r, msg.value); } }`

const counter = `coin Counter {
	state uint256 counter;
	state uint256 total;
	constructor(uint256 start) { state.total = start; }
	@stateful action increment() { state.counter = state.counter + 1; }
	@stateful action add(uint256 n) { state.total = state.total + n; }
	action read() view { return state.total; }
}`

func TestCompile(t *testing.T) {
	res, err := Compile(payment, Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultFile, res.File)
	assert.Equal(t, "(mod (r my_amount) (include condition_codes.clib) "+
		"(c (list ASSERT_MY_AMOUNT my_amount) (c (list CREATE_COIN r my_amount) ())))", res.Text(""))
	assert.Equal(t, [32]byte(res.Hash), ir.TreeHash(res.Program))

	back, err := ir.Parse(res.Text("  "))
	require.NoError(t, err)
	assert.True(t, ir.Equal(res.Program, back))

	encoded, err := hex.DecodeString(res.Hex())
	require.NoError(t, err)
	decoded, err := ir.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, ir.Encode(decoded))
}

func TestCompileErrorsKeepDiagnostics(t *testing.T) {
	cases := []struct {
		src  string
		kind diag.Kind
		line int
	}{
		{"coin X {\n  action\n}", diag.Syntax, 3},
		{"coin X { action a() { x = $c; } }", diag.Lexical, 1},
		{"coin X {\n action a() {\n state.n = 1;\n }\n state uint256 n;\n}", diag.Semantic, 3},
	}
	for _, tc := range cases {
		_, err := Compile(tc.src, Options{File: "x.coin"})
		require.Error(t, err, tc.src)
		assert.True(t, strings.HasPrefix(err.Error(), "compile x.coin: "), err.Error())

		de, ok := errors.Cause(err).(*diag.Error)
		require.True(t, ok, "cause %T is not a *diag.Error", errors.Cause(err))
		assert.Equal(t, tc.kind, de.Kind, tc.src)
		assert.Equal(t, tc.line, de.Pos.Line, tc.src)
	}
}

func TestConstructorArgs(t *testing.T) {
	res, err := Compile(counter, Options{ConstructorArgs: map[string]string{"start": "100"}})
	require.NoError(t, err)
	require.Len(t, res.InitialState, 2)
	assert.Equal(t, "0", res.InitialState[0].String())
	assert.Equal(t, "100", res.InitialState[1].String())
	assert.Len(t, res.SubPrograms, 2)
	assert.Len(t, res.MerkleRoot, 32)

	_, err = Compile(counter, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing constructor argument "start"`)
}

func TestCompilerCache(t *testing.T) {
	c, err := NewCompiler(8)
	require.NoError(t, err)

	opts := Options{ConstructorArgs: map[string]string{"start": "1"}}
	a, err := c.Compile(counter, opts)
	require.NoError(t, err)
	b, err := c.Compile(counter, Options{ConstructorArgs: map[string]string{"start": "1"}})
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Len())

	tree, err := c.Compile(counter, Options{ConstructorArgs: map[string]string{"start": "1"}, Merkle: MerkleTree})
	require.NoError(t, err)
	assert.NotSame(t, a, tree)
	assert.NotEqual(t, a.MerkleRoot, tree.MerkleRoot)

	other, err := c.Compile(counter, Options{ConstructorArgs: map[string]string{"start": "2"}})
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, other.Hash)
	assert.Equal(t, 3, c.Len())

	_, err = c.Compile("coin X { action }", Options{})
	require.Error(t, err)
	assert.Equal(t, 3, c.Len(), "failed compilations must not be cached")
}

func TestCacheKey(t *testing.T) {
	base := cacheKey("src", Options{})
	assert.Equal(t, base, cacheKey("src", Options{File: defaultFile}))
	assert.NotEqual(t, base, cacheKey("src", Options{AllowUnresolvedCalls: true}))
	assert.NotEqual(t, base, cacheKey("src", Options{AddressPrefixes: []string{}}))
	assert.NotEqual(t,
		cacheKey("src", Options{ConstructorArgs: map[string]string{"ab": "c"}}),
		cacheKey("src", Options{ConstructorArgs: map[string]string{"a": "bc"}}))
	assert.Equal(t,
		cacheKey("src", Options{ConstructorArgs: map[string]string{"a": "1", "b": "2"}}),
		cacheKey("src", Options{ConstructorArgs: map[string]string{"b": "2", "a": "1"}}))
}

func TestCompilerConcurrent(t *testing.T) {
	c, err := NewCompiler(4)
	require.NoError(t, err)

	results := make([]*Result, 16)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := c.Compile(payment, Options{})
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, res := range results[1:] {
		assert.Equal(t, results[0].Hash, res.Hash)
	}
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pay.coin")
	require.NoError(t, os.WriteFile(path, []byte(payment), 0o644))

	res, err := CompileFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, res.File)

	c, err := NewCompiler(2)
	require.NoError(t, err)
	cached, err := c.CompileFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, res.Hash, cached.Hash)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.coin"), Options{})
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
