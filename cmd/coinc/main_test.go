// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/coinscript"
)

const payment = `coin P { action pay(address r) { send(r, msg.value); } }`

const counter = `coin Counter {
	state uint256 counter;
	constructor(uint256 start) { state.counter = start; }
	@stateful action increment() { state.counter = state.counter + 1; }
	@stateful action reset() { state.counter = 0; }
}`

func init() {
	color.NoColor = true
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// run executes coinc with args and returns stdout, stderr and the error.
func run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"coinc", "--verbosity", "0"}, args...))
	return out.String(), errOut.String(), err
}

func TestHashCommand(t *testing.T) {
	path := writeSource(t, t.TempDir(), "pay.coin", payment)
	want, err := coinscript.Compile(payment, coinscript.Options{})
	require.NoError(t, err)

	out, _, err := run("hash", path)
	require.NoError(t, err)
	assert.Equal(t, want.Hash.String()+"\n", out)

	_, _, err = run("hash", "--expect", want.Hash.String(), path)
	assert.NoError(t, err)

	_, _, err = run("hash", "--expect", "0x00", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "pay.coin", payment)
	b := writeSource(t, dir, "counter.coin", counter)

	out, _, err := run("build", "--arg", "start=5", a, b)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "; "+a+"\n(mod (r my_amount)"), out)
	assert.Contains(t, out, "; "+b+"\n")

	outDir := filepath.Join(dir, "out")
	_, _, err = run("build", "--arg", "start=5", "--subprograms", "--format", "hex", "--out", outDir, b)
	require.NoError(t, err)
	for _, name := range []string{"counter.hex", "counter.increment.hex", "counter.reset.hex"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, strings.TrimSpace(string(data)))
	}
}

func TestBuildReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeSource(t, dir, "pay.coin", payment)
	bad := writeSource(t, dir, "bad.coin", "coin X {\n  action\n}")
	missing := writeSource(t, dir, "ctor.coin", counter)

	out, errOut, err := run("build", good, bad, missing)
	assert.Equal(t, errReported, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, bad+":3:1: syntax error:")
	assert.Contains(t, errOut, `missing constructor argument "start"`)
}

func TestDiagnosticCaret(t *testing.T) {
	path := writeSource(t, t.TempDir(), "lex.coin", "coin X {\n\taction a() { x = $; }\n}")
	_, errOut, err := run("tokens", path)
	assert.Equal(t, errReported, err)
	lines := strings.Split(strings.TrimRight(errOut, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "lexical error: unexpected character")
	assert.Equal(t, "    \taction a() { x = $; }", lines[1])
	assert.Equal(t, "    \t"+strings.Repeat(" ", 17)+"^", lines[2])
}

func TestTokensCommand(t *testing.T) {
	path := writeSource(t, t.TempDir(), "pay.coin", payment)
	out, _, err := run("tokens", path)
	require.NoError(t, err)
	first := strings.SplitN(out, "\n", 2)[0]
	assert.Equal(t, path+":1:1\tcoin\t\"coin\"", first)
}

func TestASTCommand(t *testing.T) {
	path := writeSource(t, t.TempDir(), "pay.coin", payment)
	out, _, err := run("ast", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Name: (string) (len=1) "P"`)

	out, _, err = run("ast", "--source", path)
	require.NoError(t, err)
	assert.Contains(t, out, "coin P")
}

func TestInspectCommand(t *testing.T) {
	path := writeSource(t, t.TempDir(), "counter.coin", counter)
	out, _, err := run("inspect", "--merkle", "tree", "--arg", "start=7", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Coin:      Counter\n")
	assert.Contains(t, out, "State:     counter=7\n")
	assert.Contains(t, out, "(tree)")
	assert.Contains(t, out, "increment")
	assert.Contains(t, out, "stateful")
}

func TestConstructorArgsFlag(t *testing.T) {
	path := writeSource(t, t.TempDir(), "counter.coin", counter)
	_, _, err := run("hash", "--arg", "start", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid constructor argument "start"`)
}

func TestSingleSourceArity(t *testing.T) {
	_, _, err := run("hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash expects exactly one source file")
}

func TestCaret(t *testing.T) {
	assert.Equal(t, "^", caret("abc", 1))
	assert.Equal(t, "  ^", caret("abc", 3))
	assert.Equal(t, "\t ^", caret("\tab", 3))
	assert.Equal(t, "   ^", caret("abc", 9))
}
