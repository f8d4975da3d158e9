// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// mustParse asserts that the source parses without errors and returns the
// file.
func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := Parse("test.coin", src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return f
}

// parseError parses and expects a *diag.Error.
func parseError(t *testing.T, src string) *diag.Error {
	t.Helper()
	f, err := Parse("test.coin", src)
	if err == nil {
		t.Fatal("expected a parse error, but none was reported")
	}
	if f != nil {
		t.Error("a failed parse must not return a partial AST")
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not a *diag.Error", err)
	}
	return de
}

// mustExpr parses a single expression and returns its String form.
func mustExpr(t *testing.T, src string) string {
	t.Helper()
	e, err := ParseExpr(src)
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", src, err)
	}
	return e.String()
}

// bodyOf parses `coin C { action a() { <body> } }` and returns the body.
func bodyOf(t *testing.T, body string) []ast.Stmt {
	t.Helper()
	f := mustParse(t, "coin C { action a() { "+body+" } }")
	return f.Coin.Actions()[0].Body
}

// ---------------------------------------------------------------------------
// File structure
// ---------------------------------------------------------------------------

func TestMinimalCoin(t *testing.T) {
	f := mustParse(t, `coin P { action pay(address r) { send(r, msg.value); } }`)
	require.NotNil(t, f.Coin)
	assert.Equal(t, "P", f.Coin.Name)
	acts := f.Coin.Actions()
	require.Len(t, acts, 1)
	assert.Equal(t, "pay", acts[0].Name)
	require.Len(t, acts[0].Params, 1)
	assert.Equal(t, "address r", acts[0].Params[0].String())
	require.Len(t, acts[0].Body, 1)
	assert.Equal(t, "send(r, msg.value);", acts[0].Body[0].String())
}

func TestIncludes(t *testing.T) {
	f := mustParse(t, `
include condition_codes.clib;
include "curry-and-treehash.clinc"
include utility_macros.clib
coin C { }`)
	require.Len(t, f.Includes, 3)
	assert.Equal(t, "condition_codes.clib", f.Includes[0].Path)
	assert.Equal(t, "curry-and-treehash.clinc", f.Includes[1].Path)
	assert.Equal(t, "utility_macros.clib", f.Includes[2].Path)
}

func TestCoinDecorators(t *testing.T) {
	f := mustParse(t, `@singleton(launcherId) coin C { }`)
	require.Len(t, f.Coin.Decorators, 1)
	assert.Equal(t, "singleton", f.Coin.Decorators[0].Name)
	assert.Equal(t, "@singleton(launcherId)", f.Coin.Decorators[0].String())
}

func TestStorageAndState(t *testing.T) {
	f := mustParse(t, `coin C {
		storage address owner = 0xabcd;
		storage {
			uint64 fee = 10;
			string name = "x";
		}
		state uint256 counter;
		state {
			bool open = true;
			mapping(address => uint256) balances;
			bytes32[] hashes;
		}
	}`)
	var got []string
	for _, d := range f.Coin.Decls {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{
		"storage address owner = 0xabcd;",
		"storage uint64 fee = 10;",
		`storage string name = "x";`,
		"state uint256 counter;",
		"state bool open = true;",
		"state mapping(address => uint256) balances;",
		"state bytes32[] hashes;",
	}, got)
}

func TestDeclarations(t *testing.T) {
	f := mustParse(t, `coin C {
		layer royalty(address: owner, 500);
		const uint256 FEE = 1;
		constant bytes32 SALT = 0x01;
		constructor(address o) { state.owner = o; }
		inline function twice(uint256 x) returns (uint256) { return x * 2; }
		function id(uint256 x) returns uint256 { return x; }
		modifier onlyOwner { require(msg.sender == owner); _; }
		modifier costs(uint256 price) { require(msg.value >= price); _; }
		event Paid(address to, uint256 amount);
		@stateful action bump() onlyOwner costs(5) view { }
		action default() pure { }
	}`)
	want := []string{
		"layer royalty(address: owner, 500);",
		"const uint256 FEE = 1;",
		"const bytes32 SALT = 0x01;",
		"constructor(address o) { state.owner = o; }",
		"inline function twice(uint256 x) returns uint256 { return (x * 2); }",
		"function id(uint256 x) returns uint256 { return x; }",
		"modifier onlyOwner() { require((msg.sender == owner)); _; }",
		"modifier costs(uint256 price) { require((msg.value >= price)); _; }",
		"event Paid(address to, uint256 amount);",
		"@stateful action bump() view onlyOwner costs(5) { }",
		"action default() pure { }",
	}
	require.Len(t, f.Coin.Decls, len(want))
	for i, w := range want {
		assert.Equal(t, w, f.Coin.Decls[i].String(), "decl %d", i)
	}
	bump := f.Coin.Decls[9].(*ast.Action)
	assert.True(t, bump.HasDecorator("stateful"))
	assert.Nil(t, bump.Modifiers[0].Args)
	assert.Len(t, bump.Modifiers[1].Args, 1)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func TestStatements(t *testing.T) {
	cases := []struct {
		src, want string
	}{
		{`require(x > 0);`, "require((x > 0));"},
		{`require(x > 0, "too small");`, `require((x > 0), "too small");`},
		{`send(to, 5, "memo");`, `send(to, 5, "memo");`},
		{`emit Paid(a, b);`, "emit Paid(a, b);"},
		{`emit Ping();`, "emit Ping();"},
		{`fail("nope");`, `fail("nope");`},
		{`fail;`, "fail;"},
		{`exception();`, "fail;"},
		{`return;`, "return;"},
		{`return x + 1;`, "return (x + 1);"},
		{`uint256 y = 3;`, "uint256 y = 3;"},
		{`y = 3;`, "y = 3;"},
		{`y += 3;`, "y += 3;"},
		{`state.counter %= 7;`, "state.counter %= 7;"},
		{`createCoin(a, 1);`, "createCoin(a, 1);"},
		{`if (a) { fail; } else if (b) { return; } else { y = 1; }`,
			"if (a) { fail; } else { if (b) { return; } else { y = 1; } }"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			body := bodyOf(t, tc.src)
			require.Len(t, body, 1)
			assert.Equal(t, tc.want, body[0].String())
		})
	}
}

func TestPlaceholder(t *testing.T) {
	f := mustParse(t, `coin C { modifier m { _; } }`)
	mod := f.Coin.Decls[0].(*ast.Modifier)
	require.Len(t, mod.Body, 1)
	_, ok := mod.Body[0].(*ast.PlaceholderStmt)
	assert.True(t, ok)
}

func TestLocalDeclCarriesType(t *testing.T) {
	body := bodyOf(t, `bytes32 h = sha256(x);`)
	as := body[0].(*ast.AssignStmt)
	require.NotNil(t, as.DeclType)
	assert.Equal(t, "bytes32", as.DeclType.String())
	assert.Equal(t, "=", as.Op)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestPrecedence(t *testing.T) {
	cases := []struct {
		src, want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"a || b && c", "(a || (b && c))"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"a & b == c", "(a & (b == c))"},
		{"a == b << 1", "(a == (b << 1))"},
		{"a << 1 + 2", "(a << (1 + 2))"},
		{"a % b * c", "((a % b) * c)"},
		{"!a && -b < ~c", "((!a) && ((-b) < (~c)))"},
		{"a >s b", "(a >s b)"},
		{"a <= b || a >= c", "((a <= b) || (a >= c))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mustExpr(t, tc.src), tc.src)
	}
}

func TestPostfixChain(t *testing.T) {
	assert.Equal(t, "state.counter", mustExpr(t, "state.counter"))
	assert.Equal(t, "a.b[1].c(2, 3)", mustExpr(t, "a.b[1].c(2, 3)"))
	assert.Equal(t, "uint256(x)", mustExpr(t, "uint256(x)"))
	assert.Equal(t, "x.length", mustExpr(t, "x.length"))
}

func TestLiterals(t *testing.T) {
	e, err := ParseExpr("0xabc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xbc}, e.(*ast.HexLit).Value)

	e, err = ParseExpr("1_000")
	require.NoError(t, err)
	assert.Equal(t, "1000", e.(*ast.IntLit).Value.String())

	e, err = ParseExpr("true")
	require.NoError(t, err)
	assert.True(t, e.(*ast.BoolLit).Value)

	assert.Equal(t, "[a, (b + 1)]", mustExpr(t, "[a, b + 1]"))
	assert.Equal(t, "[]", mustExpr(t, "[]"))
}

func TestListLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want string
		list bool
	}{
		{"()", "()", true},
		{"(1 2 3)", "(1 2 3)", true},
		{"(a \"b\" 0x01)", "(a \"b\" 0x01)", true},
		{"((1 2) 3)", "((1 2) 3)", true},
		{"(-1 2)", "((-1) 2)", true},
		{"(x)", "x", false},
		{"(a + b)", "(a + b)", false},
		{"(a - 1)", "(a - 1)", false},
	}
	for _, tc := range cases {
		e, err := ParseExpr(tc.src)
		require.NoError(t, err, tc.src)
		_, isList := e.(*ast.ListLit)
		assert.Equal(t, tc.list, isList, tc.src)
		assert.Equal(t, tc.want, e.String(), tc.src)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestMissingParenCitesLine(t *testing.T) {
	de := parseError(t, "coin X {\n  action\n}")
	assert.Equal(t, diag.Syntax, de.Kind)
	assert.Equal(t, 3, de.Pos.Line)

	de = parseError(t, "coin X { action }")
	assert.Equal(t, diag.Syntax, de.Kind)
	assert.Equal(t, 1, de.Pos.Line)

	de = parseError(t, "coin X {\n action a\n {} }")
	assert.Equal(t, diag.Syntax, de.Kind)
	assert.Equal(t, 3, de.Pos.Line)
	assert.Equal(t, []string{"("}, de.Expected)
}

func TestUnknownDataType(t *testing.T) {
	for _, src := range []string{
		"coin C { storage widget w = 1; }",
		"coin C { action a(widget w) { } }",
		"coin C { action a() { widget w = 1; } }",
	} {
		de := parseError(t, src)
		assert.Equal(t, diag.Semantic, de.Kind, src)
		assert.Contains(t, de.Msg, `unknown data type "widget"`, src)
	}
}

func TestSyntaxErrors(t *testing.T) {
	cases := []struct {
		name, src string
	}{
		{"no coin", "action a() {}"},
		{"trailing tokens", "coin C { } coin D { }"},
		{"unclosed body", "coin C { action a() { require(x);"},
		{"bad member", "coin C { require(x); }"},
		{"require arity", "coin C { action a() { require(); } }"},
		{"send arity", "coin C { action a() { send(x); } }"},
		{"missing semicolon", "coin C { action a() { x = 1 } }"},
		{"bad assign target", "coin C { action a() { f(x) = 1; } }"},
		{"assign to state", "coin C { action a() { state = 1; } }"},
		{"cast without call", "coin C { action a() { x = uint256; } }"},
		{"bad list element", "coin C { action a() { x = (1 2 +); } }"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := parseError(t, tc.src)
			assert.Equal(t, diag.Syntax, de.Kind)
			assert.Greater(t, de.Pos.Line, 0)
		})
	}
}

func TestLexicalErrorPropagates(t *testing.T) {
	de := parseError(t, "coin C { action a() { x = $; } }")
	assert.Equal(t, diag.Lexical, de.Kind)
}
