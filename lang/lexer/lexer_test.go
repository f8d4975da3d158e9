// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lexer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/lexer"
	"github.com/probechain/coinscript/lang/token"
)

// tokenCase is a single expected token in a table-driven test.
type tokenCase struct {
	typ     token.Type
	literal string
}

// runTokenize lexes input and checks that it produces exactly the expected
// sequence (plus a final EOF).
func runTokenize(t *testing.T, name, input string, want []tokenCase) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		toks, err := lexer.Tokenize("test.coin", input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		last := toks[len(toks)-1]
		if last.Type != token.EOF {
			t.Errorf("last token is %s, want EOF", last.Type)
		}
		body := toks[:len(toks)-1]
		if len(body) != len(want) {
			t.Errorf("got %d tokens (excl. EOF), want %d", len(body), len(want))
			for i, tok := range body {
				t.Logf("  [%d] %s %q", i, tok.Type, tok.Literal)
			}
			return
		}
		for i, w := range want {
			got := body[i]
			if got.Type != w.typ {
				t.Errorf("token[%d]: type = %s, want %s (literal %q)", i, got.Type, w.typ, got.Literal)
			}
			if got.Literal != w.literal {
				t.Errorf("token[%d]: literal = %q, want %q", i, got.Literal, w.literal)
			}
		}
	})
}

func TestOperators(t *testing.T) {
	runTokenize(t, "two-char", "== != <= >= && || << >> += -= *= /= %= => ->", []tokenCase{
		{token.EQ, "=="}, {token.NEQ, "!="}, {token.LTE, "<="}, {token.GTE, ">="},
		{token.AND, "&&"}, {token.OR, "||"}, {token.LSHIFT, "<<"}, {token.RSHIFT, ">>"},
		{token.PLUSEQ, "+="}, {token.MINUSEQ, "-="}, {token.STAREQ, "*="}, {token.SLASHEQ, "/="},
		{token.PERCENTEQ, "%="}, {token.FATARROW, "=>"}, {token.ARROW, "->"},
	})
	runTokenize(t, "one-char", "+ - * / % < > = ! ~ & | ^ ( ) { } [ ] , ; : . @", []tokenCase{
		{token.PLUS, "+"}, {token.MINUS, "-"}, {token.STAR, "*"}, {token.SLASH, "/"},
		{token.PERCENT, "%"}, {token.LT, "<"}, {token.GT, ">"}, {token.ASSIGN, "="},
		{token.BANG, "!"}, {token.TILDE, "~"}, {token.AMP, "&"}, {token.PIPE, "|"},
		{token.CARET, "^"}, {token.LPAREN, "("}, {token.RPAREN, ")"}, {token.LBRACE, "{"},
		{token.RBRACE, "}"}, {token.LBRACKET, "["}, {token.RBRACKET, "]"}, {token.COMMA, ","},
		{token.SEMICOLON, ";"}, {token.COLON, ":"}, {token.DOT, "."}, {token.AT, "@"},
	})
	runTokenize(t, "maximal munch", "a>=b=c", []tokenCase{
		{token.IDENT, "a"}, {token.GTE, ">="}, {token.IDENT, "b"}, {token.ASSIGN, "="}, {token.IDENT, "c"},
	})
}

func TestStringGreaterThan(t *testing.T) {
	runTokenize(t, "gts", `a >s b`, []tokenCase{
		{token.IDENT, "a"}, {token.GTS, ">s"}, {token.IDENT, "b"},
	})
	runTokenize(t, "gts before paren", `a>s(b)`, []tokenCase{
		{token.IDENT, "a"}, {token.GTS, ">s"}, {token.LPAREN, "("}, {token.IDENT, "b"}, {token.RPAREN, ")"},
	})
	runTokenize(t, "gt then ident", `a>sum`, []tokenCase{
		{token.IDENT, "a"}, {token.GT, ">"}, {token.IDENT, "sum"},
	})
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	runTokenize(t, "mixed case", "Coin ACTION Storage state Require", []tokenCase{
		{token.COIN, "Coin"}, {token.ACTION, "ACTION"}, {token.STORAGE, "Storage"},
		{token.STATE, "state"}, {token.REQUIRE, "Require"},
	})
	runTokenize(t, "aliases", "constant exception", []tokenCase{
		{token.CONST, "constant"}, {token.FAIL, "exception"},
	})
	runTokenize(t, "type names", "uint256 int8 Address bool bytes32 bytes string uint", []tokenCase{
		{token.TYPENAME, "uint256"}, {token.TYPENAME, "int8"}, {token.TYPENAME, "Address"},
		{token.TYPENAME, "bool"}, {token.TYPENAME, "bytes32"}, {token.TYPENAME, "bytes"},
		{token.TYPENAME, "string"}, {token.TYPENAME, "uint"},
	})
	runTokenize(t, "not keywords", "msg owner uint7 default", []tokenCase{
		{token.IDENT, "msg"}, {token.IDENT, "owner"}, {token.IDENT, "uint7"}, {token.IDENT, "default"},
	})
}

func TestNumbers(t *testing.T) {
	runTokenize(t, "decimal", "0 42 1_000_000", []tokenCase{
		{token.INT, "0"}, {token.INT, "42"}, {token.INT, "1000000"},
	})
	runTokenize(t, "hex", "0xdeadBEEF 0X01", []tokenCase{
		{token.HEX, "0xdeadBEEF"}, {token.HEX, "0x01"},
	})
}

func TestStrings(t *testing.T) {
	runTokenize(t, "double", `"hello"`, []tokenCase{{token.STRING, "hello"}})
	runTokenize(t, "single", `'hello'`, []tokenCase{{token.STRING, "hello"}})
	runTokenize(t, "escapes", `"a\nb\tc\rd\\e\"f\'g"`, []tokenCase{{token.STRING, "a\nb\tc\rd\\e\"f'g"}})
	runTokenize(t, "other quote inside", `'say "hi"'`, []tokenCase{{token.STRING, `say "hi"`}})
}

func TestComments(t *testing.T) {
	runTokenize(t, "line", "a // comment\nb", []tokenCase{{token.IDENT, "a"}, {token.IDENT, "b"}})
	runTokenize(t, "block", "a /* x\ny */ b", []tokenCase{{token.IDENT, "a"}, {token.IDENT, "b"}})
	runTokenize(t, "comment at eof", "a // tail", []tokenCase{{token.IDENT, "a"}})
}

func TestPositions(t *testing.T) {
	toks, err := lexer.Tokenize("p.coin", "coin X {\n  action a() {}\n}")
	if err != nil {
		t.Fatal(err)
	}
	want := []struct{ line, col int }{
		{1, 1}, {1, 6}, {1, 8}, {2, 3}, {2, 10}, {2, 11}, {2, 12}, {2, 14}, {2, 15}, {3, 1},
	}
	for i, w := range want {
		if toks[i].Pos.Line != w.line || toks[i].Pos.Column != w.col {
			t.Errorf("token[%d] %q at %d:%d, want %d:%d", i, toks[i].Literal, toks[i].Pos.Line, toks[i].Pos.Column, w.line, w.col)
		}
	}
	if toks[0].Pos.File != "p.coin" {
		t.Errorf("file = %q", toks[0].Pos.File)
	}
}

func TestLexicalErrors(t *testing.T) {
	cases := []struct {
		name, input, msg string
		line, col        int
	}{
		{"unexpected char", "coin $", `unexpected character '$'`, 1, 6},
		{"unterminated string", "x = \"abc", "unterminated string", 1, 5},
		{"newline in string", "'ab\ncd'", "unterminated string", 1, 1},
		{"unterminated block comment", "a /* b", "unterminated block comment", 1, 3},
		{"hash", "\n #", `unexpected character '#'`, 2, 2},
		{"empty hex", "x = 0x;", "hex literal 0x has no digits", 1, 5},
		{"empty hex before ident", "send(0xg)", "hex literal 0x has no digits", 1, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := lexer.Tokenize("e.coin", tc.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("error %T is not *diag.Error", err)
			}
			if de.Kind != diag.Lexical {
				t.Errorf("kind = %s, want lexical", de.Kind)
			}
			if !strings.Contains(de.Msg, tc.msg) {
				t.Errorf("msg = %q, want substring %q", de.Msg, tc.msg)
			}
			if de.Pos.Line != tc.line || de.Pos.Column != tc.col {
				t.Errorf("pos = %d:%d, want %d:%d", de.Pos.Line, de.Pos.Column, tc.line, tc.col)
			}
		})
	}
}

func TestEOFRepeats(t *testing.T) {
	l := lexer.New("x", "a")
	if tok := l.NextToken(); tok.Type != token.IDENT {
		t.Fatalf("got %s", tok.Type)
	}
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != token.EOF {
			t.Fatalf("call %d: got %s, want EOF", i, tok.Type)
		}
	}
}
