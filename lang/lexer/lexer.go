// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lexer implements a single-pass, no-backtracking lexer for CoinScript.
//
//   - Keywords are recognised case-insensitively
//   - Decimal literals may contain '_' separators, which are stripped
//   - Hex literals (0x...) produce HEX tokens
//   - Strings are single or double quoted; escapes are decoded
//   - Operators use maximal munch, two characters before one
//   - // line comments and /* */ block comments are discarded
package lexer

import (
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/token"
)

// Lexer holds the state for a single-pass tokenization run.
type Lexer struct {
	filename string
	input    []byte

	// pos is the index into input of the next byte to be loaded into ch.
	// After advance(), ch == input[pos-1] and pos points one past it.
	pos  int
	line int
	col  int

	ch byte // current character; 0 when past end

	err *diag.Error // first lexical error, sticky
}

// New creates a new Lexer for the given filename and input string.
func New(filename, input string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    []byte(input),
		line:     1,
		col:      0,
	}
	l.advance() // prime l.ch with the first byte
	return l
}

// advance moves to the next byte in the input, updating line/column tracking.
// When the end of input is reached, ch is set to 0.
func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input) + 1
		return
	}
	l.ch = l.input[l.pos]
	l.pos++
}

// peek returns the byte after the current character without consuming it.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// peekAt returns the byte n positions after the current character.
func (l *Lexer) peekAt(n int) byte {
	i := l.pos + n - 1
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// currentPos returns a token.Position capturing the lexer's state right now.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		File:   l.filename,
		Line:   l.line,
		Column: l.col,
		Offset: l.pos - 1,
	}
}

func makeToken(typ token.Type, literal string, pos token.Position) token.Token {
	return token.Token{Type: typ, Literal: literal, Pos: pos}
}

// skipTrivia consumes whitespace and comments. An unterminated block comment
// is recorded as a lexical error.
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.advance()
		case l.ch == '/' && l.peek() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.advance()
			}
		case l.ch == '/' && l.peek() == '*':
			pos := l.currentPos()
			l.advance()
			l.advance()
			for !(l.ch == '*' && l.peek() == '/') {
				if l.ch == 0 {
					l.fail(diag.Lexf(pos, "unterminated block comment"))
					return
				}
				l.advance()
			}
			l.advance()
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) fail(err *diag.Error) {
	if l.err == nil {
		l.err = err
	}
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// twoCharOps is tried before single characters.
var twoCharOps = map[string]token.Type{
	"==": token.EQ,
	"!=": token.NEQ,
	"<=": token.LTE,
	">=": token.GTE,
	"&&": token.AND,
	"||": token.OR,
	"<<": token.LSHIFT,
	">>": token.RSHIFT,
	"+=": token.PLUSEQ,
	"-=": token.MINUSEQ,
	"*=": token.STAREQ,
	"/=": token.SLASHEQ,
	"%=": token.PERCENTEQ,
	"=>": token.FATARROW,
	"->": token.ARROW,
}

var oneCharOps = map[byte]token.Type{
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.STAR,
	'/': token.SLASH,
	'%': token.PERCENT,
	'<': token.LT,
	'>': token.GT,
	'=': token.ASSIGN,
	'!': token.BANG,
	'~': token.TILDE,
	'&': token.AMP,
	'|': token.PIPE,
	'^': token.CARET,
	'(': token.LPAREN,
	')': token.RPAREN,
	'{': token.LBRACE,
	'}': token.RBRACE,
	'[': token.LBRACKET,
	']': token.RBRACKET,
	',': token.COMMA,
	';': token.SEMICOLON,
	':': token.COLON,
	'.': token.DOT,
	'@': token.AT,
}

// NextToken scans and returns the next token from the input. A lexical
// problem yields an ILLEGAL token and records the error; after EOF, every
// call returns EOF again.
func (l *Lexer) NextToken() token.Token {
	l.skipTrivia()
	pos := l.currentPos()
	if l.err != nil {
		return makeToken(token.ILLEGAL, "", pos)
	}

	ch := l.ch
	if ch == 0 {
		return makeToken(token.EOF, "", pos)
	}

	switch {
	case isIdentStart(ch):
		lit := l.readIdent()
		return makeToken(token.LookupIdent(lit), lit, pos)

	case isDigit(ch):
		typ, lit := l.readNumber()
		if lit == "0x" {
			l.fail(diag.Lexf(pos, "hex literal 0x has no digits"))
			return makeToken(token.ILLEGAL, lit, pos)
		}
		return makeToken(typ, lit, pos)

	case ch == '"' || ch == '\'':
		lit, ok := l.readString(ch)
		if !ok {
			l.fail(diag.Lexf(pos, "unterminated string literal"))
			return makeToken(token.ILLEGAL, lit, pos)
		}
		return makeToken(token.STRING, lit, pos)
	}

	// String greater-than: ">s" not followed by an identifier character.
	if ch == '>' && l.peek() == 's' && !isIdentContinue(l.peekAt(2)) {
		l.advance()
		l.advance()
		return makeToken(token.GTS, ">s", pos)
	}
	if typ, ok := twoCharOps[string([]byte{ch, l.peek()})]; ok {
		l.advance()
		l.advance()
		return makeToken(typ, typ.String(), pos)
	}
	if typ, ok := oneCharOps[ch]; ok {
		l.advance()
		return makeToken(typ, typ.String(), pos)
	}

	l.fail(diag.Lexf(pos, "unexpected character %q", ch))
	return makeToken(token.ILLEGAL, string([]byte{ch}), pos)
}

// Tokenize returns all tokens up to and including the final EOF, or the
// first lexical error.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok := l.NextToken()
		if l.err != nil {
			return nil, l.err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Tokenize is a convenience wrapper around New(filename, src).Tokenize().
func Tokenize(filename, src string) ([]token.Token, error) {
	return New(filename, src).Tokenize()
}

func (l *Lexer) readIdent() string {
	start := l.pos - 1
	for isIdentContinue(l.ch) {
		l.advance()
	}
	return string(l.input[start : l.pos-1])
}

// readNumber parses a decimal or hex literal starting at the current digit.
// Decimal separators are dropped from the literal.
func (l *Lexer) readNumber() (token.Type, string) {
	if l.ch == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		buf := []byte{'0', 'x'}
		l.advance()
		l.advance()
		for isHexDigit(l.ch) {
			buf = append(buf, l.ch)
			l.advance()
		}
		return token.HEX, string(buf)
	}
	buf := make([]byte, 0, 16)
	for isDigit(l.ch) || l.ch == '_' {
		if l.ch != '_' {
			buf = append(buf, l.ch)
		}
		l.advance()
	}
	return token.INT, string(buf)
}

// readString reads a quoted string whose opening quote is the current
// character. The returned literal is the decoded content without quotes.
func (l *Lexer) readString(quote byte) (string, bool) {
	l.advance() // opening quote
	var buf []byte
	for {
		switch l.ch {
		case 0, '\n':
			return string(buf), false
		case '\\':
			l.advance()
			switch l.ch {
			case 'n':
				buf = append(buf, '\n')
			case 't':
				buf = append(buf, '\t')
			case 'r':
				buf = append(buf, '\r')
			case '\\', '"', '\'':
				buf = append(buf, l.ch)
			case 0:
				return string(buf), false
			default:
				buf = append(buf, '\\', l.ch)
			}
			l.advance()
		case quote:
			l.advance()
			return string(buf), true
		default:
			buf = append(buf, l.ch)
			l.advance()
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'f') ||
		(ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
