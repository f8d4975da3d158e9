// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package token defines the lexical token types for the CoinScript language.
//
// Keywords are case-insensitive. Every data type name (uint8 .. uint256,
// int8 .. int256, address, bool, bytes, bytes32, string) lexes as a single
// TYPENAME token so the parser can treat the fixed type grammar uniformly.
package token

import (
	"fmt"
	"strings"
)

// Token represents a lexical token.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

// Position tracks source location.
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Type is the set of lexical token types.
type Type int

const (
	// Special tokens
	ILLEGAL Type = iota
	EOF

	// Literals
	IDENT  // owner, _amount
	INT    // 42, 1_000
	HEX    // 0xdeadbeef
	STRING // "hello", 'hello'

	// Operators
	operatorStart
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	TILDE   // ~
	AMP     // &
	PIPE    // |
	CARET   // ^
	BANG    // !
	LSHIFT  // <<
	RSHIFT  // >>
	EQ      // ==
	NEQ     // !=
	LT      // <
	GT      // >
	LTE     // <=
	GTE     // >=
	GTS     // >s  (string greater-than)
	AND     // &&
	OR      // ||
	operatorEnd

	// Assignment
	ASSIGN    // =
	PLUSEQ    // +=
	MINUSEQ   // -=
	STAREQ    // *=
	SLASHEQ   // /=
	PERCENTEQ // %=

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DOT       // .
	AT        // @
	ARROW     // ->
	FATARROW  // =>

	// Keywords
	keywordStart
	COIN
	INCLUDE
	LAYER
	STORAGE
	STATE
	CONSTRUCTOR
	CONST
	FUNCTION
	INLINE
	MODIFIER
	ACTION
	EVENT
	REQUIRE
	SEND
	EMIT
	FAIL
	IF
	ELSE
	RETURN
	RETURNS
	TRUE
	FALSE
	VIEW
	PURE
	MAPPING
	TYPENAME // uint256, address, bool, ...
	keywordEnd
)

var tokenNames = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	INT:    "INT",
	HEX:    "HEX",
	STRING: "STRING",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	TILDE:   "~",
	AMP:     "&",
	PIPE:    "|",
	CARET:   "^",
	BANG:    "!",
	LSHIFT:  "<<",
	RSHIFT:  ">>",
	EQ:      "==",
	NEQ:     "!=",
	LT:      "<",
	GT:      ">",
	LTE:     "<=",
	GTE:     ">=",
	GTS:     ">s",
	AND:     "&&",
	OR:      "||",

	ASSIGN:    "=",
	PLUSEQ:    "+=",
	MINUSEQ:   "-=",
	STAREQ:    "*=",
	SLASHEQ:   "/=",
	PERCENTEQ: "%=",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	DOT:       ".",
	AT:        "@",
	ARROW:     "->",
	FATARROW:  "=>",

	COIN:        "coin",
	INCLUDE:     "include",
	LAYER:       "layer",
	STORAGE:     "storage",
	STATE:       "state",
	CONSTRUCTOR: "constructor",
	CONST:       "const",
	FUNCTION:    "function",
	INLINE:      "inline",
	MODIFIER:    "modifier",
	ACTION:      "action",
	EVENT:       "event",
	REQUIRE:     "require",
	SEND:        "send",
	EMIT:        "emit",
	FAIL:        "fail",
	IF:          "if",
	ELSE:        "else",
	RETURN:      "return",
	RETURNS:     "returns",
	TRUE:        "true",
	FALSE:       "false",
	VIEW:        "view",
	PURE:        "pure",
	MAPPING:     "mapping",
	TYPENAME:    "TYPENAME",
}

// String returns the string form of a token type.
func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", t)
}

// IsKeyword reports whether the token is a keyword.
func (t Type) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// IsOperator reports whether the token is a binary or unary operator.
func (t Type) IsOperator() bool {
	return t > operatorStart && t < operatorEnd
}

// IsLiteral reports whether the token is a literal value or identifier.
func (t Type) IsLiteral() bool {
	return t >= IDENT && t <= STRING
}

// keywords maps lower-case keyword spellings to token types.
var keywords map[string]Type

func init() {
	keywords = make(map[string]Type)
	for i := keywordStart + 1; i < keywordEnd; i++ {
		if i == TYPENAME {
			continue
		}
		keywords[tokenNames[i]] = i
	}
	// Aliases.
	keywords["constant"] = CONST
	keywords["exception"] = FAIL

	for _, name := range []string{"address", "bool", "bytes", "bytes32", "string", "int", "uint"} {
		keywords[name] = TYPENAME
	}
	for w := 8; w <= 256; w += 8 {
		keywords[fmt.Sprintf("uint%d", w)] = TYPENAME
		keywords[fmt.Sprintf("int%d", w)] = TYPENAME
	}
}

// LookupIdent checks if an identifier is a keyword. The match ignores case.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}
