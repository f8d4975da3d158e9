// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package parser implements a recursive-descent / Pratt parser for
// CoinScript.
//
// Design overview:
//
//   - The whole source is tokenized up front; the parser walks the slice
//     with a cursor so that list literals can be parsed speculatively and
//     rewound with mark/reset.
//   - Declarations and statements are parsed with straightforward recursive
//     descent.
//   - Expressions are parsed with a Pratt (top-down operator precedence) table.
//   - The first error aborts the parse; no partial AST is returned.
package parser

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/lexer"
	"github.com/probechain/coinscript/lang/token"
)

// ---------------------------------------------------------------------------
// Precedence levels (Pratt)
// ---------------------------------------------------------------------------

type precedence int

const (
	precLowest precedence = iota // base
	precOr                       // ||
	precAnd                      // &&
	precBitOr                    // |
	precBitXor                   // ^
	precBitAnd                   // &
	precCmp                      // == != < > <= >= >s
	precShift                    // << >>
	precAdd                      // + -
	precMul                      // * / %
)

// infixPrecedence maps a token type to its infix binding power.
var infixPrecedence = map[token.Type]precedence{
	token.OR:      precOr,
	token.AND:     precAnd,
	token.PIPE:    precBitOr,
	token.CARET:   precBitXor,
	token.AMP:     precBitAnd,
	token.EQ:      precCmp,
	token.NEQ:     precCmp,
	token.LT:      precCmp,
	token.GT:      precCmp,
	token.LTE:     precCmp,
	token.GTE:     precCmp,
	token.GTS:     precCmp,
	token.LSHIFT:  precShift,
	token.RSHIFT:  precShift,
	token.PLUS:    precAdd,
	token.MINUS:   precAdd,
	token.STAR:    precMul,
	token.SLASH:   precMul,
	token.PERCENT: precMul,
}

// assignOps maps assignment tokens to their operator spelling.
var assignOps = map[token.Type]string{
	token.ASSIGN:    "=",
	token.PLUSEQ:    "+=",
	token.MINUSEQ:   "-=",
	token.STAREQ:    "*=",
	token.SLASHEQ:   "/=",
	token.PERCENTEQ: "%=",
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// Parser holds the mutable state for a single parse run.
type Parser struct {
	toks []token.Token
	pos  int
}

// Parse is the public entry point. It tokenises source and returns the file
// AST, or the first lexical or syntax error.
func Parse(filename, source string) (*ast.File, error) {
	toks, err := lexer.Tokenize(filename, source)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks)
}

// ParseTokens parses an already tokenized stream ending in EOF.
func ParseTokens(toks []token.Token) (*ast.File, error) {
	if len(toks) == 0 || toks[len(toks)-1].Type != token.EOF {
		toks = append(toks, token.Token{Type: token.EOF})
	}
	p := &Parser{toks: toks}
	return p.parseFile()
}

// ParseExpr parses a single expression spanning the whole source.
func ParseExpr(source string) (ast.Expr, error) {
	toks, err := lexer.Tokenize("", source)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	e, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if !p.curIs(token.EOF) {
		return nil, diag.Expected(p.cur(), token.EOF)
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// Token navigation helpers
// ---------------------------------------------------------------------------

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

// advance moves the cursor forward, staying on the final EOF.
func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) mark() int     { return p.pos }
func (p *Parser) reset(pos int) { p.pos = pos }

// curIs returns true if the current token has the given type.
func (p *Parser) curIs(typ token.Type) bool { return p.cur().Type == typ }

// peekIs returns true if the lookahead token has the given type.
func (p *Parser) peekIs(typ token.Type) bool { return p.peek().Type == typ }

// expect consumes the current token if it matches typ.
func (p *Parser) expect(typ token.Type) (token.Token, error) {
	if p.curIs(typ) {
		return p.advance(), nil
	}
	return p.cur(), diag.Expected(p.cur(), typ)
}

// accept consumes the current token if it matches typ and reports whether
// it did.
func (p *Parser) accept(typ token.Type) bool {
	if p.curIs(typ) {
		p.advance()
		return true
	}
	return false
}

// isName reports whether tok can serve as a member or argument label:
// identifiers and keywords both qualify.
func isName(tok token.Token) bool {
	return tok.Type == token.IDENT || tok.Type.IsKeyword()
}

// ---------------------------------------------------------------------------
// File and coin
// ---------------------------------------------------------------------------

// file = { include } { decorator } "coin" IDENT "{" { member } "}" EOF
func (p *Parser) parseFile() (*ast.File, error) {
	file := &ast.File{}
	for p.curIs(token.INCLUDE) {
		inc, err := p.parseInclude()
		if err != nil {
			return nil, err
		}
		file.Includes = append(file.Includes, inc)
	}
	decorators, err := p.parseDecorators()
	if err != nil {
		return nil, err
	}
	coin, err := p.parseCoin(decorators)
	if err != nil {
		return nil, err
	}
	file.Coin = coin
	if !p.curIs(token.EOF) {
		return nil, diag.Expected(p.cur(), token.EOF)
	}
	return file, nil
}

// include = "include" ( STRING | IDENT { "." IDENT } ) [ ";" ]
func (p *Parser) parseInclude() (*ast.Include, error) {
	tok := p.advance() // 'include'
	inc := &ast.Include{Token: tok}
	switch {
	case p.curIs(token.STRING):
		inc.Path = p.advance().Literal
	case isName(p.cur()):
		parts := []string{p.advance().Literal}
		for p.curIs(token.DOT) {
			p.advance()
			if !isName(p.cur()) {
				return nil, diag.Expected(p.cur(), token.IDENT)
			}
			parts = append(parts, p.advance().Literal)
		}
		inc.Path = strings.Join(parts, ".")
	default:
		return nil, diag.Expected(p.cur(), token.STRING, token.IDENT)
	}
	p.accept(token.SEMICOLON)
	return inc, nil
}

// decorator = "@" IDENT [ "(" [ args ] ")" ]
func (p *Parser) parseDecorators() ([]*ast.Decorator, error) {
	var out []*ast.Decorator
	for p.curIs(token.AT) {
		tok := p.advance()
		if !isName(p.cur()) {
			return nil, diag.Expected(p.cur(), token.IDENT)
		}
		dec := &ast.Decorator{Token: tok, Name: p.advance().Literal}
		if p.curIs(token.LPAREN) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			dec.Args = args
		}
		out = append(out, dec)
	}
	return out, nil
}

func (p *Parser) parseCoin(decorators []*ast.Decorator) (*ast.Coin, error) {
	tok, err := p.expect(token.COIN)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	coin := &ast.Coin{Token: tok, Name: name.Literal, Decorators: decorators}
	for !p.curIs(token.RBRACE) {
		decls, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		coin.Decls = append(coin.Decls, decls...)
	}
	p.advance() // '}'
	return coin, nil
}

// parseMember parses one coin body member. Storage and state blocks may
// produce several declarations.
func (p *Parser) parseMember() ([]ast.Decl, error) {
	one := func(d ast.Decl, err error) ([]ast.Decl, error) {
		if err != nil {
			return nil, err
		}
		return []ast.Decl{d}, nil
	}
	switch p.cur().Type {
	case token.LAYER:
		return one(p.parseLayer())
	case token.STORAGE:
		return p.parseStorage()
	case token.STATE:
		return p.parseState()
	case token.CONSTRUCTOR:
		return one(p.parseConstructor())
	case token.CONST:
		return one(p.parseConst())
	case token.FUNCTION, token.INLINE:
		return one(p.parseFunction())
	case token.MODIFIER:
		return one(p.parseModifier())
	case token.AT, token.ACTION:
		return one(p.parseAction())
	case token.EVENT:
		return one(p.parseEvent())
	}
	return nil, diag.Expected(p.cur(),
		token.LAYER, token.STORAGE, token.STATE, token.CONSTRUCTOR, token.CONST,
		token.FUNCTION, token.MODIFIER, token.ACTION, token.EVENT, token.RBRACE)
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// layer = "layer" IDENT "(" [ layerArg { "," layerArg } ] ")" ";"
func (p *Parser) parseLayer() (*ast.Layer, error) {
	tok := p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	layer := &ast.Layer{Token: tok, Name: name.Literal}
	for !p.curIs(token.RPAREN) {
		var arg ast.LayerArg
		if isName(p.cur()) && p.peekIs(token.COLON) {
			arg.Name = p.advance().Literal
			p.advance() // ':'
		}
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		arg.Value = v
		layer.Args = append(layer.Args, arg)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return layer, nil
}

// storage = "storage" ( "{" { varDecl } "}" | varDecl )
func (p *Parser) parseStorage() ([]ast.Decl, error) {
	p.advance()
	var out []ast.Decl
	parse := func() error {
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return err
		}
		if _, err := p.expect(token.ASSIGN); err != nil {
			return err
		}
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return err
		}
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return err
		}
		out = append(out, &ast.StorageVar{Token: name, Name: name.Literal, Type: typ, Value: v})
		return nil
	}
	if err := p.blockOrOne(parse); err != nil {
		return nil, err
	}
	return out, nil
}

// state = "state" ( "{" { fieldDecl } "}" | fieldDecl )
func (p *Parser) parseState() ([]ast.Decl, error) {
	p.advance()
	var out []ast.Decl
	parse := func() error {
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return err
		}
		field := &ast.StateField{Token: name, Name: name.Literal, Type: typ}
		if p.accept(token.ASSIGN) {
			if field.Value, err = p.parseExpression(precLowest); err != nil {
				return err
			}
		}
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return err
		}
		out = append(out, field)
		return nil
	}
	if err := p.blockOrOne(parse); err != nil {
		return nil, err
	}
	return out, nil
}

// blockOrOne runs parse once, or repeatedly inside a braced group.
func (p *Parser) blockOrOne(parse func() error) error {
	if !p.accept(token.LBRACE) {
		return parse()
	}
	for !p.curIs(token.RBRACE) {
		if p.curIs(token.EOF) {
			return diag.Expected(p.cur(), token.RBRACE)
		}
		if err := parse(); err != nil {
			return err
		}
	}
	p.advance()
	return nil
}

// const = ( "const" | "constant" ) type IDENT "=" expr ";"
func (p *Parser) parseConst() (*ast.Const, error) {
	tok := p.advance()
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	v, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.Const{Token: tok, Name: name.Literal, Type: typ, Value: v}, nil
}

// constructor = "constructor" "(" [ params ] ")" block
func (p *Parser) parseConstructor() (*ast.Constructor, error) {
	tok := p.advance()
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Constructor{Token: tok, Params: params, Body: body}, nil
}

// function = [ "inline" ] "function" IDENT "(" [ params ] ")"
//            [ "returns" ( type | "(" type ")" ) ] block
func (p *Parser) parseFunction() (*ast.Function, error) {
	inline := p.accept(token.INLINE)
	tok, err := p.expect(token.FUNCTION)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	fn := &ast.Function{Token: tok, Name: name.Literal, Inline: inline}
	if fn.Params, err = p.parseParamList(); err != nil {
		return nil, err
	}
	if p.accept(token.RETURNS) {
		paren := p.accept(token.LPAREN)
		if fn.Returns, err = p.parseType(); err != nil {
			return nil, err
		}
		if paren {
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
		}
	}
	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return fn, nil
}

// modifier = "modifier" IDENT [ "(" [ params ] ")" ] block
func (p *Parser) parseModifier() (*ast.Modifier, error) {
	tok := p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	mod := &ast.Modifier{Token: tok, Name: name.Literal}
	if p.curIs(token.LPAREN) {
		if mod.Params, err = p.parseParamList(); err != nil {
			return nil, err
		}
	}
	if mod.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return mod, nil
}

// action = { decorator } "action" IDENT "(" [ params ] ")"
//          { "view" | "pure" | IDENT [ "(" [ args ] ")" ] } block
func (p *Parser) parseAction() (*ast.Action, error) {
	decorators, err := p.parseDecorators()
	if err != nil {
		return nil, err
	}
	tok, err := p.expect(token.ACTION)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	act := &ast.Action{Token: tok, Name: name.Literal, Decorators: decorators}
	if act.Params, err = p.parseParamList(); err != nil {
		return nil, err
	}
	for !p.curIs(token.LBRACE) {
		switch p.cur().Type {
		case token.VIEW:
			p.advance()
			act.View = true
		case token.PURE:
			p.advance()
			act.Pure = true
		case token.IDENT:
			ref := &ast.ModifierRef{Token: p.cur(), Name: p.advance().Literal}
			if p.curIs(token.LPAREN) {
				if ref.Args, err = p.parseArgs(); err != nil {
					return nil, err
				}
			}
			act.Modifiers = append(act.Modifiers, ref)
		default:
			return nil, diag.Expected(p.cur(), token.LBRACE, token.VIEW, token.PURE, token.IDENT)
		}
	}
	if act.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return act, nil
}

// event = "event" IDENT "(" [ params ] ")" ";"
func (p *Parser) parseEvent() (*ast.Event, error) {
	tok := p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.Event{Token: tok, Name: name.Literal, Params: params}, nil
}

// parseParamList parses "(" [ type IDENT { "," type IDENT } ] ")".
func (p *Parser) parseParamList() ([]*ast.Param, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []*ast.Param
	for !p.curIs(token.RPAREN) {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.Param{Token: name, Name: name.Literal, Type: typ})
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// parseType parses a data type with any number of trailing "[]".
func (p *Parser) parseType() (ast.TypeExpr, error) {
	var typ ast.TypeExpr
	switch tok := p.cur(); tok.Type {
	case token.TYPENAME:
		p.advance()
		typ = &ast.NamedType{Token: tok, Name: strings.ToLower(tok.Literal)}
	case token.MAPPING:
		p.advance()
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		key, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.FATARROW); err != nil {
			return nil, err
		}
		val, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		typ = &ast.MappingType{Token: tok, Key: key, Value: val}
	case token.IDENT:
		return nil, diag.Semanticf(tok.Pos, "unknown data type %q", tok.Literal)
	default:
		return nil, diag.Expected(tok, token.TYPENAME, token.MAPPING)
	}
	for p.curIs(token.LBRACKET) && p.peekIs(token.RBRACKET) {
		tok := p.advance()
		p.advance()
		typ = &ast.ArrayType{Token: tok, Elem: typ}
	}
	return typ, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses "{" { statement } "}".
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	stmts := []ast.Stmt{}
	for !p.curIs(token.RBRACE) {
		if p.curIs(token.EOF) {
			return nil, diag.Expected(p.cur(), token.RBRACE)
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance()
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch tok := p.cur(); tok.Type {
	case token.REQUIRE:
		return p.parseRequire()
	case token.SEND:
		return p.parseSend()
	case token.EMIT:
		return p.parseEmit()
	case token.FAIL:
		return p.parseFail()
	case token.IF:
		return p.parseIf()
	case token.RETURN:
		return p.parseReturn()
	case token.TYPENAME:
		if !p.peekIs(token.LPAREN) {
			return p.parseLocalDecl()
		}
	case token.MAPPING:
		return p.parseLocalDecl()
	case token.IDENT:
		if tok.Literal == "_" && p.peekIs(token.SEMICOLON) {
			p.advance()
			p.advance()
			return &ast.PlaceholderStmt{Token: tok}, nil
		}
		if p.peekIs(token.IDENT) {
			// `Foo x = ...` with a non-type name in type position.
			return nil, diag.Semanticf(tok.Pos, "unknown data type %q", tok.Literal)
		}
	}
	return p.parseExprOrAssign()
}

// require "(" cond [ "," message ] ")" ";"
func (p *Parser) parseRequire() (ast.Stmt, error) {
	tok := p.advance()
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(args) < 1 || len(args) > 2 {
		return nil, diag.Syntaxf(tok.Pos, "require takes a condition and an optional message, got %d arguments", len(args))
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	s := &ast.RequireStmt{Token: tok, Cond: args[0]}
	if len(args) == 2 {
		s.Message = args[1]
	}
	return s, nil
}

// send "(" to "," amount [ "," memo ] ")" ";"
func (p *Parser) parseSend() (ast.Stmt, error) {
	tok := p.advance()
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(args) < 2 || len(args) > 3 {
		return nil, diag.Syntaxf(tok.Pos, "send takes a recipient, an amount and an optional memo, got %d arguments", len(args))
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	s := &ast.SendStmt{Token: tok, To: args[0], Amount: args[1]}
	if len(args) == 3 {
		s.Memo = args[2]
	}
	return s, nil
}

// emit IDENT "(" [ args ] ")" ";"
func (p *Parser) parseEmit() (ast.Stmt, error) {
	tok := p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.EmitStmt{Token: tok, Event: name.Literal, Args: args}, nil
}

// fail [ "(" [ message ] ")" ] ";"
func (p *Parser) parseFail() (ast.Stmt, error) {
	tok := p.advance()
	s := &ast.FailStmt{Token: tok}
	if p.curIs(token.LPAREN) {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if len(args) > 1 {
			return nil, diag.Syntaxf(tok.Pos, "%s takes at most one message", tok.Literal)
		}
		if len(args) == 1 {
			s.Message = args[0]
		}
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return s, nil
}

// if "(" cond ")" block [ "else" ( if | block ) ]
func (p *Parser) parseIf() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	s := &ast.IfStmt{Token: tok, Cond: cond}
	if s.Then, err = p.parseBlock(); err != nil {
		return nil, err
	}
	if !p.accept(token.ELSE) {
		return s, nil
	}
	if p.curIs(token.IF) {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		s.Else = []ast.Stmt{nested}
		return s, nil
	}
	if s.Else, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return s, nil
}

// return [ expr ] ";"
func (p *Parser) parseReturn() (ast.Stmt, error) {
	tok := p.advance()
	s := &ast.ReturnStmt{Token: tok}
	if !p.curIs(token.SEMICOLON) {
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		s.Value = v
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return s, nil
}

// type IDENT "=" expr ";"
func (p *Parser) parseLocalDecl() (ast.Stmt, error) {
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	op, err := p.expect(token.ASSIGN)
	if err != nil {
		return nil, err
	}
	v, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{
		Token:    op,
		Target:   &ast.Ident{Token: name, Name: name.Literal},
		Op:       "=",
		Value:    v,
		DeclType: typ,
	}, nil
}

// parseExprOrAssign parses `expr ;` or `target op= expr ;`.
func (p *Parser) parseExprOrAssign() (ast.Stmt, error) {
	start := p.cur()
	e, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.cur().Type]; ok {
		opTok := p.advance()
		if !isAssignable(e) {
			return nil, diag.Syntaxf(e.Pos(), "cannot assign to %s", e)
		}
		v, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Token: opTok, Target: e, Op: op, Value: v}, nil
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Token: start, Expr: e}, nil
}

// isAssignable reports whether e may appear on the left of an assignment:
// a plain name or a state field.
func isAssignable(e ast.Expr) bool {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name != "state"
	}
	field, ok := ast.IsStateRef(e)
	return ok && field != ""
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseExpression is the Pratt loop: it parses a unary operand and folds in
// infix operators binding tighter than prec. All binary operators are left
// associative.
func (p *Parser) parseExpression(prec precedence) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.cur()
		opPrec, ok := infixPrecedence[opTok.Type]
		if !ok || opPrec <= prec {
			return left, nil
		}
		p.advance()
		right, err := p.parseExpression(opPrec)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Token: opTok, Op: opTok.Type, Left: left, Right: right}
	}
}

// parseUnary parses prefix operators followed by a postfix chain.
func (p *Parser) parseUnary() (ast.Expr, error) {
	switch tok := p.cur(); tok.Type {
	case token.BANG, token.MINUS, token.TILDE:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Token: tok, Op: tok.Type, Operand: operand}, nil
	}
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(e)
}

// parsePostfix folds `.name`, `[index]` and `(args)` onto e.
func (p *Parser) parsePostfix(e ast.Expr) (ast.Expr, error) {
	for {
		switch tok := p.cur(); tok.Type {
		case token.DOT:
			p.advance()
			if !isName(p.cur()) {
				return nil, diag.Expected(p.cur(), token.IDENT)
			}
			e = &ast.MemberExpr{Token: tok, X: e, Name: p.advance().Literal}
		case token.LBRACKET:
			p.advance()
			idx, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			e = &ast.IndexExpr{Token: tok, X: e, Index: idx}
		case token.LPAREN:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			e = &ast.CallExpr{Token: tok, Fn: e, Args: args}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case token.IDENT, token.STATE:
		p.advance()
		return &ast.Ident{Token: tok, Name: identName(tok)}, nil
	case token.TYPENAME:
		// Casts: uint256(x).
		if !p.peekIs(token.LPAREN) {
			return nil, diag.Expected(p.peek(), token.LPAREN)
		}
		p.advance()
		return &ast.Ident{Token: tok, Name: strings.ToLower(tok.Literal)}, nil
	case token.INT:
		p.advance()
		v, ok := new(big.Int).SetString(tok.Literal, 10)
		if !ok {
			return nil, diag.Syntaxf(tok.Pos, "malformed integer literal %q", tok.Literal)
		}
		return &ast.IntLit{Token: tok, Value: v}, nil
	case token.HEX:
		p.advance()
		digits := tok.Literal[2:]
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, diag.Syntaxf(tok.Pos, "malformed hex literal %q", tok.Literal)
		}
		return &ast.HexLit{Token: tok, Value: b}, nil
	case token.STRING:
		p.advance()
		return &ast.StringLit{Token: tok, Value: tok.Literal}, nil
	case token.TRUE, token.FALSE:
		p.advance()
		return &ast.BoolLit{Token: tok, Value: tok.Type == token.TRUE}, nil
	case token.LPAREN:
		return p.parseParenOrList()
	case token.LBRACKET:
		return p.parseArrayLit()
	}
	return nil, diag.Expected(tok, token.IDENT, token.INT, token.HEX, token.STRING, token.LPAREN, token.LBRACKET)
}

// identName returns the canonical name of an identifier token. Keywords
// used as names (`state`) are lower-cased.
func identName(tok token.Token) string {
	if tok.Type == token.IDENT {
		return tok.Literal
	}
	return strings.ToLower(tok.Literal)
}

// parseParenOrList disambiguates `(expr)` from a list literal `(a b c)`.
//
// After the opening parenthesis one element is parsed speculatively at
// unary level. A failure or a following operator means the contents are a
// full expression; the cursor is rewound and reparsed. A closing
// parenthesis means a parenthesized single operand. Any other token
// starting a value means a list literal.
func (p *Parser) parseParenOrList() (ast.Expr, error) {
	open := p.advance()
	if p.accept(token.RPAREN) {
		return &ast.ListLit{Token: open, Elements: []ast.Expr{}}, nil
	}
	start := p.mark()
	first, err := p.parseUnary()
	if err == nil && startsValue(p.cur().Type) {
		elems := []ast.Expr{first}
		for !p.curIs(token.RPAREN) {
			e, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		p.advance()
		return &ast.ListLit{Token: open, Elements: elems}, nil
	}
	if err == nil && p.curIs(token.RPAREN) {
		p.advance()
		return first, nil
	}
	p.reset(start)
	inner, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return inner, nil
}

// startsValue reports whether a token can begin a list element.
func startsValue(t token.Type) bool {
	switch t {
	case token.IDENT, token.STATE, token.TYPENAME, token.INT, token.HEX,
		token.STRING, token.TRUE, token.FALSE, token.LPAREN, token.LBRACKET:
		return true
	}
	return false
}

// parseArrayLit parses "[" [ expr { "," expr } ] "]".
func (p *Parser) parseArrayLit() (ast.Expr, error) {
	open := p.advance()
	elems := []ast.Expr{}
	for !p.curIs(token.RBRACKET) {
		e, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.ArrayLit{Token: open, Elements: elems}, nil
}

// parseArgs parses "(" [ expr { "," expr } ] ")". The result is non-nil
// even when empty.
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	args := []ast.Expr{}
	for !p.curIs(token.RPAREN) {
		e, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}
