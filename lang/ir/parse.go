// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ir

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Parse reads the text form produced by Serialize (compact or indented)
// back into a tree.
func Parse(src string) (Node, error) {
	r := &reader{src: src}
	n, err := r.node()
	if err != nil {
		return nil, err
	}
	r.skipSpace()
	if r.pos < len(r.src) {
		return nil, r.errorf("unexpected %q after expression", r.src[r.pos])
	}
	return n, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// fixed program templates.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

type reader struct {
	src string
	pos int
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("ir: offset %d: %s", r.pos, fmt.Sprintf(format, args...))
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) && isSpace(r.src[r.pos]) {
		r.pos++
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isDelim(c byte) bool { return isSpace(c) || c == '(' || c == ')' || c == '"' }

func (r *reader) node() (Node, error) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return nil, r.errorf("unexpected end of input")
	}
	switch r.src[r.pos] {
	case '(':
		r.pos++
		return r.list()
	case ')':
		return nil, r.errorf("unexpected ')'")
	case '"':
		return r.str()
	}
	tok := r.atomText()
	if tok == "." {
		return nil, r.errorf("unexpected '.'")
	}
	return atomFromText(tok), nil
}

// list parses the remainder of a list after its opening parenthesis.
func (r *reader) list() (Node, error) {
	var items []Node
	tail := Nil
	for {
		r.skipSpace()
		if r.pos >= len(r.src) {
			return nil, r.errorf("unterminated list")
		}
		if r.src[r.pos] == ')' {
			r.pos++
			break
		}
		if r.src[r.pos] == '.' && (r.pos+1 == len(r.src) || isDelim(r.src[r.pos+1])) {
			if len(items) == 0 {
				return nil, r.errorf("dotted pair without a head")
			}
			r.pos++
			n, err := r.node()
			if err != nil {
				return nil, err
			}
			tail = n
			r.skipSpace()
			if r.pos >= len(r.src) || r.src[r.pos] != ')' {
				return nil, r.errorf("expected ')' after dotted tail")
			}
			r.pos++
			break
		}
		n, err := r.node()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out, nil
}

func (r *reader) str() (Node, error) {
	start := r.pos
	r.pos++
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case '\\':
			r.pos += 2
			continue
		case '"':
			r.pos++
			s, err := strconv.Unquote(r.src[start:r.pos])
			if err != nil {
				return nil, r.errorf("bad string literal: %v", err)
			}
			return String(s), nil
		}
		r.pos++
	}
	return nil, r.errorf("unterminated string")
}

func (r *reader) atomText() string {
	start := r.pos
	for r.pos < len(r.src) && !isDelim(r.src[r.pos]) {
		r.pos++
	}
	return r.src[start:r.pos]
}

// atomFromText classifies an unquoted atom: decimal integers, 0x byte
// strings, and symbols for everything else.
func atomFromText(tok string) Node {
	if isInteger(tok) {
		v, _ := new(big.Int).SetString(tok, 10)
		return &Int{V: v}
	}
	if strings.HasPrefix(tok, "0x") {
		if b, err := hex.DecodeString(tok[2:]); err == nil {
			return Bytes(b)
		}
	}
	return Symbol(tok)
}

func isInteger(tok string) bool {
	digits := strings.TrimPrefix(tok, "-")
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}
