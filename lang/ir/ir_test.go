// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactText(t *testing.T) {
	cases := []struct {
		node Node
		want string
	}{
		{Nil, "()"},
		{Sym("ACTION"), "ACTION"},
		{I(-42), "-42"},
		{Hex([]byte{0xde, 0xad}), "0xdead"},
		{Hex(nil), "0x"},
		{Str(`say "hi"`), `"say \"hi\""`},
		{List(I(1), I(2), I(3)), "(1 2 3)"},
		{Cons(Sym("q"), I(5)), "(q . 5)"},
		{Cons(I(1), Cons(I(2), I(3))), "(1 2 . 3)"},
		{Call("if", Sym("c"), Nil, Call("x")), "(if c () (x))"},
		{Quote(Nil), "(q)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Serialize(tc.node, Options{}))
		assert.Equal(t, tc.want, tc.node.String())
	}
}

func TestCurry(t *testing.T) {
	got := Curry(Sym("MOD"), I(7), Hex([]byte{1}))
	assert.Equal(t, "(a (q . MOD) (c (q . 7) (c (q . 0x01) 1)))", got.String())
	assert.Equal(t, "(a (q . MOD) 1)", Curry(Sym("MOD")).String())
}

func TestIndented(t *testing.T) {
	short := List(Sym("mod"), List(Sym("a")), Sym("a"))
	assert.Equal(t, "(mod (a) a)", Serialize(short, Options{Indent: "  "}))

	long := List(Sym("mod"), List(Sym("ACTION"), Sym("ACTION_ARGS")),
		Call("if", Call("=", Sym("ACTION"), Str("transfer_ownership_now")),
			Call("c", List(Sym("CREATE_COIN"), Sym("new_owner_puzzle_hash"), Sym("amount")), Nil),
			Call("x")))
	out := Serialize(long, Options{Indent: "  "})
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 1)
	assert.Equal(t, "(mod", lines[0])
	assert.Equal(t, "  (ACTION ACTION_ARGS)", lines[1])
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), lineWidth)
	}

	back, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, Equal(long, back))
}

func TestRoundTrip(t *testing.T) {
	big1, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	trees := []Node{
		Nil,
		I(0),
		I(-1),
		BigInt(big1),
		Hex([]byte{0, 1, 2, 0xff}),
		Str("tab\there\nline \\ \"q\""),
		Cons(Sym("q"), Nil),
		Cons(I(1), Cons(I(2), I(3))),
		List(Sym("mod"), List(Sym("STATE"), Sym("ACTION"), Sym("ACTION_ARGS")),
			Call("include", Sym("condition_codes.clib")),
			Call("c", List(I(-42), List(Sym("s0"), Sym("s1"))), Nil)),
	}
	for _, n := range trees {
		text := Serialize(n, Options{})
		back, err := Parse(text)
		require.NoError(t, err, text)
		if diff := cmp.Diff(text, Serialize(back, Options{})); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, Equal(n, back), text)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "(", ")", "(a . )", "(. a)", "(a . b c)", `"open`, "a b"} {
		_, err := Parse(src)
		assert.Error(t, err, "%q", src)
	}
}

func TestIntBytes(t *testing.T) {
	cases := []struct {
		v    int64
		want string
	}{
		{0, ""},
		{1, "01"},
		{127, "7f"},
		{128, "0080"},
		{255, "00ff"},
		{256, "0100"},
		{-1, "ff"},
		{-128, "80"},
		{-129, "ff7f"},
		{-42, "d6"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, hex.EncodeToString(IntBytes(big.NewInt(tc.v))), "%d", tc.v)
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "80", Serialize(Nil, Options{Compiled: true}))
	assert.Equal(t, "01", Serialize(I(1), Options{Compiled: true}))
	assert.Equal(t, "820080", Serialize(I(128), Options{Compiled: true}))
	assert.Equal(t, "ff01ff0280", Serialize(List(I(1), I(2)), Options{Compiled: true}))
	assert.Equal(t, "ff0102", Serialize(Cons(I(1), I(2)), Options{Compiled: true}))
	assert.Equal(t, "61", Serialize(Sym("a"), Options{Compiled: true}))
	assert.Equal(t, "83616263", Serialize(Str("abc"), Options{Compiled: true}))

	long := Hex(make([]byte, 100))
	enc := Encode(long)
	assert.Equal(t, []byte{0xc0, 100}, enc[:2])
	assert.Len(t, enc, 102)

	dec, err := Decode(Encode(List(I(1), Hex([]byte{0xaa, 0xbb}), long)))
	require.NoError(t, err)
	items, ok := Items(dec)
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, Bytes{1}, items[0])
	assert.Equal(t, Bytes{0xaa, 0xbb}, items[1])
	assert.Len(t, items[2], 100)

	_, err = Decode([]byte{0xff, 0x01})
	assert.Error(t, err)
	_, err = Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestTreeHash(t *testing.T) {
	nilHash := sha256.Sum256([]byte{1})
	assert.Equal(t, nilHash, TreeHash(Nil))

	one := sha256.Sum256([]byte{1, 1})
	assert.Equal(t, one, TreeHash(I(1)))

	pair := append([]byte{2}, one[:]...)
	pair = append(pair, nilHash[:]...)
	assert.Equal(t, sha256.Sum256(pair), TreeHash(List(I(1))))

	// Atoms with equal bytes hash equally whatever their kind.
	assert.Equal(t, TreeHash(Hex([]byte("a"))), TreeHash(Sym("a")))
	assert.NotEqual(t, TreeHash(List(I(1), I(2))), TreeHash(List(I(2), I(1))))
}

func TestInspection(t *testing.T) {
	n := Call("if", Sym("c"), I(1), I(2))
	assert.Equal(t, "if", Head(n))
	assert.Equal(t, "", Head(I(1)))
	items, ok := Items(n)
	require.True(t, ok)
	assert.Len(t, items, 4)
	_, ok = Items(Cons(I(1), I(2)))
	assert.False(t, ok)

	var ints int
	Walk(n, func(x Node) bool {
		if _, ok := x.(*Int); ok {
			ints++
		}
		return true
	})
	assert.Equal(t, 2, ints)

	assert.False(t, Equal(Sym("a"), Str("a")))
	assert.True(t, Equal(BigInt(big.NewInt(9)), I(9)))
}
