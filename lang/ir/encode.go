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
	"errors"
	"fmt"
	"math/big"
)

// Binary encoding markers.
const (
	pairMarker = 0xff
	nilMarker  = 0x80
)

// AtomBytes returns the byte content of an atom. Integers use minimal
// big-endian two's complement (zero is empty); symbols and strings use their
// UTF-8 bytes. Pairs have no atom content.
func AtomBytes(n Node) ([]byte, bool) {
	switch x := n.(type) {
	case Symbol:
		return []byte(x), true
	case *Int:
		return IntBytes(x.V), true
	case Bytes:
		return []byte(x), true
	case String:
		return []byte(x), true
	case nilNode:
		return nil, true
	}
	return nil, false
}

// IntBytes encodes v as minimal big-endian two's complement.
func IntBytes(v *big.Int) []byte {
	switch v.Sign() {
	case 0:
		return nil
	case 1:
		b := v.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// Smallest n with -2^(8n-1) <= v.
	mag := new(big.Int).Neg(v)
	mag.Sub(mag, big.NewInt(1))
	n := mag.BitLen()/8 + 1
	tc := new(big.Int).Lsh(big.NewInt(1), uint(8*n))
	tc.Add(tc, v)
	out := make([]byte, n)
	return tc.FillBytes(out)
}

// Encode returns the binary serialization of n: 0xff introduces a pair,
// 0x80 is the empty atom, a single byte below 0x80 stands for itself, and
// longer atoms carry a length prefix.
func Encode(n Node) []byte {
	var out []byte
	var enc func(Node)
	enc = func(n Node) {
		if p, ok := n.(*Pair); ok {
			out = append(out, pairMarker)
			enc(p.First)
			enc(p.Rest)
			return
		}
		atom, _ := AtomBytes(n)
		out = appendAtom(out, atom)
	}
	enc(n)
	return out
}

func appendAtom(out, atom []byte) []byte {
	l := len(atom)
	switch {
	case l == 0:
		return append(out, nilMarker)
	case l == 1 && atom[0] < 0x80:
		return append(out, atom[0])
	case l < 0x40:
		out = append(out, 0x80|byte(l))
	case l < 0x2000:
		out = append(out, 0xc0|byte(l>>8), byte(l))
	case l < 0x100000:
		out = append(out, 0xe0|byte(l>>16), byte(l>>8), byte(l))
	case l < 0x8000000:
		out = append(out, 0xf0|byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	default:
		out = append(out, 0xf8|byte(l>>32), byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	}
	return append(out, atom...)
}

var errTruncated = errors.New("truncated tree encoding")

// Decode parses a binary serialization. Atom kinds are not recorded in the
// encoding, so every non-empty atom decodes as Bytes.
func Decode(b []byte) (Node, error) {
	n, rest, err := decode(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after tree encoding", len(rest))
	}
	return n, nil
}

func decode(b []byte) (Node, []byte, error) {
	if len(b) == 0 {
		return nil, nil, errTruncated
	}
	c := b[0]
	switch {
	case c == pairMarker:
		first, rest, err := decode(b[1:])
		if err != nil {
			return nil, nil, err
		}
		second, rest, err := decode(rest)
		if err != nil {
			return nil, nil, err
		}
		return Cons(first, second), rest, nil
	case c == nilMarker:
		return Nil, b[1:], nil
	case c < 0x80:
		return Bytes{c}, b[1:], nil
	}
	var size, prefix int
	switch {
	case c&0xc0 == 0x80:
		size, prefix = int(c&0x3f), 1
	case c&0xe0 == 0xc0:
		size, prefix = int(c&0x1f), 2
	case c&0xf0 == 0xe0:
		size, prefix = int(c&0x0f), 3
	case c&0xf8 == 0xf0:
		size, prefix = int(c&0x07), 4
	default:
		size, prefix = int(c&0x07), 5
	}
	if len(b) < prefix {
		return nil, nil, errTruncated
	}
	for i := 1; i < prefix; i++ {
		size = size<<8 | int(b[i])
	}
	b = b[prefix:]
	if len(b) < size {
		return nil, nil, errTruncated
	}
	return Bytes(append([]byte{}, b[:size]...)), b[size:], nil
}

// TreeHash returns the tree hash of n: sha256(1 || atom) for atoms and
// sha256(2 || hash(first) || hash(rest)) for pairs.
func TreeHash(n Node) [32]byte {
	if p, ok := n.(*Pair); ok {
		l := TreeHash(p.First)
		r := TreeHash(p.Rest)
		h := sha256.New()
		h.Write([]byte{2})
		h.Write(l[:])
		h.Write(r[:])
		var out [32]byte
		copy(out[:], h.Sum(nil))
		return out
	}
	atom, _ := AtomBytes(n)
	return sha256.Sum256(append([]byte{1}, atom...))
}
