// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"crypto/sha256"
)

// Domain separation prefixes for the tree construction.
const (
	merkleNodePrefix = 0x01
	merkleLeafPrefix = 0x02
)

// merkleConcat commits to the hashes with sha256(h1 || ... || hn).
func merkleConcat(hashes [][32]byte) [32]byte {
	h := sha256.New()
	for _, x := range hashes {
		h.Write(x[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func merkleLeaf(x [32]byte) [32]byte {
	return sha256.Sum256(append([]byte{merkleLeafPrefix}, x[:]...))
}

func merkleNode(l, r [32]byte) [32]byte {
	buf := make([]byte, 0, 65)
	buf = append(buf, merkleNodePrefix)
	buf = append(buf, l[:]...)
	buf = append(buf, r[:]...)
	return sha256.Sum256(buf)
}

// merkleTree builds a binary tree over the hashes and returns the root and
// one proof per leaf. An odd node at the end of a level is promoted
// unchanged.
func merkleTree(hashes [][32]byte) ([32]byte, [][]ProofStep) {
	if len(hashes) == 0 {
		return [32]byte{}, nil
	}
	level := make([][32]byte, len(hashes))
	pos := make([]int, len(hashes)) // position of each leaf's ancestor in level
	for i, x := range hashes {
		level[i] = merkleLeaf(x)
		pos[i] = i
	}
	proofs := make([][]ProofStep, len(hashes))
	for len(level) > 1 {
		for leaf, p := range pos {
			sib := p ^ 1
			if sib < len(level) {
				proofs[leaf] = append(proofs[leaf], ProofStep{Hash: level[sib], Left: sib < p})
			}
		}
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, merkleNode(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		for leaf := range pos {
			pos[leaf] /= 2
		}
		level = next
	}
	return level[0], proofs
}

// VerifyProof reports whether proof links the program hash leaf to root
// under the tree construction.
func VerifyProof(root, leaf [32]byte, proof []ProofStep) bool {
	h := merkleLeaf(leaf)
	for _, step := range proof {
		if step.Left {
			h = merkleNode(step.Hash, h)
		} else {
			h = merkleNode(h, step.Hash)
		}
	}
	return h == root
}
