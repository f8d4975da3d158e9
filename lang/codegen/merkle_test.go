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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaves(n int) [][32]byte {
	out := make([][32]byte, n)
	for i := range out {
		out[i] = sha256.Sum256([]byte(fmt.Sprintf("program-%d", i)))
	}
	return out
}

func TestMerkleConcat(t *testing.T) {
	hs := leaves(2)
	want := sha256.Sum256(append(hs[0][:], hs[1][:]...))
	assert.Equal(t, want, merkleConcat(hs))
}

func TestMerkleTreeSmall(t *testing.T) {
	hs := leaves(2)
	root, proofs := merkleTree(hs)
	assert.Equal(t, merkleNode(merkleLeaf(hs[0]), merkleLeaf(hs[1])), root)
	require.Len(t, proofs, 2)
	assert.Equal(t, []ProofStep{{Hash: merkleLeaf(hs[1]), Left: false}}, proofs[0])
	assert.Equal(t, []ProofStep{{Hash: merkleLeaf(hs[0]), Left: true}}, proofs[1])

	root, proofs = merkleTree(hs[:1])
	assert.Equal(t, merkleLeaf(hs[0]), root)
	assert.Empty(t, proofs[0])
}

func TestMerkleTreeOddPromotion(t *testing.T) {
	hs := leaves(3)
	root, proofs := merkleTree(hs)
	left := merkleNode(merkleLeaf(hs[0]), merkleLeaf(hs[1]))
	assert.Equal(t, merkleNode(left, merkleLeaf(hs[2])), root)
	assert.Equal(t, []ProofStep{{Hash: left, Left: true}}, proofs[2])
}

func TestMerkleProofsVerify(t *testing.T) {
	for n := 1; n <= 9; n++ {
		hs := leaves(n)
		root, proofs := merkleTree(hs)
		for i := range hs {
			assert.True(t, VerifyProof(root, hs[i], proofs[i]), "n=%d leaf=%d", n, i)
			if n > 1 {
				other := hs[(i+1)%n]
				assert.False(t, VerifyProof(root, other, proofs[i]), "n=%d leaf=%d accepted wrong leaf", n, i)
			}
		}
	}
}

func TestMerkleTreeEmpty(t *testing.T) {
	root, proofs := merkleTree(nil)
	assert.Equal(t, [32]byte{}, root)
	assert.Nil(t, proofs)
}
