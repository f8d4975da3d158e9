// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package codegen translates a parsed coin into its target tree.
//
// Generation runs in fixed stages over one compilation context:
//
//	resolve    fold storage and constants, index state, check state access
//	bodies     compile action, modifier and function bodies in CPS
//	dispatch   build the direct program or the action dispatcher
//	merkle     commit to the stateful sub-programs
//	layers     wrap the dispatcher in the action, explicit and decorator layers
//
// The first error aborts generation; there is no partial result.
package codegen

import (
	"fmt"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/log"
)

// MerkleMode selects how the stateful action commitment is built.
type MerkleMode int

const (
	// MerkleConcat hashes the concatenated sub-program hashes.
	MerkleConcat MerkleMode = iota
	// MerkleTree builds a binary merkle tree with per-action proofs.
	MerkleTree
)

func (m MerkleMode) String() string {
	switch m {
	case MerkleConcat:
		return "concat"
	case MerkleTree:
		return "tree"
	}
	return fmt.Sprintf("MerkleMode(%d)", int(m))
}

// Config tunes one generation run.
type Config struct {
	// ConstructorArgs binds constructor parameters by name to literal source
	// text, for example {"owner": "0xabc..."}.
	ConstructorArgs map[string]string

	// AllowUnresolvedCalls degrades calls to unknown functions into plain
	// applications instead of failing.
	AllowUnresolvedCalls bool

	Merkle MerkleMode

	// AddressPrefixes lists the bech32 human readable parts recognised as
	// addresses in string literals. Nil means bech32.DefaultPrefixes.
	AddressPrefixes []string
}

// ActionKind classifies an action by how the dispatcher reaches it.
type ActionKind int

const (
	ActionTagged ActionKind = iota
	ActionDefault
	ActionStateful
	ActionInnerPuzzle
)

func (k ActionKind) String() string {
	switch k {
	case ActionTagged:
		return "tagged"
	case ActionDefault:
		return "default"
	case ActionStateful:
		return "stateful"
	case ActionInnerPuzzle:
		return "inner_puzzle"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ActionInfo describes one compiled action.
type ActionInfo struct {
	Name   string
	Kind   ActionKind
	Params []string // declared parameters
	Env    []string // implicit environment parameters, in canonical order
	View   bool
}

// ProofStep is one sibling on the path from a leaf to the merkle root.
type ProofStep struct {
	Hash [32]byte
	Left bool // sibling is the left operand
}

// SubProgram is a standalone program compiled for a @stateful or
// @inner_puzzle action.
type SubProgram struct {
	Action   string
	Kind     ActionKind
	Program  ir.Node
	Hash     [32]byte
	Includes []string
	Proof    []ProofStep // set only in MerkleTree mode for stateful actions
}

// Result is the output of a generation run.
type Result struct {
	Name         string
	Program      ir.Node // final tree, all layers applied
	Inner        ir.Node // dispatcher or direct program before layers
	Actions      []ActionInfo
	SubPrograms  []SubProgram
	MerkleRoot   []byte // nil without stateful actions
	InitialState []ir.Node
	StateFields  []string
	Includes     []string // includes of the outer program
	Direct       bool     // single action emitted without a dispatch tag
}

// Generator turns a parsed file into a Result.
type Generator struct {
	cfg Config
	log log.Logger
}

// New creates a generator with the given configuration.
func New(cfg Config) *Generator {
	return &Generator{cfg: cfg, log: log.New("pkg", "codegen")}
}

// Generate compiles the coin declared in file.
func (g *Generator) Generate(file *ast.File) (*Result, error) {
	if file == nil || file.Coin == nil {
		return nil, fmt.Errorf("no coin declaration")
	}
	ctx := newContext(file, g.cfg, g.log.New("coin", file.Coin.Name))
	if err := ctx.resolve(); err != nil {
		return nil, err
	}
	res, err := ctx.synthesize()
	if err != nil {
		return nil, err
	}
	if errs := Verify(res.Program); len(errs) > 0 {
		return nil, &errs[0]
	}
	return res, nil
}
