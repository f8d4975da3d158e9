// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/token"
)

// Condition opcodes, referenced by name from condition_codes.clib.
const (
	condAggSigMe                 = "AGG_SIG_ME"
	condCreateCoin               = "CREATE_COIN"
	condReserveFee               = "RESERVE_FEE"
	condCreateCoinAnnouncement   = "CREATE_COIN_ANNOUNCEMENT"
	condAssertCoinAnnouncement   = "ASSERT_COIN_ANNOUNCEMENT"
	condCreatePuzzleAnnouncement = "CREATE_PUZZLE_ANNOUNCEMENT"
	condAssertPuzzleAnnouncement = "ASSERT_PUZZLE_ANNOUNCEMENT"
	condRemark                   = "REMARK"
)

// stateMarker tags the condition carrying the reconstructed state. It is
// consumed by the state layer and never reaches the chain.
const stateMarker = -42

type builtinKind int

const (
	builtinOp   builtinKind = iota // (op args...)
	builtinCond                    // (list CODE args...)
	builtinEnv                     // environment input
)

type builtin struct {
	kind    builtinKind
	op      string // target operator or condition code
	feature string
	min     int
	max     int // -1 for variadic
	env     envInput
}

// builtins is the fixed call table. Type names are handled separately as
// no-op casts.
var builtins = map[string]builtin{
	// hashing
	"sha256":     {op: "sha256", min: 1, max: -1},
	"keccak256":  {op: "keccak256", min: 1, max: -1},
	"sha256tree": {op: "sha256tree", feature: featureSha256tree, min: 1, max: 1},
	"treeHash":   {op: "sha256tree", feature: featureSha256tree, min: 1, max: 1},

	// lists
	"first":  {op: "f", min: 1, max: 1},
	"rest":   {op: "r", min: 1, max: 1},
	"cons":   {op: "c", min: 2, max: 2},
	"list":   {op: "list", min: 0, max: -1},
	"isList": {op: "l", min: 1, max: 1},

	// strings
	"concat": {op: "concat", min: 0, max: -1},
	"strlen": {op: "strlen", min: 1, max: 1},
	"substr": {op: "substr", min: 2, max: 3},

	// BLS12-381
	"pubkeyForExp":       {op: "pubkey_for_exp", min: 1, max: 1},
	"pointAdd":           {op: "g1_add", min: 1, max: -1},
	"g1Add":              {op: "g1_add", min: 1, max: -1},
	"g1Multiply":         {op: "g1_multiply", min: 2, max: 2},
	"g1Negate":           {op: "g1_negate", min: 1, max: 1},
	"g2Add":              {op: "g2_add", min: 1, max: -1},
	"g2Multiply":         {op: "g2_multiply", min: 2, max: 2},
	"blsVerify":          {op: "bls_verify", min: 2, max: -1},
	"blsPairingIdentity": {op: "bls_pairing_identity", min: 2, max: -1},

	// coins and currying
	"coinId":    {op: "coinid", min: 3, max: 3},
	"curryHash": {op: "curry_hashes", feature: featureCurry, min: 1, max: -1},
	"eval":      {op: "a", min: 2, max: 2},

	// environment
	"currentTime":   {kind: builtinEnv, feature: featureConditions, env: envTime},
	"currentHeight": {kind: builtinEnv, feature: featureConditions, env: envHeight},
	"myCoinId":      {kind: builtinEnv, feature: featureConditions, env: envCoinID},
	"myAmount":      {kind: builtinEnv, feature: featureConditions, env: envAmount},
	"myPuzzleHash":  {kind: builtinEnv, feature: featureConditions, env: envPuzzleHash},
	"myParentId":    {kind: builtinEnv, feature: featureConditions, env: envParentID},

	// conditions
	"aggSigMe":                 {kind: builtinCond, op: condAggSigMe, feature: featureConditions, min: 2, max: 2},
	"createCoin":               {kind: builtinCond, op: condCreateCoin, feature: featureConditions, min: 2, max: 3},
	"reserveFee":               {kind: builtinCond, op: condReserveFee, feature: featureConditions, min: 1, max: 1},
	"createCoinAnnouncement":   {kind: builtinCond, op: condCreateCoinAnnouncement, feature: featureConditions, min: 1, max: 1},
	"assertCoinAnnouncement":   {kind: builtinCond, op: condAssertCoinAnnouncement, feature: featureConditions, min: 1, max: 1},
	"createPuzzleAnnouncement": {kind: builtinCond, op: condCreatePuzzleAnnouncement, feature: featureConditions, min: 1, max: 1},
	"assertPuzzleAnnouncement": {kind: builtinCond, op: condAssertPuzzleAnnouncement, feature: featureConditions, min: 1, max: 1},
	"remark":                   {kind: builtinCond, op: condRemark, feature: featureConditions, min: 0, max: -1},
}

func (bi builtin) compile(b *body, call *ast.CallExpr, args []ir.Node) (ir.Node, error) {
	name := calleeName(call)
	if len(args) < bi.min || (bi.max >= 0 && len(args) > bi.max) {
		return nil, diag.Semanticf(call.Pos(), "%s: wrong number of arguments (%d)", name, len(args))
	}
	switch bi.kind {
	case builtinEnv:
		return b.envRef(bi.env, call.Pos())
	case builtinCond:
		if bi.op == condCreateCoin && len(args) == 3 {
			args = []ir.Node{args[0], args[1], ir.Call("list", args[2])}
		}
		return ir.Call("list", append([]ir.Node{ir.Sym(bi.op)}, args...)...), nil
	}
	return ir.Call(bi.op, args...), nil
}

// ---- Environment inputs ----------------------------------------------------

type envInput int

const (
	envAmount envInput = iota
	envCoinID
	envPuzzleHash
	envParentID
	envTime
	envHeight
	numEnvInputs
)

// envInputs lists each input's implicit parameter and the condition that
// binds it to the spend, in canonical order.
var envInputs = [numEnvInputs]struct{ symbol, assertion string }{
	envAmount:     {"my_amount", "ASSERT_MY_AMOUNT"},
	envCoinID:     {"my_coin_id", "ASSERT_MY_COIN_ID"},
	envPuzzleHash: {"my_puzzle_hash", "ASSERT_MY_PUZZLEHASH"},
	envParentID:   {"my_parent_id", "ASSERT_MY_PARENT_ID"},
	envTime:       {"now", "ASSERT_SECONDS_ABSOLUTE"},
	envHeight:     {"height", "ASSERT_HEIGHT_ABSOLUTE"},
}

// envMembers maps reserved member accesses to environment inputs.
var envMembers = map[string]envInput{
	"msg.value":       envAmount,
	"this.amount":     envAmount,
	"this.coinId":     envCoinID,
	"this.id":         envCoinID,
	"this.puzzleHash": envPuzzleHash,
	"this.parentId":   envParentID,
	"block.timestamp": envTime,
	"block.height":    envHeight,
	"block.number":    envHeight,
}

func isReserved(name string) bool {
	return name == "msg" || name == "block" || name == "this"
}

// envMember returns the input named by a reserved member access.
func envMember(e *ast.MemberExpr) (envInput, bool) {
	id, ok := e.X.(*ast.Ident)
	if !ok || !isReserved(id.Name) {
		return 0, false
	}
	in, ok := envMembers[id.Name+"."+e.Name]
	return in, ok
}

// isSender reports whether e is msg.sender.
func isSender(e ast.Expr) bool {
	m, ok := e.(*ast.MemberExpr)
	if !ok || m.Name != "sender" {
		return false
	}
	id, ok := m.X.(*ast.Ident)
	return ok && id.Name == "msg"
}

// senderCheck matches msg.sender == X in either operand order and returns X.
func senderCheck(cond ast.Expr) (ast.Expr, bool) {
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok || bin.Op != token.EQ {
		return nil, false
	}
	switch {
	case isSender(bin.Left) && !isSender(bin.Right):
		return bin.Right, true
	case isSender(bin.Right) && !isSender(bin.Left):
		return bin.Left, true
	}
	return nil, false
}

// envUsage returns the environment inputs an action reads, including
// through its modifiers, in canonical order.
func (c *context) envUsage(a *ast.Action) []envInput {
	var used [numEnvInputs]bool
	for _, body := range c.actionBodies(a) {
		inspect(body, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.MemberExpr:
				if in, ok := envMember(n); ok {
					used[in] = true
				}
			case *ast.CallExpr:
				if bi, ok := builtins[calleeName(n)]; ok && bi.kind == builtinEnv {
					used[bi.env] = true
				}
			}
			return true
		})
	}
	var out []envInput
	for in, ok := range used {
		if ok {
			out = append(out, envInput(in))
		}
	}
	return out
}
