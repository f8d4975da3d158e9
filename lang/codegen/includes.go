// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/probechain/coinscript/lang/ast"
	"github.com/probechain/coinscript/lang/token"
)

// Feature tags recorded while scanning bodies. Built-ins lowering to a
// native operator carry none.
const (
	featureConditions = "conditions"
	featureSha256tree = "sha256tree"
	featureCurry      = "curry"
	featureLogic      = "logic"
)

// includeFiles maps every feature to its library file, in the order
// inferred includes are emitted.
var includeFiles = []struct{ feature, file string }{
	{featureConditions, "condition_codes.clib"},
	{featureSha256tree, "sha256tree.clib"},
	{featureCurry, "curry-and-treehash.clinc"},
	{featureLogic, "utility_macros.clib"},
}

// scanFeatures collects the feature tags used by bodies.
func scanFeatures(bodies [][]ast.Stmt) mapset.Set {
	set := mapset.NewThreadUnsafeSet()
	for _, body := range bodies {
		inspect(body, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.SendStmt:
				set.Add(featureConditions)
			case *ast.EmitStmt:
				set.Add(featureConditions)
				if len(n.Args) > 1 {
					set.Add(featureSha256tree)
				}
			case *ast.RequireStmt:
				if _, ok := senderCheck(n.Cond); ok {
					set.Add(featureConditions)
					set.Add(featureSha256tree)
				}
			case *ast.MemberExpr:
				if _, ok := envMember(n); ok {
					set.Add(featureConditions)
				}
			case *ast.BinaryExpr:
				if n.Op == token.AND || n.Op == token.OR {
					set.Add(featureLogic)
				}
			case *ast.CallExpr:
				if bi, ok := builtins[calleeName(n)]; ok && bi.feature != "" {
					set.Add(bi.feature)
				}
			}
			return true
		})
	}
	return set
}

// resolveIncludes returns the explicit includes in written order followed
// by the includes the features imply, without duplicates.
func (c *context) resolveIncludes(features mapset.Set) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	add := func(file string) {
		if !seen[file] {
			seen[file] = true
			out = append(out, file)
		}
	}
	for _, inc := range c.file.Includes {
		add(inc.Path)
	}
	for _, f := range includeFiles {
		if features.Contains(f.feature) {
			add(f.file)
		}
	}
	return out
}
