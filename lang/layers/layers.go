// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package layers wraps a compiled puzzle in the standard outer puzzles.
//
// Every layer is a curried application of a well-known module to its
// arguments followed by the inner puzzle:
//
//	(a (q . MOD) (c (q . arg1) ... (c (q . inner) 1)))
//
// Modules are referenced by symbol; linking them to their compiled form is
// left to the toolchain that consumes the tree.
package layers

import (
	"fmt"
	"strings"

	"github.com/probechain/coinscript/lang/ir"
)

// Kind names a layer.
type Kind string

const (
	Singleton    Kind = "singleton"
	Ownership    Kind = "ownership"
	Royalty      Kind = "royalty"
	Metadata     Kind = "metadata"
	Notification Kind = "notification"
	State        Kind = "state"
	Action       Kind = "action"
)

// Param is one layer argument. Name may be empty for a positional argument.
type Param struct {
	Name  string
	Value ir.Node
}

// field describes one curried argument. A nil def marks the field required.
type field struct {
	name string
	def  ir.Node
}

type layer struct {
	mod    string
	fields []field
}

var registry = map[Kind]layer{
	Singleton: {mod: "SINGLETON_TOP_LAYER_MOD", fields: []field{
		{name: "launcher_id"},
		{name: "launcher_puzzle_hash", def: ir.Sym("SINGLETON_LAUNCHER_HASH")},
	}},
	Ownership: {mod: "OWNERSHIP_LAYER_MOD", fields: []field{
		{name: "owner"},
		{name: "transfer_program", def: ir.Nil},
	}},
	Royalty: {mod: "ROYALTY_TRANSFER_MOD", fields: []field{
		{name: "address"},
		{name: "percentage"},
	}},
	Metadata: {mod: "NFT_STATE_LAYER_MOD", fields: []field{
		{name: "metadata", def: ir.Nil},
		{name: "updater", def: ir.Nil},
	}},
	Notification: {mod: "NOTIFICATION_LAYER_MOD", fields: []field{
		{name: "notification_id"},
	}},
	State: {mod: "STATE_LAYER_MOD", fields: []field{
		{name: "initial_state"},
	}},
	Action: {mod: "ACTION_LAYER_MOD", fields: []field{
		{name: "merkle_root"},
		{name: "initial_state", def: ir.Nil},
	}},
}

// Kinds returns every layer kind in a stable order.
func Kinds() []Kind {
	return []Kind{Singleton, Ownership, Royalty, Metadata, Notification, State, Action}
}

// normalize folds case and separators so launcherId, launcher_id and
// LauncherID name the same field.
func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// Lookup resolves a layer name as written in source.
func Lookup(name string) (Kind, bool) {
	n := normalize(name)
	n = strings.TrimSuffix(n, "layer")
	for _, k := range Kinds() {
		if normalize(string(k)) == n {
			return k, true
		}
	}
	return "", false
}

// Module returns the symbol of the module a layer curries.
func Module(kind Kind) (string, bool) {
	l, ok := registry[kind]
	return l.mod, ok
}

// Wrap curries params and puzzle into the layer module. Named parameters
// bind by field name; positional parameters fill the remaining fields in
// order. Missing required fields, unknown names and surplus arguments are
// errors.
func Wrap(kind Kind, puzzle ir.Node, params []Param) (ir.Node, error) {
	l, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown layer %q", kind)
	}
	values := make([]ir.Node, len(l.fields))
	var positional []ir.Node
	for _, p := range params {
		if p.Name == "" {
			positional = append(positional, p.Value)
			continue
		}
		idx := -1
		for i, f := range l.fields {
			if normalize(f.name) == normalize(p.Name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%s layer has no parameter %q", kind, p.Name)
		}
		if values[idx] != nil {
			return nil, fmt.Errorf("%s layer parameter %q given twice", kind, l.fields[idx].name)
		}
		values[idx] = p.Value
	}
	for i := range values {
		if values[i] != nil {
			continue
		}
		if len(positional) > 0 {
			values[i], positional = positional[0], positional[1:]
			continue
		}
		if l.fields[i].def == nil {
			return nil, fmt.Errorf("%s layer requires parameter %q", kind, l.fields[i].name)
		}
		values[i] = l.fields[i].def
	}
	if len(positional) > 0 {
		return nil, fmt.Errorf("%s layer takes %d parameters, got %d", kind, len(l.fields), len(params))
	}
	return ir.Curry(ir.Sym(l.mod), append(values, puzzle)...), nil
}
