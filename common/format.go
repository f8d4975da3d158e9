// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package common contains small helpers shared by the compiler and its tools.
package common

import (
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// PrettyDuration is a pretty printed version of a time.Duration value that
// cuts the unnecessary precision off from the formatted textual
// representation.
type PrettyDuration time.Duration

var prettyDurationRe = regexp.MustCompile(`\.[0-9]{4,}`)

// String implements the Stringer interface, allowing pretty printing of
// duration values rounded to three decimals.
func (d PrettyDuration) String() string {
	label := time.Duration(d).String()
	if match := prettyDurationRe.FindString(label); len(match) > 4 {
		label = strings.Replace(label, match, match[:4], 1)
	}
	return label
}

// Hash32 is a 32-byte digest printed as 0x-prefixed hex.
type Hash32 [32]byte

func (h Hash32) String() string { return "0x" + hex.EncodeToString(h[:]) }

// TerminalString returns an abbreviated form for log output.
func (h Hash32) TerminalString() string {
	s := hex.EncodeToString(h[:])
	return s[:6] + "…" + s[58:]
}
