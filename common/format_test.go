// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package common

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyDuration(t *testing.T) {
	assert.Equal(t, "1.234ms", PrettyDuration(1234567*time.Nanosecond).String())
	assert.Equal(t, "1.5s", PrettyDuration(1500*time.Millisecond).String())
	assert.Equal(t, "12µs", PrettyDuration(12*time.Microsecond).String())
}

func TestHash32(t *testing.T) {
	var h Hash32
	for i := range h {
		h[i] = byte(i)
	}
	assert.Equal(t, "0x"+"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", h.String())
	assert.Equal(t, "000102…1d1e1f", h.TerminalString())
	assert.True(t, strings.HasPrefix(h.String(), "0x"))
}
