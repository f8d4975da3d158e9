// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probechain/coinscript"
	"github.com/probechain/coinscript/log"
)

const sampleConfig = `
[Compiler]
Merkle = "tree"
AllowUnresolvedCalls = true
AddressPrefixes = ["xch"]
CacheSize = 8

[Output]
Format = "indent"
`

func TestLoadConfig(t *testing.T) {
	path := writeSource(t, t.TempDir(), "coinc.toml", sampleConfig)
	cfg := defaultConfig()
	require.NoError(t, loadConfig(path, &cfg))

	want := defaultConfig()
	want.Compiler = compilerConfig{
		Merkle:               "tree",
		AllowUnresolvedCalls: true,
		AddressPrefixes:      []string{"xch"},
		CacheSize:            8,
	}
	want.Output.Format = "indent"
	assert.Equal(t, want, cfg)
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeSource(t, t.TempDir(), "coinc.toml", "[Compiler]\nMerkel = \"tree\"\n")
	cfg := defaultConfig()
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "Merkel")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*coincConfig)
		msg    string
	}{
		{"merkle", func(c *coincConfig) { c.Compiler.Merkle = "patricia" }, `unknown merkle mode "patricia"`},
		{"cache", func(c *coincConfig) { c.Compiler.CacheSize = 0 }, "cache size must be positive"},
		{"format", func(c *coincConfig) { c.Output.Format = "json" }, `unknown output format "json"`},
		{"verbosity", func(c *coincConfig) { c.Log.Verbosity = 6 }, "verbosity 6 out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.modify(&cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
	cfg := defaultConfig()
	assert.NoError(t, cfg.validate())
}

func TestOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Compiler.Merkle = "TREE"
	cfg.Compiler.AllowUnresolvedCalls = true
	cfg.Compiler.AddressPrefixes = []string{"txch"}
	args := map[string]string{"start": "1"}

	assert.Equal(t, coinscript.Options{
		File:                 "a.coin",
		ConstructorArgs:      args,
		AllowUnresolvedCalls: true,
		Merkle:               coinscript.MerkleTree,
		AddressPrefixes:      []string{"txch"},
	}, cfg.options("a.coin", args))
}

func TestDumpConfigAppliesFlags(t *testing.T) {
	out, _, err := run("dumpconfig", "--merkle", "tree", "--cache", "9")
	require.NoError(t, err)

	var got coincConfig
	require.NoError(t, tomlSettings.Unmarshal([]byte(out), &got))
	want := defaultConfig()
	want.Compiler.Merkle = "tree"
	want.Compiler.CacheSize = 9
	want.Log.Verbosity = 0
	assert.Equal(t, want, got)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeSource(t, t.TempDir(), "coinc.toml", sampleConfig)
	out, _, err := run("--config", path, "dumpconfig", "--format", "hex", "--address-prefix", "xch, txch")
	require.NoError(t, err)

	var got coincConfig
	require.NoError(t, tomlSettings.Unmarshal([]byte(out), &got))
	assert.Equal(t, "tree", got.Compiler.Merkle)
	assert.Equal(t, 8, got.Compiler.CacheSize)
	assert.Equal(t, "hex", got.Output.Format)
	assert.Equal(t, []string{"xch", "txch"}, got.Compiler.AddressPrefixes)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}

func TestLogHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	l := log.New()
	l.SetHandler(logHandler(logConfig{Verbosity: int(log.LvlInfo), Logfmt: true, Caller: true}, buf))
	l.Debug("dropped")
	l.Info("compiled")
	l.Error("failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "caller=config_test.go:")
	assert.NotContains(t, lines[0], "stack=")
	assert.Contains(t, lines[1], "caller=config_test.go:")
	assert.Contains(t, lines[1], "stack=")

	buf.Reset()
	l.SetHandler(logHandler(logConfig{Verbosity: 0, Caller: true}, buf))
	l.Error("silent")
	assert.Zero(t, buf.Len())

	l.SetHandler(logHandler(logConfig{Verbosity: int(log.LvlWarn)}, buf))
	l.Info("hidden")
	l.Warn("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.NotContains(t, buf.String(), "hidden")
	assert.NotContains(t, buf.String(), "caller=")
}
