// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/coinscript"
	"github.com/probechain/coinscript/log"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      migrateFlags(dumpConfig),
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[dumpfile]",
		Flags:       configFlags,
		Description: `The dumpconfig command shows the effective configuration, after applying the config file and flags.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: int(log.LvlInfo),
	}
	logfmtFlag = cli.BoolFlag{
		Name:  "log.logfmt",
		Usage: "Emit logs in logfmt instead of the terminal format",
	}
	logCallerFlag = cli.BoolFlag{
		Name:  "log.caller",
		Usage: "Add the call site to log records, and the call stack to errors",
	}
	merkleFlag = cli.StringFlag{
		Name:  "merkle",
		Usage: "Commitment over stateful actions: concat or tree",
		Value: "concat",
	}
	allowUnresolvedFlag = cli.BoolFlag{
		Name:  "allow-unresolved",
		Usage: "Compile calls to unknown functions as plain applications",
	}
	addressPrefixFlag = cli.StringFlag{
		Name:  "address-prefix",
		Usage: "Comma separated bech32 prefixes recognised in string literals",
	}
	cacheSizeFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "Number of compiled programs kept in memory",
		Value: 64,
	}
	formatFlag = cli.StringFlag{
		Name:  "format",
		Usage: "Program output: text, indent or hex",
		Value: "text",
	}
	outDirFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Write one output file per source into this directory instead of stdout",
	}

	configFlags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		logfmtFlag,
		logCallerFlag,
		merkleFlag,
		allowUnresolvedFlag,
		addressPrefixFlag,
		cacheSizeFlag,
		formatFlag,
		outDirFlag,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type compilerConfig struct {
	Merkle               string
	AllowUnresolvedCalls bool
	AddressPrefixes      []string `toml:",omitempty"`
	CacheSize            int
}

type outputConfig struct {
	Format string
	Indent string
	Dir    string `toml:",omitempty"`
}

type logConfig struct {
	Verbosity int
	Logfmt    bool
	Caller    bool
}

type coincConfig struct {
	Compiler compilerConfig
	Output   outputConfig
	Log      logConfig
}

func defaultConfig() coincConfig {
	return coincConfig{
		Compiler: compilerConfig{
			Merkle:    merkleFlag.Value,
			CacheSize: cacheSizeFlag.Value,
		},
		Output: outputConfig{
			Format: formatFlag.Value,
			Indent: "  ",
		},
		Log: logConfig{Verbosity: verbosityFlag.Value},
	}
}

func loadConfig(file string, cfg *coincConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads defaults, then the config file, then flags, and installs
// the log handler the result asks for.
func makeConfig(ctx *cli.Context) (coincConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	applyFlags(ctx, &cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

func applyFlags(ctx *cli.Context, cfg *coincConfig) {
	if ctx.GlobalIsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.GlobalInt(verbosityFlag.Name)
	}
	if ctx.GlobalIsSet(logfmtFlag.Name) {
		cfg.Log.Logfmt = ctx.GlobalBool(logfmtFlag.Name)
	}
	if ctx.GlobalIsSet(logCallerFlag.Name) {
		cfg.Log.Caller = ctx.GlobalBool(logCallerFlag.Name)
	}
	if ctx.GlobalIsSet(merkleFlag.Name) {
		cfg.Compiler.Merkle = ctx.GlobalString(merkleFlag.Name)
	}
	if ctx.GlobalIsSet(allowUnresolvedFlag.Name) {
		cfg.Compiler.AllowUnresolvedCalls = ctx.GlobalBool(allowUnresolvedFlag.Name)
	}
	if ctx.GlobalIsSet(addressPrefixFlag.Name) {
		cfg.Compiler.AddressPrefixes = splitList(ctx.GlobalString(addressPrefixFlag.Name))
	}
	if ctx.GlobalIsSet(cacheSizeFlag.Name) {
		cfg.Compiler.CacheSize = ctx.GlobalInt(cacheSizeFlag.Name)
	}
	if ctx.GlobalIsSet(formatFlag.Name) {
		cfg.Output.Format = ctx.GlobalString(formatFlag.Name)
	}
	if ctx.GlobalIsSet(outDirFlag.Name) {
		cfg.Output.Dir = ctx.GlobalString(outDirFlag.Name)
	}
}

func (cfg *coincConfig) validate() error {
	if _, err := parseMerkle(cfg.Compiler.Merkle); err != nil {
		return err
	}
	if cfg.Compiler.CacheSize <= 0 {
		return errors.Errorf("cache size must be positive, got %d", cfg.Compiler.CacheSize)
	}
	switch cfg.Output.Format {
	case "text", "indent", "hex":
	default:
		return errors.Errorf("unknown output format %q", cfg.Output.Format)
	}
	if cfg.Log.Verbosity < 0 || cfg.Log.Verbosity > int(log.LvlTrace) {
		return errors.Errorf("verbosity %d out of range", cfg.Log.Verbosity)
	}
	return nil
}

// options builds the compile options for one file.
func (cfg *coincConfig) options(file string, args map[string]string) coinscript.Options {
	mode, _ := parseMerkle(cfg.Compiler.Merkle)
	return coinscript.Options{
		File:                 file,
		ConstructorArgs:      args,
		AllowUnresolvedCalls: cfg.Compiler.AllowUnresolvedCalls,
		Merkle:               mode,
		AddressPrefixes:      cfg.Compiler.AddressPrefixes,
	}
}

func parseMerkle(s string) (coinscript.MerkleMode, error) {
	switch strings.ToLower(s) {
	case "", "concat":
		return coinscript.MerkleConcat, nil
	case "tree":
		return coinscript.MerkleTree, nil
	}
	return 0, errors.Errorf("unknown merkle mode %q", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setupLogging routes the root logger to stderr.
func setupLogging(cfg logConfig) {
	log.Root().SetHandler(logHandler(cfg, os.Stderr))
}

// logHandler writes records to out. Verbosity 0 silences it.
func logHandler(cfg logConfig, out io.Writer) log.Handler {
	if cfg.Verbosity == 0 {
		return log.DiscardHandler()
	}
	var h log.Handler
	switch {
	case cfg.Logfmt:
		h = log.StreamHandler(out, log.LogfmtFormat())
	case out == os.Stderr:
		h = log.TerminalHandler(log.LvlTrace)
	default:
		h = log.StreamHandler(out, log.TerminalFormat(false))
	}
	if cfg.Caller {
		severe := func(r *log.Record) bool { return r.Lvl <= log.LvlError }
		h = log.CallerFileHandler(log.MultiHandler(
			log.FilterHandler(severe, log.CallerStackHandler("%+v", h)),
			log.FilterHandler(func(r *log.Record) bool { return !severe(r) }, h),
		))
	}
	return log.LvlFilterHandler(log.Lvl(cfg.Verbosity), h)
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}

// migrateFlags makes command level flags visible through the Global*
// accessors, so flags may be given before or after the command name.
func migrateFlags(action func(ctx *cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		for _, name := range ctx.FlagNames() {
			if ctx.IsSet(name) {
				ctx.GlobalSet(name, ctx.String(name))
			}
		}
		return action(ctx)
	}
}
