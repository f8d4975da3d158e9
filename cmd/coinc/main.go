// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// coinc is the CoinScript compiler.
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/coinscript"
	"github.com/probechain/coinscript/common"
	"github.com/probechain/coinscript/lang/diag"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/lexer"
	"github.com/probechain/coinscript/lang/parser"
	"github.com/probechain/coinscript/log"
)

const version = "0.3.0"

// errReported is returned once diagnostics have been printed.
var errReported = errors.New("compilation failed")

var (
	argFlag = cli.StringSliceFlag{
		Name:  "arg",
		Usage: "Constructor argument as name=value (repeatable)",
	}
	subProgramsFlag = cli.BoolFlag{
		Name:  "subprograms",
		Usage: "Also emit the stateful and inner sub-programs",
	}
	expectFlag = cli.StringFlag{
		Name:  "expect",
		Usage: "Fail unless the program hash equals this hex value",
	}
	sourceFlag = cli.BoolFlag{
		Name:  "source",
		Usage: "Print the parsed coin as source text instead of a structure dump",
	}

	compileFlags = append([]cli.Flag{argFlag}, configFlags...)

	buildCommand = cli.Command{
		Action:    migrateFlags(build),
		Name:      "build",
		Usage:     "Compile source files",
		ArgsUsage: "<file>...",
		Flags:     append([]cli.Flag{subProgramsFlag}, compileFlags...),
		Description: `
Compiles every file concurrently. Programs are written to stdout, or to one
file per source under --out. Diagnostics of all failing files are reported.`,
	}
	tokensCommand = cli.Command{
		Action:    migrateFlags(tokens),
		Name:      "tokens",
		Usage:     "Print the token stream of a source file",
		ArgsUsage: "<file>",
		Flags:     configFlags,
	}
	astCommand = cli.Command{
		Action:    migrateFlags(dumpAST),
		Name:      "ast",
		Usage:     "Print the parsed coin declaration",
		ArgsUsage: "<file>",
		Flags:     append([]cli.Flag{sourceFlag}, configFlags...),
	}
	inspectCommand = cli.Command{
		Action:    migrateFlags(inspect),
		Name:      "inspect",
		Usage:     "Summarize a compiled coin and its actions",
		ArgsUsage: "<file>",
		Flags:     compileFlags,
	}
	hashCommand = cli.Command{
		Action:    migrateFlags(hash),
		Name:      "hash",
		Usage:     "Print the tree hash of a compiled coin",
		ArgsUsage: "<file>",
		Flags:     append([]cli.Flag{expectFlag, subProgramsFlag}, compileFlags...),
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "coinc"
	app.Usage = "the CoinScript compiler"
	app.Version = version
	app.Writer = color.Output
	app.ErrWriter = color.Error
	app.Flags = configFlags
	app.Commands = []cli.Command{
		buildCommand,
		tokensCommand,
		astCommand,
		inspectCommand,
		hashCommand,
		dumpConfigCommand,
	}
	return app
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		if err != errReported {
			fmt.Fprintln(app.ErrWriter, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}

func build(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	paths := ctx.Args()
	if len(paths) == 0 {
		return errors.New("no source files given")
	}
	args, err := constructorArgs(ctx)
	if err != nil {
		return err
	}
	compiler, err := coinscript.NewCompiler(cfg.Compiler.CacheSize)
	if err != nil {
		return err
	}

	var (
		results = make([]*coinscript.Result, len(paths))
		sources = make([]string, len(paths))
		errs    = make([]error, len(paths))
		g       errgroup.Group
	)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			text, err := os.ReadFile(path)
			if err != nil {
				errs[i] = errors.Wrap(err, "read source")
				return errs[i]
			}
			sources[i] = string(text)
			results[i], errs[i] = compiler.Compile(sources[i], cfg.options(path, args))
			return errs[i]
		})
	}
	if err := g.Wait(); err != nil {
		failed := 0
		for i, err := range errs {
			if err != nil {
				failed++
				report(ctx.App.ErrWriter, err, sources[i])
			}
		}
		log.Error("Build failed", "failed", failed, "files", len(paths))
		return errReported
	}

	withSubs := ctx.Bool(subProgramsFlag.Name)
	for i, res := range results {
		if cfg.Output.Dir != "" {
			if err := writeFiles(cfg.Output, paths[i], res, withSubs); err != nil {
				return err
			}
			continue
		}
		if len(paths) > 1 {
			fmt.Fprintf(ctx.App.Writer, "; %s\n", paths[i])
		}
		writeProgram(ctx.App.Writer, cfg.Output, res, withSubs)
	}
	return nil
}

func writeProgram(w io.Writer, out outputConfig, res *coinscript.Result, withSubs bool) {
	fmt.Fprintln(w, render(out, res.Program))
	if !withSubs {
		return
	}
	for _, sp := range res.SubPrograms {
		fmt.Fprintf(w, "; %s %s %s\n", sp.Action, sp.Kind, common.Hash32(sp.Hash))
		fmt.Fprintln(w, render(out, sp.Program))
	}
}

// writeFiles writes <stem>.clsp (or .hex) and one file per sub-program.
func writeFiles(out outputConfig, path string, res *coinscript.Result, withSubs bool) error {
	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return err
	}
	ext := ".clsp"
	if out.Format == "hex" {
		ext = ".hex"
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	write := func(name string, n ir.Node) error {
		file := filepath.Join(out.Dir, name+ext)
		if err := os.WriteFile(file, []byte(render(out, n)+"\n"), 0644); err != nil {
			return err
		}
		log.Info("Wrote program", "file", file, "hash", common.Hash32(ir.TreeHash(n)))
		return nil
	}
	if err := write(stem, res.Program); err != nil {
		return err
	}
	if withSubs {
		for _, sp := range res.SubPrograms {
			if err := write(stem+"."+sp.Action, sp.Program); err != nil {
				return err
			}
		}
	}
	return nil
}

func render(out outputConfig, n ir.Node) string {
	switch out.Format {
	case "hex":
		return ir.Serialize(n, ir.Options{Compiled: true})
	case "indent":
		return ir.Serialize(n, ir.Options{Indent: out.Indent})
	}
	return ir.Serialize(n, ir.Options{})
}

func tokens(ctx *cli.Context) error {
	if _, err := makeConfig(ctx); err != nil {
		return err
	}
	path, text, err := singleSource(ctx)
	if err != nil {
		return err
	}
	toks, err := lexer.New(path, text).Tokenize()
	for _, tok := range toks {
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Literal)
	}
	if err != nil {
		report(ctx.App.ErrWriter, err, text)
		return errReported
	}
	return nil
}

func dumpAST(ctx *cli.Context) error {
	if _, err := makeConfig(ctx); err != nil {
		return err
	}
	path, text, err := singleSource(ctx)
	if err != nil {
		return err
	}
	file, err := parser.Parse(path, text)
	if err != nil {
		report(ctx.App.ErrWriter, err, text)
		return errReported
	}
	if ctx.Bool(sourceFlag.Name) {
		fmt.Fprintln(ctx.App.Writer, file.String())
		return nil
	}
	cs := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		DisableMethods:          true,
		SortKeys:                true,
	}
	cs.Fdump(ctx.App.Writer, file)
	return nil
}

func inspect(ctx *cli.Context) error {
	cfg, res, err := compileOne(ctx)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "Coin:      %s\n", res.Name)
	fmt.Fprintf(w, "Hash:      %s\n", res.Hash)
	if res.Direct {
		fmt.Fprintf(w, "Dispatch:  direct\n")
	} else {
		fmt.Fprintf(w, "Dispatch:  %d actions\n", len(res.Actions))
	}
	if res.MerkleRoot != nil {
		fmt.Fprintf(w, "Merkle:    0x%x (%s)\n", res.MerkleRoot, cfg.Compiler.Merkle)
	}
	if len(res.StateFields) > 0 {
		fields := make([]string, len(res.StateFields))
		for i, name := range res.StateFields {
			fields[i] = name
			if i < len(res.InitialState) {
				fields[i] += "=" + res.InitialState[i].String()
			}
		}
		fmt.Fprintf(w, "State:     %s\n", strings.Join(fields, " "))
	}
	if len(res.Includes) > 0 {
		fmt.Fprintf(w, "Includes:  %s\n", strings.Join(res.Includes, " "))
	}
	fmt.Fprintln(w)

	subs := make(map[string]int, len(res.SubPrograms))
	for i, sp := range res.SubPrograms {
		subs[sp.Action] = i
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Action", "Kind", "Params", "Env", "View", "Hash", "Proof"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, a := range res.Actions {
		hash, proof := "-", "-"
		if i, ok := subs[a.Name]; ok {
			sp := res.SubPrograms[i]
			hash = common.Hash32(sp.Hash).TerminalString()
			if sp.Proof != nil {
				proof = strconv.Itoa(len(sp.Proof))
			}
		}
		table.Append([]string{
			a.Name,
			a.Kind.String(),
			strings.Join(a.Params, ", "),
			strings.Join(a.Env, ", "),
			strconv.FormatBool(a.View),
			hash,
			proof,
		})
	}
	table.Render()
	return nil
}

func hash(ctx *cli.Context) error {
	_, res, err := compileOne(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, res.Hash)
	if ctx.Bool(subProgramsFlag.Name) {
		for _, sp := range res.SubPrograms {
			fmt.Fprintf(ctx.App.Writer, "%s %s\n", common.Hash32(sp.Hash), sp.Action)
		}
	}
	expect := ctx.String(expectFlag.Name)
	if expect == "" {
		return nil
	}
	want, err := hex.DecodeString(strings.TrimPrefix(expect, "0x"))
	if err != nil {
		return errors.Wrap(err, "invalid --expect")
	}
	if !bytes.Equal(want, res.Hash[:]) {
		return errors.Errorf("hash mismatch: have %s, want 0x%x", res.Hash, want)
	}
	return nil
}

// compileOne compiles the single file argument, reporting diagnostics.
func compileOne(ctx *cli.Context) (coincConfig, *coinscript.Result, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return cfg, nil, err
	}
	args, err := constructorArgs(ctx)
	if err != nil {
		return cfg, nil, err
	}
	path, text, err := singleSource(ctx)
	if err != nil {
		return cfg, nil, err
	}
	res, err := coinscript.Compile(text, cfg.options(path, args))
	if err != nil {
		report(ctx.App.ErrWriter, err, text)
		return cfg, nil, errReported
	}
	return cfg, res, nil
}

func singleSource(ctx *cli.Context) (string, string, error) {
	if ctx.NArg() != 1 {
		return "", "", errors.Errorf("%s expects exactly one source file", ctx.Command.Name)
	}
	path := ctx.Args().First()
	text, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrap(err, "read source")
	}
	return path, string(text), nil
}

func constructorArgs(ctx *cli.Context) (map[string]string, error) {
	list := ctx.StringSlice(argFlag.Name)
	if len(list) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(list))
	for _, kv := range list {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("invalid constructor argument %q, want name=value", kv)
		}
		args[name] = value
	}
	return args, nil
}

// report prints err. Compile diagnostics get their location, the offending
// source line and a caret under the column.
func report(w io.Writer, err error, source string) {
	red := color.New(color.FgRed, color.Bold)
	de, ok := errors.Cause(err).(*diag.Error)
	if !ok {
		fmt.Fprintf(w, "%s %v\n", red.Sprint("error:"), err)
		return
	}
	if de.Pos.Line > 0 {
		fmt.Fprint(w, color.New(color.Bold).Sprint(de.Pos.String()+":"), " ")
	}
	fmt.Fprintf(w, "%s %s", red.Sprint(de.Kind.String()+" error:"), de.Msg)
	if len(de.Expected) > 0 {
		fmt.Fprintf(w, " (expected %s)", strings.Join(de.Expected, " or "))
	}
	fmt.Fprintln(w)

	lines := strings.Split(source, "\n")
	if de.Pos.Line < 1 || de.Pos.Line > len(lines) {
		return
	}
	line := strings.TrimRight(lines[de.Pos.Line-1], "\r")
	fmt.Fprintf(w, "    %s\n    %s\n", line, color.GreenString(caret(line, de.Pos.Column)))
}

// caret returns a marker under column col (1-based) of line, keeping tabs so
// the marker lines up.
func caret(line string, col int) string {
	var b strings.Builder
	for i := 0; i < col-1 && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}
