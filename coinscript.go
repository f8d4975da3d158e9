// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package coinscript compiles CoinScript contracts to target trees.
//
// A compilation tokenizes the source, parses it into a coin declaration and
// generates the program, its stateful and inner sub-programs, the merkle
// commitment and the layer wrapping. Compilation is deterministic, so the
// Compiler may cache results by source and options.
package coinscript

import (
	"crypto/sha256"
	"encoding/binary"
	"os"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/probechain/coinscript/common"
	"github.com/probechain/coinscript/lang/codegen"
	"github.com/probechain/coinscript/lang/ir"
	"github.com/probechain/coinscript/lang/lexer"
	"github.com/probechain/coinscript/lang/parser"
	"github.com/probechain/coinscript/log"
)

// MerkleMode selects the commitment over stateful sub-programs.
type MerkleMode = codegen.MerkleMode

// Merkle commitment modes.
const (
	MerkleConcat = codegen.MerkleConcat
	MerkleTree   = codegen.MerkleTree
)

// defaultFile names sources compiled without Options.File.
const defaultFile = "<input>"

// Options controls one compilation.
type Options struct {
	// File is used in diagnostics.
	File string

	// ConstructorArgs binds constructor parameters to literal source text.
	ConstructorArgs map[string]string

	// AllowUnresolvedCalls compiles calls to unknown functions as plain
	// applications instead of failing.
	AllowUnresolvedCalls bool

	Merkle MerkleMode

	// AddressPrefixes lists the accepted bech32 prefixes; nil accepts xch
	// and txch.
	AddressPrefixes []string
}

func (o Options) file() string {
	if o.File == "" {
		return defaultFile
	}
	return o.File
}

func (o Options) config() codegen.Config {
	return codegen.Config{
		ConstructorArgs:      o.ConstructorArgs,
		AllowUnresolvedCalls: o.AllowUnresolvedCalls,
		Merkle:               o.Merkle,
		AddressPrefixes:      o.AddressPrefixes,
	}
}

// Result is a compiled coin. Results returned by a Compiler may be shared
// between callers and must not be modified.
type Result struct {
	*codegen.Result

	File string
	Hash common.Hash32 // tree hash of Program
}

// Text renders the program as compact text, or indented when indent is
// non-empty.
func (r *Result) Text(indent string) string {
	return ir.Serialize(r.Program, ir.Options{Indent: indent})
}

// Hex renders the binary tree encoding of the program.
func (r *Result) Hex() string {
	return ir.Serialize(r.Program, ir.Options{Compiled: true})
}

// Compile compiles source. Errors wrap the *diag.Error of the failing stage;
// use errors.Cause or errors.As to recover it.
func Compile(source string, opts Options) (*Result, error) {
	return compile(source, opts, log.Root())
}

// CompileFile reads and compiles the file at path. Options.File defaults to
// path.
func CompileFile(path string, opts Options) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	if opts.File == "" {
		opts.File = path
	}
	return Compile(string(source), opts)
}

func compile(source string, opts Options, logger log.Logger) (*Result, error) {
	file := opts.file()
	logger = logger.New("file", file)

	start := time.Now()
	toks, err := lexer.Tokenize(file, source)
	if err != nil {
		return nil, errors.Wrap(err, "compile "+file)
	}
	logger.Debug("Tokenized source", "tokens", len(toks), "elapsed", common.PrettyDuration(time.Since(start)))

	start = time.Now()
	parsed, err := parser.ParseTokens(toks)
	if err != nil {
		return nil, errors.Wrap(err, "compile "+file)
	}
	logger.Debug("Parsed coin", "coin", parsed.Coin.Name, "decls", len(parsed.Coin.Decls), "elapsed", common.PrettyDuration(time.Since(start)))

	start = time.Now()
	res, err := codegen.New(opts.config()).Generate(parsed)
	if err != nil {
		return nil, errors.Wrap(err, "compile "+file)
	}
	out := &Result{Result: res, File: file, Hash: ir.TreeHash(res.Program)}
	logger.Debug("Generated program", "actions", len(res.Actions), "hash", out.Hash, "elapsed", common.PrettyDuration(time.Since(start)))
	return out, nil
}

// Compiler compiles sources and caches the results. It is safe for
// concurrent use.
type Compiler struct {
	cache *lru.ARCCache
	log   log.Logger
}

// NewCompiler creates a compiler caching up to size results.
func NewCompiler(size int) (*Compiler, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, errors.Wrap(err, "create cache")
	}
	return &Compiler{cache: cache, log: log.New("pkg", "coinscript")}, nil
}

// Compile returns the cached result for source and opts, compiling on a
// miss. Failed compilations are not cached.
func (c *Compiler) Compile(source string, opts Options) (*Result, error) {
	key := cacheKey(source, opts)
	if v, ok := c.cache.Get(key); ok {
		c.log.Trace("Cache hit", "file", opts.file(), "key", key)
		return v.(*Result), nil
	}
	res, err := compile(source, opts, c.log)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, res)
	return res, nil
}

// CompileFile reads path and compiles it through the cache.
func (c *Compiler) CompileFile(path string, opts Options) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	if opts.File == "" {
		opts.File = path
	}
	return c.Compile(string(source), opts)
}

// Len returns the number of cached results.
func (c *Compiler) Len() int { return c.cache.Len() }

// cacheKey hashes the source together with every option that can change
// the output. Strings are length-prefixed so adjacent fields cannot alias.
func cacheKey(source string, opts Options) common.Hash32 {
	h := sha256.New()
	count := func(n int) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(n))
		h.Write(b[:])
	}
	write := func(s string) {
		count(len(s))
		h.Write([]byte(s))
	}
	write(source)
	write(opts.file())
	names := make([]string, 0, len(opts.ConstructorArgs))
	for name := range opts.ConstructorArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	count(len(names))
	for _, name := range names {
		write(name)
		write(opts.ConstructorArgs[name])
	}
	var flags [2]byte
	if opts.AllowUnresolvedCalls {
		flags[0] = 1
	}
	flags[1] = byte(opts.Merkle)
	h.Write(flags[:])
	if opts.AddressPrefixes == nil {
		h.Write([]byte{0})
	} else {
		h.Write([]byte{1})
		for _, p := range opts.AddressPrefixes {
			write(p)
		}
	}
	var key common.Hash32
	copy(key[:], h.Sum(nil))
	return key
}
