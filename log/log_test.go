// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(lvl Lvl) (Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := New()
	l.SetHandler(LvlFilterHandler(lvl, StreamHandler(buf, LogfmtFormat())))
	return l, buf
}

func TestLogfmtOutput(t *testing.T) {
	l, buf := captureLogger(LvlTrace)
	l.Info("compiled coin", "name", "Counter", "actions", 3)

	out := buf.String()
	assert.Contains(t, out, "lvl=info")
	assert.Contains(t, out, `msg="compiled coin"`)
	assert.Contains(t, out, "name=Counter actions=3")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestLevelFilter(t *testing.T) {
	l, buf := captureLogger(LvlWarn)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	l.Error("shown too")
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestContextInheritance(t *testing.T) {
	l, buf := captureLogger(LvlTrace)
	child := l.New("coin", "Token")
	child.Info("action", "name", "transfer")
	assert.Contains(t, buf.String(), "coin=Token name=transfer")
}

func TestOddContext(t *testing.T) {
	l, buf := captureLogger(LvlTrace)
	l.Info("odd", "key")
	assert.Contains(t, buf.String(), "key=nil")
	assert.Contains(t, buf.String(), errorKey)
}

func TestValueFormatting(t *testing.T) {
	assert.Equal(t, "nil", formatLogfmtValue(nil, false))
	assert.Equal(t, `"two words"`, formatLogfmtValue("two words", false))
	assert.Equal(t, `""`, formatLogfmtValue("", false))
	assert.Equal(t, "boom", formatLogfmtValue(errors.New("boom"), false))
	assert.Equal(t, "true", formatLogfmtValue(true, false))
	assert.Equal(t, "42", formatLogfmtValue(42, false))
	assert.Equal(t, "info", formatLogfmtValue(LvlInfo, false))
}

func TestTerminalFormat(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New()
	l.SetHandler(StreamHandler(buf, TerminalFormat(false)))
	l.Warn("short", "k", "v")

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "WARN ["), out)
	assert.Contains(t, out, "short"+strings.Repeat(" ", termMsgJust-len("short")))
	assert.True(t, strings.HasSuffix(out, "k=v\n"))
}

func TestCallerFileHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New()
	l.SetHandler(CallerFileHandler(StreamHandler(buf, LogfmtFormat())))
	l.Info("where")
	assert.Contains(t, buf.String(), "caller=log_test.go:")
}

func TestLvlFromString(t *testing.T) {
	for in, want := range map[string]Lvl{
		"trace": LvlTrace, "dbug": LvlDebug, "info": LvlInfo,
		"warn": LvlWarn, "error": LvlError, "crit": LvlCrit,
	} {
		got, err := LvlFromString(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := LvlFromString("loud")
	assert.Error(t, err)
}

func TestMultiHandler(t *testing.T) {
	a, b := new(bytes.Buffer), new(bytes.Buffer)
	l := New()
	l.SetHandler(MultiHandler(StreamHandler(a, LogfmtFormat()), StreamHandler(b, LogfmtFormat())))
	l.Error("twice")
	assert.Equal(t, a.String(), b.String())
	assert.NotZero(t, a.Len())
}

func TestFuncHandler(t *testing.T) {
	var got []string
	l := New("coin", "C")
	l.SetHandler(FuncHandler(func(r *Record) error {
		got = append(got, r.Lvl.String()+" "+r.Msg)
		return nil
	}))
	l.Warn("one")
	l.Debug("two")
	assert.Equal(t, []string{"warn one", "dbug two"}, got)
}

func TestFilterHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New()
	l.SetHandler(FilterHandler(func(r *Record) bool {
		return strings.HasPrefix(r.Msg, "keep")
	}, StreamHandler(buf, LogfmtFormat())))
	l.Info("keep this")
	l.Info("drop this")
	l.Crit("drop that too")
	assert.Contains(t, buf.String(), "keep this")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestCallerStackHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New()
	l.SetHandler(CallerStackHandler("%v", StreamHandler(buf, LogfmtFormat())))
	l.Error("trace me")
	assert.Contains(t, buf.String(), "stack=")
	assert.Contains(t, buf.String(), "log_test.go:")
}
