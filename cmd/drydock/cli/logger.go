// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, uses slog.TextHandler for human-readable
// output. When stderr is piped or redirected (the detached build runner's
// log file, scripts, CI), uses slog.JSONHandler for machine-parseable
// output.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger().With("command", "up")
func NewCommandLogger() *slog.Logger {
	return NewCommandLoggerLevel(slog.LevelInfo)
}

// NewCommandLoggerLevel is NewCommandLogger with an explicit minimum
// level. Commands with a --verbose flag use this to turn on debug
// logging after flag parsing.
func NewCommandLoggerLevel(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
