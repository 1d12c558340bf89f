// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the drydock CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in
// cmd/drydock/commands and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, signal cancellation, and
// structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Run functions receive a context cancelled on SIGINT/SIGTERM and a
// structured logger from [NewCommandLogger]: human-readable text when
// stderr is a terminal, JSON when it is redirected (the detached build
// runner's log file, scripts, CI).
package cli
