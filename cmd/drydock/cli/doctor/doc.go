// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package doctor provides the check-and-repair infrastructure behind
// "drydock doctor".
//
// The command runs a series of health checks and reports results in a
// consistent format. Fixable failures carry fix closures that can be
// executed in --fix mode. The package provides:
//
//   - [Result] type with status, message, and optional fix action
//   - Constructors: [Pass], [Fail], [FailWithFix], [Warn], [Skip]
//   - [ExecuteFixes] for running fix closures
//   - [PrintChecklist] for human-readable output
//   - [BuildJSON] for machine-readable output
//
// Domain-specific checks (what to check, how to fix) live in
// cmd/drydock/commands. This package provides only the workflow
// infrastructure.
package doctor
