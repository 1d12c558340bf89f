// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace detects freshly built application windows and
// relocates them to per-branch virtual workspaces.
//
// Drydock never talks to a window manager directly. The window
// inventory and the mover are external CLIs (aerospace by default)
// described by argv templates in the configuration, so the same code
// serves any window manager that can list windows with identifiers and
// move one by identifier.
//
// Three pieces cooperate:
//
//   - [Inventory] lists the windows of a named application as an
//     opaque identifier set ([Snapshot]).
//   - [Watcher] polls the inventory after a build is triggered and
//     reports the first identifier that was not present before,
//     bounded by an attempt budget.
//   - [Assigner] issues the best-effort move and follow-up commands
//     for a detected window. Its result is returned, not swallowed:
//     the build runner decides, visibly, to log and continue.
package workspace
