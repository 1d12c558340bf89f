// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package branchui implements the interactive branch picker: a
// full-screen fuzzy-filtered list of the repository's branches with
// multi-select. Tab marks a branch (selection order is preserved and
// becomes the provisioning order), Enter confirms, Esc cancels.
//
// The package exposes a bubbletea Model; the pick command owns the
// program loop and terminal setup.
package branchui
