// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for drydock.
//
// Configuration lives in a single file resolved in this order: the
// --config flag (via [LoadFile]), the DRYDOCK_CONFIG environment
// variable, then ${XDG_CONFIG_HOME:-~/.config}/drydock/config.yaml.
// A missing file at the default path is not an error (every field has
// a working default), but a path the user asked for explicitly must
// exist.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Some paths are per-repository and cannot be fixed at load time: the
// worktrees directory defaults to a sibling of the repository root,
// and the state directory embeds the repository digest. The Resolve*
// methods take the repository root and apply the configured override
// or the derived default.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Session, Build, Watcher, Workspace
//   - [Default] -- returns a Config with working defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
