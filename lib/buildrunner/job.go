// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildrunner executes queued builds strictly one at a time.
//
// Builds share a single code-generation step that corrupts its cache
// under concurrent invocation, so seriality is the whole point: the
// runner processes jobs in enqueue order and never overlaps them. A
// job's build is triggered by typing the build command into the
// session's shell pane; the runner then waits for the application
// window to appear, assigns it to the job's workspace, captures the
// pane transcript, and moves on. No per-job outcome stops later jobs.
//
// The runner executes in a detached child process so the invoking CLI
// returns immediately. The job queue crosses the process boundary as a
// CBOR payload on the child's stdin.
package buildrunner

import (
	"fmt"
	"io"

	"github.com/drydock-dev/drydock/lib/codec"
)

// PayloadVersion is the hand-off format version. The runner rejects
// payloads with a different version rather than guessing.
const PayloadVersion = 1

// Job describes one queued build. Jobs exist only for sessions created
// this invocation; a reused session already had its build.
type Job struct {
	// Branch is the branch ref the job was queued for.
	Branch string `cbor:"branch"`

	// EnvironmentPath is the worktree the build runs in.
	EnvironmentPath string `cbor:"environment_path"`

	// Workspace is the virtual workspace the application window is
	// moved to. Equal to the session's ordinal.
	Workspace int `cbor:"workspace"`

	// SessionName is the tmux session the job belongs to.
	SessionName string `cbor:"session_name"`

	// ShellPane is the pane the build command is typed into.
	ShellPane string `cbor:"shell_pane"`
}

// Payload is what the CLI hands the detached runner process.
type Payload struct {
	Version  int    `cbor:"version"`
	RepoRoot string `cbor:"repo_root"`
	Jobs     []Job  `cbor:"jobs"`
}

// Encode writes the payload as CBOR.
func (p Payload) Encode(w io.Writer) error {
	if err := codec.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("encoding build payload: %w", err)
	}
	return nil
}

// DecodePayload reads a CBOR payload and checks its version.
func DecodePayload(r io.Reader) (Payload, error) {
	var payload Payload
	if err := codec.NewDecoder(r).Decode(&payload); err != nil {
		return Payload{}, fmt.Errorf("decoding build payload: %w", err)
	}
	if payload.Version != PayloadVersion {
		return Payload{}, fmt.Errorf("build payload version %d, this runner supports %d",
			payload.Version, PayloadVersion)
	}
	return payload, nil
}
