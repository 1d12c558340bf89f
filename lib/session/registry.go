// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package session decides whether a branch already has a tmux session
// and materializes the session layout when it does not.
//
// The registry loads the server's session list once per invocation and
// is then a pure in-memory value: matching, ordinal assignment, and the
// record of sessions created during the batch all live here, so the
// branch loop threads one value instead of re-querying tmux per branch.
package session

import (
	"fmt"
	"strings"

	"github.com/drydock-dev/drydock/lib/branchname"
	"github.com/drydock-dev/drydock/lib/config"
)

// State describes how a branch's session came to be during one run.
type State string

const (
	// StateReused means a matching session already existed.
	StateReused State = "reused"

	// StateCreated means a new session was materialized this run.
	StateCreated State = "created"
)

// Record is the per-branch session outcome.
type Record struct {
	// SessionName is the tmux session name ("<ordinal> <label>" for
	// created sessions, the matched name for reused ones).
	SessionName string

	// Label is the branch's human-readable label.
	Label string

	// Ordinal is the session's number, parsed back from the name for
	// reused sessions. Zero when the reused name has no ordinal.
	Ordinal int

	// State is StateCreated or StateReused.
	State State

	// Panes are the created panes. Empty for reused sessions:
	// drydock never reaches into a session it did not just create.
	Panes Panes
}

// Lister is the piece of the tmux server the registry needs.
type Lister interface {
	ListSessions() ([]string, error)
}

// Registry matches branch labels against existing sessions and hands
// out ordinals for new ones. Ordinals start at one past the number of
// sessions present when the registry was loaded and advance only when
// a created session is committed, so reused branches and failed
// launches consume nothing.
type Registry struct {
	mode     config.MatchMode
	sessions []string
	next     int
}

// LoadRegistry snapshots the server's session list. A server that is
// not running yields an empty registry with ordinals starting at 1.
func LoadRegistry(server Lister, mode config.MatchMode) (*Registry, error) {
	sessions, err := server.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("loading session registry: %w", err)
	}
	return &Registry{
		mode:     mode,
		sessions: sessions,
		next:     len(sessions) + 1,
	}, nil
}

// Find returns the name of an existing session for the label, applying
// the configured match mode. Substring mode (the default) matches when
// any session name contains the session-safe label; two labels that are
// substrings of one another therefore resolve to the same session,
// which is exactly why exact mode exists.
func (r *Registry) Find(label string) (string, bool) {
	safe := branchname.SessionSafe(label)
	if safe == "" {
		// An empty label would substring-match every session.
		return "", false
	}
	for _, name := range r.sessions {
		if r.matches(name, safe) {
			return name, true
		}
	}
	return "", false
}

func (r *Registry) matches(sessionName, safeLabel string) bool {
	if r.mode == config.MatchExact {
		if _, titleLabel, ok := branchname.ParseSessionTitle(sessionName); ok {
			return titleLabel == safeLabel
		}
		return sessionName == safeLabel
	}
	return strings.Contains(sessionName, safeLabel)
}

// NextOrdinal returns the ordinal the next created session will get.
// It does not advance: call Created once the session exists.
func (r *Registry) NextOrdinal() int {
	return r.next
}

// Created commits a session that was just materialized: later branches
// in the same batch can now match it, and the next ordinal advances.
func (r *Registry) Created(sessionName string) {
	r.sessions = append(r.sessions, sessionName)
	r.next++
}

// Sessions returns a copy of the current session list, including
// sessions committed during this batch.
func (r *Registry) Sessions() []string {
	out := make([]string, len(r.sessions))
	copy(out, r.sessions)
	return out
}
