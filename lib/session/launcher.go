// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"log/slog"

	"github.com/drydock-dev/drydock/lib/tmux"
)

// AgentWindow and GitWindow are the window names every drydock session
// gets. The agent window is selected last so attaching lands on it.
const (
	AgentWindow = "agent"
	GitWindow   = "git"
)

// Panes identifies the panes of a freshly launched session.
type Panes struct {
	// Agent runs the interactive coding agent.
	Agent string

	// Shell is the idle shell split below the agent, where build
	// commands are later typed.
	Shell string

	// GitUI runs the git-inspection tool in its own window.
	GitUI string
}

// LaunchSpec describes one session to materialize.
type LaunchSpec struct {
	SessionName  string
	StartDir     string
	AgentCommand []string
	GitUICommand []string
}

// Launcher materializes session layouts on one tmux server.
type Launcher struct {
	server *tmux.Server
	logger *slog.Logger
}

// NewLauncher returns a Launcher on the given server.
func NewLauncher(server *tmux.Server, logger *slog.Logger) *Launcher {
	return &Launcher{server: server, logger: logger}
}

// Launch creates the session: an agent window running the agent
// command with an idle shell split below it, a git window running the
// git UI, agent window selected. If any step fails the partial session
// is killed so a later run does not mistake the wreck for a healthy
// environment, and the error is returned.
func (l *Launcher) Launch(spec LaunchSpec) (Panes, error) {
	agentPane, err := l.server.NewSession(
		spec.SessionName, AgentWindow, spec.StartDir, spec.AgentCommand...)
	if err != nil {
		return Panes{}, err
	}

	panes := Panes{Agent: agentPane}

	panes.Shell, err = l.server.SplitWindow(agentPane, spec.StartDir)
	if err != nil {
		return Panes{}, l.abort(spec.SessionName, fmt.Errorf("splitting shell pane: %w", err))
	}

	panes.GitUI, err = l.server.NewWindow(
		spec.SessionName, GitWindow, spec.StartDir, spec.GitUICommand...)
	if err != nil {
		return Panes{}, l.abort(spec.SessionName, fmt.Errorf("creating git window: %w", err))
	}

	if err := l.server.SelectWindow(spec.SessionName, AgentWindow); err != nil {
		return Panes{}, l.abort(spec.SessionName, fmt.Errorf("selecting agent window: %w", err))
	}

	l.logger.Debug("session launched",
		"session", spec.SessionName,
		"agent_pane", panes.Agent,
		"shell_pane", panes.Shell,
		"git_pane", panes.GitUI)
	return panes, nil
}

func (l *Launcher) abort(sessionName string, cause error) error {
	if err := l.server.KillSession(sessionName); err != nil {
		l.logger.Warn("could not remove partial session",
			"session", sessionName,
			"error", err)
	}
	return cause
}
