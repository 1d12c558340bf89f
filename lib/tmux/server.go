// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux provides a typed interface to tmux servers. Drydock runs
// one dedicated tmux server per repository (distinct from the user's
// personal tmux) so that branch sessions for different clones never
// share a namespace. All operations target a specific server socket;
// there is no default server.
//
// The central type is Server, which represents a connection to a tmux
// server identified by its Unix socket path. All tmux commands go
// through Server, which injects the -S flag automatically. This makes
// it structurally impossible to accidentally target the wrong server or
// forget to specify a socket.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Server represents a tmux server identified by its Unix socket path.
// All operations target this specific server; there is no way to run a
// tmux command without specifying which server it applies to.
type Server struct {
	socketPath string
	configFile string // passed as "-f <path>" on new-session; empty = tmux default
}

// NewServer returns a Server that targets the given socket path.
//
// configFile controls which configuration file tmux loads when the
// server starts (which happens on the first new-session call). Drydock
// sessions are interactive (the user attaches to them), so production
// servers pass an empty configFile and get tmux's default config
// resolution (~/.tmux.conf, then $XDG_CONFIG_HOME/tmux/tmux.conf),
// keeping the user's bindings and colors. Tests pass "/dev/null" so a
// developer's personal config cannot change test behavior.
func NewServer(socketPath, configFile string) *Server {
	return &Server{
		socketPath: socketPath,
		configFile: configFile,
	}
}

// SocketPath returns the Unix socket path that identifies this server.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// NewSession creates a detached session whose first window is named
// windowName and starts in startDir. If command is non-empty, the
// window's pane runs that command instead of the default shell. Returns
// the pane ID (%N) of the created pane.
//
// tmux does not reject reserved characters (":" and ".") in session
// names; new-session silently rewrites them to "_". A session living
// under a different name than the one requested would dodge every later
// target, including cleanup, so NewSession queries the name actually
// created, removes the session on a mismatch, and returns an error.
//
// The -f flag (config file) is passed on new-session because this
// command may start the server if it isn't already running. Once the
// server is running, subsequent commands don't re-read the config file,
// so only new-session needs it.
func (s *Server) NewSession(sessionName, windowName, startDir string, command ...string) (string, error) {
	var args []string
	if s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	args = append(args, "-S", s.socketPath,
		"new-session", "-d", "-P", "-F", "#{session_name}\n#{pane_id}",
		"-s", sessionName, "-n", windowName)
	if startDir != "" {
		args = append(args, "-c", startDir)
	}
	args = append(args, command...)

	cmd := exec.Command("tmux", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux new-session %q: %w (%s)",
			sessionName, err, strings.TrimSpace(string(output)))
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) != 2 {
		return "", fmt.Errorf("tmux new-session %q: unexpected output %q",
			sessionName, strings.TrimSpace(string(output)))
	}
	createdName := strings.TrimSpace(lines[0])
	if createdName != sessionName {
		if killErr := s.KillSession(createdName); killErr != nil {
			return "", fmt.Errorf("tmux new-session %q: session created as %q and could not be removed: %w",
				sessionName, createdName, killErr)
		}
		return "", fmt.Errorf("tmux new-session %q: tmux rewrote the name to %q",
			sessionName, createdName)
	}
	return strings.TrimSpace(lines[1]), nil
}

// NewWindow creates a window named windowName in an existing session,
// starting in startDir, without changing which window the session has
// selected. If command is non-empty the window runs it instead of the
// default shell. Returns the pane ID of the new window's pane.
func (s *Server) NewWindow(sessionName, windowName, startDir string, command ...string) (string, error) {
	args := []string{"new-window", "-d", "-P", "-F", "#{pane_id}",
		"-t", sessionName + ":", "-n", windowName}
	if startDir != "" {
		args = append(args, "-c", startDir)
	}
	args = append(args, command...)

	output, err := s.Run(args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// SplitWindow splits the pane identified by paneID, placing a new pane
// below it that starts in startDir. If command is empty the new pane
// runs the default shell. Returns the new pane's ID.
func (s *Server) SplitWindow(paneID, startDir string, command ...string) (string, error) {
	args := []string{"split-window", "-d", "-v", "-P", "-F", "#{pane_id}",
		"-t", paneID}
	if startDir != "" {
		args = append(args, "-c", startDir)
	}
	args = append(args, command...)

	output, err := s.Run(args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// SelectWindow makes the named window the session's active window, so
// that attaching lands on it.
func (s *Server) SelectWindow(sessionName, windowName string) error {
	_, err := s.Run("select-window", "-t", sessionName+":"+windowName)
	return err
}

// SendKeys types the given key strings into the pane identified by
// target (a pane ID or any tmux target specification). Each argument is
// a separate key string; pass "Enter" as the final argument to submit a
// command line:
//
//	server.SendKeys(shellPane, "make build", "Enter")
func (s *Server) SendKeys(target string, keys ...string) error {
	args := append([]string{"send-keys", "-t", target}, keys...)
	_, err := s.Run(args...)
	return err
}

// HasSession reports whether a session with the given name exists on
// this server. Returns false if the server is not running.
func (s *Server) HasSession(sessionName string) bool {
	cmd := exec.Command("tmux", "-S", s.socketPath, "has-session", "-t", sessionName)
	return cmd.Run() == nil
}

// ListSessions returns the names of all sessions on this server. A
// server that is not running (or whose socket does not exist yet) has
// no sessions, so both conditions return an empty list rather than an
// error: callers counting pre-existing sessions must see zero, not a
// failure, on first use.
func (s *Server) ListSessions() ([]string, error) {
	cmd := exec.Command("tmux", "-S", s.socketPath,
		"list-sessions", "-F", "#{session_name}")
	output, err := cmd.CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		if strings.Contains(outputString, "no server running") ||
			strings.Contains(outputString, "error connecting to") {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-sessions: %w (%s)", err, outputString)
	}

	var names []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// KillSession terminates a specific session. Returns nil if the session
// was already gone or the server was not running; these are normal
// conditions during cleanup, not errors.
func (s *Server) KillSession(sessionName string) error {
	cmd := exec.Command("tmux", "-S", s.socketPath, "kill-session", "-t", sessionName)
	output, err := cmd.CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		// "can't find session" and "no server running" are benign during
		// cleanup: the session was already gone.
		if strings.Contains(outputString, "can't find session") ||
			strings.Contains(outputString, "no server running") {
			return nil
		}
		return fmt.Errorf("tmux kill-session %q: %w (%s)",
			sessionName, err, outputString)
	}
	return nil
}

// KillServer terminates the entire tmux server, stopping all sessions.
// Returns nil if the server was already stopped; this is a normal
// condition during cleanup, not an error.
func (s *Server) KillServer() error {
	cmd := exec.Command("tmux", "-S", s.socketPath, "kill-server")
	output, err := cmd.CombinedOutput()
	if err != nil {
		outputString := strings.TrimSpace(string(output))
		// "no server running" and "server exited unexpectedly" are benign
		// during cleanup: the server is already gone, which is what we wanted.
		// The "server exited unexpectedly" message appears when the socket
		// file lingers briefly after the server process has exited.
		if strings.Contains(outputString, "no server running") ||
			strings.Contains(outputString, "server exited unexpectedly") {
			return nil
		}
		return fmt.Errorf("tmux kill-server: %w (%s)", err, outputString)
	}
	return nil
}

// Run executes an arbitrary tmux subcommand on this server and returns
// the combined output. This is the escape hatch for commands that don't
// have a dedicated method: list-windows, display-message, and the
// session-creation-time query used by attach.
//
// The -S flag is automatically prepended. Callers provide only the
// subcommand and its arguments:
//
//	output, err := server.Run("list-windows", "-t", session, "-F", "#{window_name}")
func (s *Server) Run(args ...string) (string, error) {
	fullArgs := append([]string{"-S", s.socketPath}, args...)
	cmd := exec.Command("tmux", fullArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// CapturePane captures the full scrollback and visible content of the
// pane identified by target. The output includes terminal control
// sequences if the process emitted them; transcript storage strips them
// before compressing.
//
// Uses capture-pane with -p (print to stdout), -S - (start of history),
// and -E - (end of visible area) to get the complete pane content.
//
// maxLines limits the output to the last N lines. Pass 0 for no limit.
func (s *Server) CapturePane(target string, maxLines int) (string, error) {
	output, err := s.Run("capture-pane", "-t", target, "-p", "-S", "-", "-E", "-")
	if err != nil {
		return "", err
	}

	if maxLines <= 0 {
		return output, nil
	}

	return tailString(output, maxLines), nil
}

// tailString returns the last n lines of s, matching tail -n semantics:
// a trailing newline terminates the last line (does not start a new one).
// If s has n or fewer lines, it is returned unchanged.
func tailString(s string, n int) string {
	if len(s) == 0 {
		return s
	}

	// A trailing newline terminates the last line; search from before it
	// so it doesn't count as an extra line separator.
	searchFrom := len(s) - 1
	if s[searchFrom] == '\n' {
		searchFrom--
	}

	// Walk backwards counting newline separators. For n lines we need
	// n-1 separators between them, plus one more newline to find the
	// cut point (the newline before the first of our n lines).
	count := 0
	for i := searchFrom; i >= 0; i-- {
		if s[i] == '\n' {
			count++
			if count == n {
				return s[i+1:]
			}
		}
	}
	return s
}

// Command returns an *exec.Cmd for a tmux subcommand without running it.
// The caller gets full control over Stdin, Stdout, and Stderr before
// starting the process. The attach command uses this to hand the
// terminal to "tmux attach-session".
//
// The -S flag is automatically prepended, as with Run.
func (s *Server) Command(args ...string) *exec.Cmd {
	fullArgs := append([]string{"-S", s.socketPath}, args...)
	return exec.Command("tmux", fullArgs...)
}

// CommandContext is like Command but accepts a context for cancellation.
// When the context is cancelled, the tmux process receives SIGKILL.
func (s *Server) CommandContext(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append([]string{"-S", s.socketPath}, args...)
	return exec.CommandContext(ctx, "tmux", fullArgs...)
}
