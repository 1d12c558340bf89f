// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drydock-dev/drydock/lib/repodigest"
)

// MatchMode selects how the session registry compares existing session
// names against a branch's label.
type MatchMode string

const (
	// MatchSubstring treats a session as existing when any session name
	// contains the label as a substring. Labels that are substrings of
	// one another collide under this mode.
	MatchSubstring MatchMode = "substring"
	// MatchExact requires the session name's label part to equal the
	// branch's label.
	MatchExact MatchMode = "exact"
)

// Config is the master configuration for drydock.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Session configures registry matching.
	Session SessionConfig `yaml:"session"`

	// Build configures the sequential build pipeline.
	Build BuildConfig `yaml:"build"`

	// Watcher configures the window-detection polling loop.
	Watcher WatcherConfig `yaml:"watcher"`

	// Workspace configures the window inventory and mover commands.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Profile names the active tool profile.
	Profile string `yaml:"profile"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Worktrees is where branch worktrees are created. Empty derives
	// a per-repository default: <repo parent>/<repo name>-worktrees.
	Worktrees string `yaml:"worktrees"`

	// Profiles is the directory containing tool profile manifests.
	// When the directory does not exist, the built-in profile applies.
	Profiles string `yaml:"profiles"`

	// State is the base directory for per-repository runtime state
	// (runner log, build transcripts, tmux socket). Empty uses
	// ${XDG_STATE_HOME:-~/.local/state}/drydock. The repository digest
	// is always appended, so two clones never share state.
	State string `yaml:"state"`
}

// SessionConfig configures registry matching.
type SessionConfig struct {
	// MatchMode is "substring" or "exact". See MatchMode.
	MatchMode MatchMode `yaml:"match_mode"`
}

// BuildConfig configures the sequential build pipeline.
type BuildConfig struct {
	// Command is the build command typed into each new session's shell
	// pane. Empty disables the build pipeline entirely: up provisions
	// environments and sessions but spawns no runner.
	Command string `yaml:"command"`

	// AppName filters the window inventory to the built application.
	// Required when Command is set.
	AppName string `yaml:"app_name"`

	// CaptureLines is how many trailing pane lines each build
	// transcript keeps.
	CaptureLines int `yaml:"capture_lines"`
}

// WatcherConfig configures the window-detection polling loop.
type WatcherConfig struct {
	// Attempts is the polling budget per job.
	Attempts int `yaml:"attempts"`

	// IntervalSeconds is the fixed pause between polls.
	IntervalSeconds int `yaml:"interval_seconds"`

	// SettleSeconds is the pause after a window is detected, giving the
	// application time to finish drawing before it is relocated.
	SettleSeconds int `yaml:"settle_seconds"`
}

// Interval returns the polling pause as a duration.
func (w WatcherConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}

// Settle returns the post-detection pause as a duration.
func (w WatcherConfig) Settle() time.Duration {
	return time.Duration(w.SettleSeconds) * time.Second
}

// WorkspaceConfig configures the window inventory and mover commands.
// Each command is an argv; MoveCommand and FollowUpCommand may embed
// {{window}} and {{workspace}} placeholders in any argument.
type WorkspaceConfig struct {
	// ListCommand prints the window inventory, one window per line:
	// "<id><TAB><app name>", or bare "<id>" when the tool applies the
	// application filter itself.
	ListCommand []string `yaml:"list_command"`

	// MoveCommand relocates a window to a workspace.
	MoveCommand []string `yaml:"move_command"`

	// FollowUpCommand runs after a successful move, for
	// application-specific follow-up configuration. Empty skips it.
	FollowUpCommand []string `yaml:"follow_up_command"`
}

// Dir returns the drydock configuration directory:
// ${XDG_CONFIG_HOME:-~/.config}/drydock.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	return filepath.Join(base, "drydock"), nil
}

// DefaultPath returns the default configuration file path:
// <config dir>/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the default configuration. Every field is usable
// without a config file; the file only overrides.
func Default() *Config {
	profilesDir := ""
	if dir, err := Dir(); err == nil {
		profilesDir = filepath.Join(dir, "profiles")
	}

	return &Config{
		Paths: PathsConfig{
			Worktrees: "",
			Profiles:  profilesDir,
			State:     "",
		},
		Session: SessionConfig{
			MatchMode: MatchSubstring,
		},
		Build: BuildConfig{
			Command:      "",
			AppName:      "",
			CaptureLines: 500,
		},
		Watcher: WatcherConfig{
			Attempts:        120,
			IntervalSeconds: 2,
			SettleSeconds:   2,
		},
		Workspace: WorkspaceConfig{
			ListCommand: []string{
				"aerospace", "list-windows", "--all",
				"--format", "%{window-id}%{tab}%{app-name}",
			},
			MoveCommand: []string{
				"aerospace", "move-node-to-workspace",
				"--window-id", "{{window}}", "{{workspace}}",
			},
			FollowUpCommand: nil,
		},
		Profile: "claude",
	}
}

// Load resolves the configuration path and loads it. DRYDOCK_CONFIG
// wins when set; otherwise the default path applies, and a missing
// file there yields the defaults unchanged.
func Load() (*Config, error) {
	if path := os.Getenv("DRYDOCK_CONFIG"); path != "" {
		return LoadFile(path)
	}

	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. The file must
// exist: this is the entry point for --config and DRYDOCK_CONFIG, where
// a missing file means the user's intent cannot be honored.
//
// Environment variables do not override config values. The only
// expansion performed is ${HOME} and similar path variables for
// portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. Command argv values are deliberately left alone: the build
// command runs in a shell that does its own expansion, and the
// workspace commands run verbatim.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Worktrees = expandVars(c.Paths.Worktrees, vars)
	c.Paths.Profiles = expandVars(c.Paths.Profiles, vars)
	c.Paths.State = expandVars(c.Paths.State, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.MatchMode != MatchSubstring && c.Session.MatchMode != MatchExact {
		errs = append(errs, fmt.Errorf("session.match_mode must be %q or %q, got %q",
			MatchSubstring, MatchExact, c.Session.MatchMode))
	}

	if c.Watcher.Attempts < 1 {
		errs = append(errs, fmt.Errorf("watcher.attempts must be at least 1"))
	}
	if c.Watcher.IntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("watcher.interval_seconds must be at least 1"))
	}
	if c.Watcher.SettleSeconds < 0 {
		errs = append(errs, fmt.Errorf("watcher.settle_seconds must not be negative"))
	}

	if c.Build.CaptureLines < 1 {
		errs = append(errs, fmt.Errorf("build.capture_lines must be at least 1"))
	}
	if c.Build.Command != "" {
		if c.Build.AppName == "" {
			errs = append(errs, fmt.Errorf("build.app_name is required when build.command is set"))
		}
		if len(c.Workspace.ListCommand) == 0 {
			errs = append(errs, fmt.Errorf("workspace.list_command is required when build.command is set"))
		}
		if len(c.Workspace.MoveCommand) == 0 {
			errs = append(errs, fmt.Errorf("workspace.move_command is required when build.command is set"))
		}
	}

	if c.Profile == "" {
		errs = append(errs, fmt.Errorf("profile is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ResolveWorktreesDir returns the directory branch worktrees live in
// for the repository at root: the configured override, or the sibling
// default <repo parent>/<repo name>-worktrees.
func (c *Config) ResolveWorktreesDir(root string) string {
	if c.Paths.Worktrees != "" {
		return c.Paths.Worktrees
	}
	return filepath.Join(filepath.Dir(root), filepath.Base(root)+"-worktrees")
}

// ResolveStateDir returns the per-repository state directory. The
// repository digest is appended even when paths.state is overridden,
// so clones sharing a configured base still get isolated state.
func (c *Config) ResolveStateDir(root string) (string, error) {
	if c.Paths.State != "" {
		digest, err := repodigest.Digest(root)
		if err != nil {
			return "", err
		}
		return filepath.Join(c.Paths.State, digest), nil
	}
	return repodigest.StateDir(root)
}

// ResolveSocketPath returns the tmux server socket path for the
// repository at root, inside its state directory.
func (c *Config) ResolveSocketPath(root string) (string, error) {
	if c.Paths.State != "" {
		stateDir, err := c.ResolveStateDir(root)
		if err != nil {
			return "", err
		}
		return filepath.Join(stateDir, "tmux.sock"), nil
	}
	return repodigest.SocketPath(root)
}

// EnsurePaths creates the directories drydock writes into for the
// repository at root: the resolved state directory and its transcripts
// subdirectory, plus the worktrees directory.
func (c *Config) EnsurePaths(root string) error {
	stateDir, err := c.ResolveStateDir(root)
	if err != nil {
		return err
	}

	paths := []string{
		stateDir,
		filepath.Join(stateDir, "transcripts"),
		c.ResolveWorktreesDir(root),
	}
	for _, path := range paths {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
