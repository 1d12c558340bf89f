// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/lib/branchname"
	"github.com/drydock-dev/drydock/lib/buildrunner"
	"github.com/drydock-dev/drydock/lib/config"
	"github.com/drydock-dev/drydock/lib/git"
	"github.com/drydock-dev/drydock/lib/session"
	"github.com/drydock-dev/drydock/lib/tmux"
	"github.com/drydock-dev/drydock/lib/toolprofile"
	"github.com/drydock-dev/drydock/lib/worktree"
)

// upOptions holds the flag values shared by "up" and "pick".
type upOptions struct {
	configPath string
	verbose    bool
	noBuild    bool
}

func (o *upOptions) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "configuration file (default: the XDG config path)")
	flags.BoolVar(&o.verbose, "verbose", false, "enable debug logging")
	flags.BoolVar(&o.noBuild, "no-build", false, "provision without spawning the build runner")
}

// UpCommand returns the "drydock up" command, the core provisioning
// flow.
func UpCommand() *cli.Command {
	var options upOptions

	return &cli.Command{
		Name:    "up",
		Summary: "Provision branch environments and sessions",
		Description: `Provision a development environment for each branch: a git worktree
(created, or attached to an existing local or remote branch), a tmux
session with an agent window and a git window, and, for sessions created
this run, a queued sequential build whose application window lands on
the session's own workspace.

Branches are processed in input order. A branch that fails is reported
and skipped; the rest of the batch continues. Builds run one at a time
in a detached background process; "up" returns as soon as sessions are
ready.`,
		Usage: "drydock up <branch>... [flags]",
		Examples: []cli.Example{
			{
				Description: "One branch",
				Command:     "drydock up feature/login-retry",
			},
			{
				Description: "A batch, in order",
				Command:     "drydock up feature/login feature/logout ABBI-1381-pending-icon",
			},
			{
				Description: "Sessions only, no builds",
				Command:     "drydock up --no-build feature/login",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("up", pflag.ContinueOnError)
			options.bind(flags)
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return cli.Validation("at least one branch is required").
					WithHint("Run 'drydock up --help' for usage.")
			}
			return provision(ctx, args, options, logger)
		},
	}
}

// provision is the shared core of "up" and "pick": resolve the
// repository and configuration, provision every branch, print the
// summary, and hand the build queue to a detached runner.
func provision(ctx context.Context, branches []string, options upOptions, logger *slog.Logger) error {
	if options.verbose {
		logger = cli.NewCommandLoggerLevel(slog.LevelDebug)
	}

	cfg, err := loadConfig(options.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return cli.Validation("invalid configuration: %w", err).
			WithHint("Run 'drydock doctor' to check your setup.")
	}

	repo, err := git.Find(ctx, ".")
	if err != nil {
		return err
	}
	root := repo.Dir()

	profile, err := toolprofile.Select(cfg.Paths.Profiles, cfg.Profile)
	if err != nil {
		return cli.Validation("selecting profile: %w", err).
			WithHint("Edit the profile file or set a different 'profile' in your config.")
	}

	if err := checkRequiredTools(profile); err != nil {
		return err
	}
	warnMissingWorkspaceTools(cfg, logger)

	if err := cfg.EnsurePaths(root); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return cli.Forbidden("creating drydock directories: %w", err).
				WithHint("Check directory ownership, or point 'paths' elsewhere in your config.")
		}
		return err
	}
	stateDir, err := cfg.ResolveStateDir(root)
	if err != nil {
		return err
	}
	socketPath, err := cfg.ResolveSocketPath(root)
	if err != nil {
		return err
	}

	server := tmux.NewServer(socketPath, "")
	registry, err := session.LoadRegistry(server, cfg.Session.MatchMode)
	if err != nil {
		return err
	}

	deps := branchDeps{
		profile:     profile,
		provisioner: worktree.NewProvisioner(repo, cfg.ResolveWorktreesDir(root), filepath.Join(stateDir, "worktree.lock"), logger),
		registry:    registry,
		launcher:    session.NewLauncher(server, logger),
	}

	batch := session.NewBatchState(registry)
	for _, branch := range branches {
		provisionBranch(ctx, deps, batch, branch, logger)
	}

	printSummary(batch)

	switch {
	case len(batch.Jobs) == 0:
		logger.Debug("no build jobs queued")
	case cfg.Build.Command == "":
		logger.Info("no build command configured, skipping builds", "jobs", len(batch.Jobs))
	case options.noBuild:
		logger.Info("builds disabled by --no-build", "jobs", len(batch.Jobs))
	default:
		payload := buildrunner.Payload{
			Version:  buildrunner.PayloadVersion,
			RepoRoot: root,
			Jobs:     batch.Jobs,
		}
		if err := spawnRunner(payload, stateDir, options, logger); err != nil {
			return fmt.Errorf("starting build runner: %w", err)
		}
	}

	if batch.FailedCount() > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// branchDeps carries the per-invocation collaborators through the
// branch loop.
type branchDeps struct {
	profile     *toolprofile.Profile
	provisioner *worktree.Provisioner
	registry    *session.Registry
	launcher    *session.Launcher
}

// provisionBranch runs one branch through the full flow: normalize,
// provision the environment, resolve or create the session. Failures
// are recorded in the batch; the caller's loop continues.
func provisionBranch(ctx context.Context, deps branchDeps, batch *session.BatchState, branch string, logger *slog.Logger) {
	name := branchname.Normalize(branch)

	env, err := deps.provisioner.Provision(ctx, name)
	if err != nil {
		logger.Error("environment provisioning failed", "branch", branch, "error", err)
		batch.RecordFailure(branch, err)
		return
	}
	logger.Debug("environment ready", "branch", branch, "path", env.Path, "state", string(env.State))

	if existing, ok := deps.registry.Find(name.Label); ok {
		logger.Info("session exists, reusing", "branch", branch, "session", existing)
		batch.RecordReused(branch, env, session.Record{
			SessionName: existing,
			Label:       name.Label,
			State:       session.StateReused,
		})
		return
	}

	ordinal := deps.registry.NextOrdinal()
	title := branchname.SessionTitle(ordinal, name.Label)
	vars := map[string]string{
		"branch": name.Branch,
		"label":  name.Label,
		"ticket": name.Ticket,
	}

	panes, err := deps.launcher.Launch(session.LaunchSpec{
		SessionName:  title,
		StartDir:     env.Path,
		AgentCommand: deps.profile.AgentCommand(vars),
		GitUICommand: deps.profile.GitUICommand(vars),
	})
	if err != nil {
		logger.Error("session launch failed", "branch", branch, "session", title, "error", err)
		batch.RecordFailure(branch, err)
		return
	}

	batch.RecordCreated(branch, env, session.Record{
		SessionName: title,
		Label:       name.Label,
		Ordinal:     ordinal,
		State:       session.StateCreated,
		Panes:       panes,
	})
	logger.Info("session created",
		"branch", branch, "session", title, "workspace", ordinal, "environment", env.Path)
}

// printSummary writes the per-branch outcome table to stdout.
func printSummary(batch *session.BatchState) {
	for _, result := range batch.Results {
		switch {
		case result.Err != nil:
			fmt.Printf("failed   %s: %v\n", result.Branch, result.Err)
		case result.Session.State == session.StateReused:
			fmt.Printf("reused   %s: session %q\n", result.Branch, result.Session.SessionName)
		default:
			fmt.Printf("created  %s: session %q, workspace %d (%s)\n",
				result.Branch, result.Session.SessionName, result.Session.Ordinal, result.Environment.State)
		}
	}
}

// checkRequiredTools verifies the binaries the flow cannot run without.
// The agent and git-UI checks use the profile's argv[0] after no
// expansion: placeholders never appear in the program name position.
func checkRequiredTools(profile *toolprofile.Profile) error {
	tools := []struct{ name, purpose string }{
		{"tmux", "session management"},
	}
	if len(profile.Agent) > 0 {
		tools = append(tools, struct{ name, purpose string }{profile.Agent[0], "agent pane"})
	}
	if len(profile.GitUI) > 0 {
		tools = append(tools, struct{ name, purpose string }{profile.GitUI[0], "git window"})
	}

	for _, tool := range tools {
		if _, err := exec.LookPath(tool.name); err != nil {
			return cli.NotFound("%s (%s) not found on PATH", tool.name, tool.purpose).
				WithHint("Install it, or run 'drydock doctor' for a full environment check.")
		}
	}
	return nil
}

// warnMissingWorkspaceTools logs a warning for each configured
// workspace command whose binary is absent. Workspace assignment is
// best-effort, so a missing tool degrades the experience rather than
// blocking provisioning.
func warnMissingWorkspaceTools(cfg *config.Config, logger *slog.Logger) {
	checks := []struct {
		purpose string
		argv    []string
	}{
		{"window inventory", cfg.Workspace.ListCommand},
		{"window move", cfg.Workspace.MoveCommand},
		{"move follow-up", cfg.Workspace.FollowUpCommand},
	}
	for _, check := range checks {
		if len(check.argv) == 0 {
			continue
		}
		if _, err := exec.LookPath(check.argv[0]); err != nil {
			logger.Warn("workspace tool not found, window assignment will be skipped",
				"purpose", check.purpose, "command", check.argv[0])
		}
	}
}

// loadConfig resolves the configuration from the --config override or
// the default lookup chain.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// spawnRunner starts "drydock runner" in its own session, detached from
// the terminal, and writes the CBOR payload to its stdin. The child's
// stdout and stderr go to the state directory's runner.log; the child
// outlives this process.
func spawnRunner(payload buildrunner.Payload, stateDir string, options upOptions, logger *slog.Logger) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving drydock executable: %w", err)
	}

	logPath := filepath.Join(stateDir, "runner.log")
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening runner log %s: %w", logPath, err)
	}
	defer logFile.Close()

	argv := []string{"runner"}
	if options.verbose {
		argv = append(argv, "--verbose")
	}
	cmd := exec.Command(executable, argv...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if options.configPath != "" {
		// The child re-reads the configuration; point it at the same
		// file the parent used.
		cmd.Env = append(os.Environ(), "DRYDOCK_CONFIG="+options.configPath)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating runner stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting runner process: %w", err)
	}

	encodeErr := payload.Encode(stdin)
	closeErr := stdin.Close()
	if encodeErr != nil {
		return fmt.Errorf("writing build payload to runner: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing runner stdin: %w", closeErr)
	}

	logger.Info("build runner started",
		"pid", cmd.Process.Pid, "jobs", len(payload.Jobs), "log", logPath)
	return cmd.Process.Release()
}
