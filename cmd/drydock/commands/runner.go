// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/lib/buildrunner"
	"github.com/drydock-dev/drydock/lib/clock"
	"github.com/drydock-dev/drydock/lib/codec"
	"github.com/drydock-dev/drydock/lib/config"
	"github.com/drydock-dev/drydock/lib/tmux"
	"github.com/drydock-dev/drydock/lib/transcript"
	"github.com/drydock-dev/drydock/lib/workspace"
)

// RunnerCommand returns the internal "drydock runner" command. "up"
// spawns it detached with a CBOR payload on stdin; it is not meant to
// be invoked by hand, but running it with a hand-fed payload works and
// is occasionally useful for debugging a stuck queue.
func RunnerCommand() *cli.Command {
	var verbose bool

	return &cli.Command{
		Name:    "runner",
		Summary: "Run queued builds from a payload on stdin (internal)",
		Description: `Read a build payload from stdin and process its jobs one at a time:
trigger the build in the job's shell pane, watch the window inventory
for the application window, move it to the job's workspace, and save
the pane transcript.

"drydock up" spawns this process detached, with stdout and stderr
redirected to runner.log in the state directory. Logs are structured
JSON there since stderr is not a terminal.`,
		Usage: "drydock runner < payload",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("runner", pflag.ContinueOnError)
			flags.BoolVar(&verbose, "verbose", false, "enable debug logging")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("runner takes no arguments").
					WithHint("It reads its payload from stdin; 'drydock up' starts it for you.")
			}
			if verbose {
				logger = cli.NewCommandLoggerLevel(slog.LevelDebug)
			}
			return runQueue(ctx, logger)
		},
	}
}

func runQueue(ctx context.Context, logger *slog.Logger) error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return cli.Internal("reading build payload: %w", err)
	}
	if diagnostic, err := codec.Diagnose(raw); err == nil {
		logger.Debug("raw payload", "cbor", diagnostic)
	}

	payload, err := buildrunner.DecodePayload(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	logger.Info("build payload received", "jobs", len(payload.Jobs), "repo", payload.RepoRoot)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return cli.Validation("invalid configuration: %w", err).
			WithHint("Run 'drydock doctor' to check your setup.")
	}

	stateDir, err := cfg.ResolveStateDir(payload.RepoRoot)
	if err != nil {
		return err
	}
	socketPath, err := cfg.ResolveSocketPath(payload.RepoRoot)
	if err != nil {
		return err
	}
	server := tmux.NewServer(socketPath, "")

	inventory, err := workspace.NewCommandInventory(cfg.Workspace.ListCommand)
	if err != nil {
		return err
	}
	watcher := workspace.NewWatcher(inventory, workspace.WatcherOptions{
		Attempts: cfg.Watcher.Attempts,
		Interval: cfg.Watcher.Interval(),
		Settle:   cfg.Watcher.Settle(),
	}, clock.Real(), logger)
	assigner := workspace.NewAssigner(cfg.Workspace.MoveCommand, cfg.Workspace.FollowUpCommand, logger)
	transcripts := transcript.NewStore(filepath.Join(stateDir, "transcripts"), logger)

	runner := buildrunner.New(buildrunner.Options{
		Keys:         server,
		Capture:      server,
		Inventory:    inventory,
		Watcher:      watcher,
		Assigner:     assigner,
		Transcripts:  transcripts,
		BuildCommand: cfg.Build.Command,
		AppName:      cfg.Build.AppName,
		CaptureLines: cfg.Build.CaptureLines,
	}, logger)

	results := runner.Run(ctx, payload.Jobs)

	triggered := 0
	assigned := 0
	for _, result := range results {
		if result.TriggerErr == nil {
			triggered++
		}
		if result.Found && result.Assign.OK() {
			assigned++
		}
	}
	logger.Info("build queue finished",
		"jobs", len(results), "triggered", triggered, "assigned", assigned)

	for _, result := range results {
		if result.TriggerErr != nil {
			// A trigger failure means the pane never received the build
			// command. Everything downstream was skipped for that job,
			// so surface it in the exit status.
			return &cli.ExitError{Code: 1}
		}
	}
	return nil
}
