// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/lib/branchname"
	"github.com/drydock-dev/drydock/lib/git"
	"github.com/drydock-dev/drydock/lib/session"
	"github.com/drydock-dev/drydock/lib/tmux"
)

// AttachCommand returns the "drydock attach" command.
func AttachCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "attach",
		Summary: "Attach the terminal to a branch's session",
		Description: `Attach to the tmux session serving a branch. With no argument, the
most recently created session on this repository's server. Inside an
existing tmux client the session is switched to instead of nested.`,
		Usage: "drydock attach [branch] [flags]",
		Examples: []cli.Example{
			{
				Description: "Most recent session",
				Command:     "drydock attach",
			},
			{
				Description: "A specific branch",
				Command:     "drydock attach feature/login-retry",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("attach", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "configuration file (default: the XDG config path)")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return cli.Validation("attach takes at most one branch").
					WithHint("Run 'drydock attach --help' for usage.")
			}
			return runAttach(ctx, args, configPath, logger)
		},
	}
}

func runAttach(ctx context.Context, args []string, configPath string, logger *slog.Logger) error {
	cfg, err := loadConfig(configPath)
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

	socketPath, err := cfg.ResolveSocketPath(repo.Dir())
	if err != nil {
		return err
	}
	server := tmux.NewServer(socketPath, "")

	var target string
	if len(args) == 1 {
		label := branchname.Normalize(args[0]).Label
		registry, err := session.LoadRegistry(server, cfg.Session.MatchMode)
		if err != nil {
			return err
		}
		name, ok := registry.Find(label)
		if !ok {
			return cli.NotFound("no session for branch %q", args[0]).
				WithHint(fmt.Sprintf("Run 'drydock up %s' to create one.", args[0]))
		}
		target = name
	} else {
		names, err := server.ListSessions()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return cli.NotFound("no sessions on this repository").
				WithHint("Run 'drydock up <branch>' to create one.")
		}
		output, err := server.Run("list-sessions", "-F", "#{session_created} #{session_name}")
		if err != nil {
			return err
		}
		name, ok := mostRecentSession(output)
		if !ok {
			return cli.Internal("could not determine the most recent session")
		}
		target = name
	}

	logger.Debug("attaching", "session", target)

	// Inside a tmux client, attach-session would nest; switch the
	// current client instead.
	if os.Getenv("TMUX") != "" {
		if _, err := server.Run("switch-client", "-t", target); err != nil {
			return fmt.Errorf("switching to session %q: %w", target, err)
		}
		return nil
	}

	cmd := server.Command("attach-session", "-t", target)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("attaching to session %q: %w", target, err)
	}
	return nil
}

// mostRecentSession picks the session with the highest creation
// timestamp from "#{session_created} #{session_name}" lines. Creation
// times have second resolution, so a batch can tie; the first listed
// wins and repeated calls agree.
func mostRecentSession(output string) (string, bool) {
	best := ""
	var bestCreated int64 = -1
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		created, name, found := strings.Cut(line, " ")
		if !found || name == "" {
			continue
		}
		timestamp, err := strconv.ParseInt(created, 10, 64)
		if err != nil {
			continue
		}
		if timestamp > bestCreated {
			bestCreated = timestamp
			best = name
		}
	}
	return best, best != ""
}
