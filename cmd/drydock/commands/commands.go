// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the drydock CLI command tree: the user-facing
// provisioning commands plus the internal build runner that "up" spawns
// detached.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/lib/version"
)

// Root builds and returns the complete drydock CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "drydock",
		Description: `Drydock: per-branch development environments.

Give it branch names and it gives each one a git worktree, a tmux
session with a coding agent, and a sequential build with the built
application moved onto the branch's own workspace.`,
		Subcommands: []*cli.Command{
			UpCommand(),
			PickCommand(),
			StatusCommand(),
			AttachCommand(),
			DoctorCommand(),
			RunnerCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("drydock %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Provision one branch",
				Command:     "drydock up feature/login-retry",
			},
			{
				Description: "Provision a batch; builds run one at a time in the background",
				Command:     "drydock up feature/login feature/logout ABBI-1381-pending-icon",
			},
			{
				Description: "Pick branches interactively",
				Command:     "drydock pick",
			},
			{
				Description: "See what is provisioned",
				Command:     "drydock status",
			},
			{
				Description: "Attach the terminal to the most recent session",
				Command:     "drydock attach",
			},
			{
				Description: "Check that every collaborator tool is in place",
				Command:     "drydock doctor",
			},
		},
	}
}
