// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/lib/branchui"
	"github.com/drydock-dev/drydock/lib/git"
)

// PickCommand returns the "drydock pick" command: an interactive
// branch picker feeding the same provisioning flow as "up".
func PickCommand() *cli.Command {
	var options upOptions

	return &cli.Command{
		Name:    "pick",
		Summary: "Pick branches interactively and provision them",
		Description: `Open a fuzzy finder over this repository's local and remote branches.
Type to filter, Tab to mark several, Enter to provision the marked
branches (or the highlighted one) exactly as "drydock up" would, in
the order they were marked. Esc leaves without provisioning anything.`,
		Usage: "drydock pick [flags]",
		Examples: []cli.Example{
			{
				Description: "Pick and provision",
				Command:     "drydock pick",
			},
			{
				Description: "Pick without spawning builds",
				Command:     "drydock pick --no-build",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("pick", pflag.ContinueOnError)
			options.bind(flags)
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("pick takes no arguments").
					WithHint("Pass branches to 'drydock up' instead.")
			}
			return runPick(ctx, options, logger)
		},
	}
}

func runPick(ctx context.Context, options upOptions, logger *slog.Logger) error {
	repo, err := git.Find(ctx, ".")
	if err != nil {
		return err
	}
	branches, err := repo.ListBranches(ctx)
	if err != nil {
		return err
	}
	if len(branches) == 0 {
		return cli.NotFound("repository has no branches")
	}

	program := tea.NewProgram(branchui.New(branches), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("running branch picker: %w", err)
	}

	model, ok := final.(branchui.Model)
	if !ok {
		return cli.Internal("branch picker returned unexpected model %T", final)
	}
	if !model.Accepted() || len(model.Selected()) == 0 {
		logger.Debug("picker dismissed, nothing to provision")
		return nil
	}

	return provision(ctx, model.Selected(), options, logger)
}
