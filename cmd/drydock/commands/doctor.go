// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/pflag"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/cmd/drydock/cli/doctor"
	"github.com/drydock-dev/drydock/lib/config"
	"github.com/drydock-dev/drydock/lib/git"
	"github.com/drydock-dev/drydock/lib/toolprofile"
)

// DoctorCommand returns the "drydock doctor" command.
func DoctorCommand() *cli.Command {
	var configPath string
	var jsonOutput bool
	var fixMode bool
	var dryRun bool

	return &cli.Command{
		Name:    "doctor",
		Summary: "Check collaborator and configuration health",
		Description: `Run a checklist over everything provisioning depends on: git and tmux
on PATH, the current directory inside a work tree, the configuration
parsing and validating, the active tool profile and its commands
resolvable, the workspace tools present, and the state directory
writable.

Failures with a known repair carry a fix hint; --fix applies them.
Warnings (missing workspace tools) do not fail the run, since window
assignment is best-effort.`,
		Usage: "drydock doctor [flags]",
		Examples: []cli.Example{
			{
				Description: "Run the checklist",
				Command:     "drydock doctor",
			},
			{
				Description: "Apply available fixes",
				Command:     "drydock doctor --fix",
			},
			{
				Description: "Show what --fix would do",
				Command:     "drydock doctor --fix --dry-run",
			},
			{
				Description: "Machine-readable output",
				Command:     "drydock doctor --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "configuration file (default: the XDG config path)")
			flags.BoolVar(&jsonOutput, "json", false, "emit JSON instead of the checklist")
			flags.BoolVar(&fixMode, "fix", false, "apply automatic fixes for fixable failures")
			flags.BoolVar(&dryRun, "dry-run", false, "with --fix, print fixes without applying them")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			results := runChecks(ctx, configPath)

			var outcome doctor.Outcome
			if fixMode {
				outcome = doctor.ExecuteFixes(ctx, results, dryRun)
			}

			if jsonOutput {
				output := doctor.BuildJSON(results, dryRun, outcome)
				if err := cli.WriteJSON(output); err != nil {
					return err
				}
				if !output.OK {
					return &cli.ExitError{Code: 1}
				}
				return nil
			}
			return doctor.PrintChecklist(results, fixMode, dryRun, outcome)
		},
	}
}

// checkState accumulates results and carries collaborators loaded by
// earlier checks into later ones. A nil field means its check failed
// and dependents skip.
type checkState struct {
	results []doctor.Result
	cfg     *config.Config
	repo    *git.Repository
	profile *toolprofile.Profile
}

func (s *checkState) add(result doctor.Result) {
	s.results = append(s.results, result)
}

func runChecks(ctx context.Context, configPath string) []doctor.Result {
	state := &checkState{}

	checkBinary(state, "git", "git")
	checkWorkTree(ctx, state)
	checkBinary(state, "tmux", "tmux")
	checkConfig(state, configPath)
	checkProfile(state)
	checkProfileTool(state, "agent tool", func(p *toolprofile.Profile) []string { return p.Agent })
	checkProfileTool(state, "git-ui tool", func(p *toolprofile.Profile) []string { return p.GitUI })
	checkWorkspaceTool(state, "window list tool", func(c *config.Config) []string { return c.Workspace.ListCommand })
	checkWorkspaceTool(state, "window move tool", func(c *config.Config) []string { return c.Workspace.MoveCommand })
	checkStateDir(state)

	return state.results
}

func checkBinary(state *checkState, name, binary string) {
	path, err := exec.LookPath(binary)
	if err != nil {
		state.add(doctor.Fail(name, fmt.Sprintf("%s not found on PATH", binary)))
		return
	}
	state.add(doctor.Pass(name, path))
}

func checkWorkTree(ctx context.Context, state *checkState) {
	if !git.InsideWorkTree(ctx, ".") {
		state.add(doctor.Fail("work tree", "current directory is not inside a git work tree"))
		return
	}
	repo, err := git.Find(ctx, ".")
	if err != nil {
		state.add(doctor.Fail("work tree", err.Error()))
		return
	}
	state.repo = repo
	state.add(doctor.Pass("work tree", repo.Dir()))
}

func checkConfig(state *checkState, configPath string) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		state.add(doctor.Fail("config", err.Error()))
		return
	}
	if err := cfg.Validate(); err != nil {
		state.add(doctor.Fail("config", err.Error()))
		return
	}
	state.cfg = cfg
	source := configPath
	if source == "" {
		source = "defaults + config chain"
	}
	state.add(doctor.Pass("config", source))
}

func checkProfile(state *checkState) {
	if state.cfg == nil {
		state.add(doctor.Skip("profile", "configuration check failed"))
		return
	}
	profile, err := toolprofile.Select(state.cfg.Paths.Profiles, state.cfg.Profile)
	if err != nil {
		state.add(doctor.Fail("profile", err.Error()))
		return
	}
	state.profile = profile
	state.add(doctor.Pass("profile", profile.Name))
}

func checkProfileTool(state *checkState, name string, argv func(*toolprofile.Profile) []string) {
	if state.profile == nil {
		state.add(doctor.Skip(name, "profile check failed"))
		return
	}
	command := argv(state.profile)
	if len(command) == 0 {
		state.add(doctor.Skip(name, "not configured in profile"))
		return
	}
	path, err := exec.LookPath(command[0])
	if err != nil {
		state.add(doctor.Fail(name, fmt.Sprintf("%s not found on PATH", command[0])))
		return
	}
	state.add(doctor.Pass(name, path))
}

// checkWorkspaceTool warns rather than fails: assignment is
// best-effort and provisioning works without it.
func checkWorkspaceTool(state *checkState, name string, argv func(*config.Config) []string) {
	if state.cfg == nil {
		state.add(doctor.Skip(name, "configuration check failed"))
		return
	}
	command := argv(state.cfg)
	if len(command) == 0 {
		state.add(doctor.Skip(name, "not configured"))
		return
	}
	path, err := exec.LookPath(command[0])
	if err != nil {
		state.add(doctor.Warn(name, fmt.Sprintf("%s not found on PATH, window assignment will be skipped", command[0])))
		return
	}
	state.add(doctor.Pass(name, path))
}

func checkStateDir(state *checkState) {
	if state.cfg == nil || state.repo == nil {
		state.add(doctor.Skip("state dir", "configuration or work tree check failed"))
		return
	}
	dir, err := state.cfg.ResolveStateDir(state.repo.Dir())
	if err != nil {
		state.add(doctor.Fail("state dir", err.Error()))
		return
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		state.add(doctor.FailWithFix("state dir",
			fmt.Sprintf("%s does not exist", dir),
			fmt.Sprintf("create %s", dir),
			func(ctx context.Context) error { return os.MkdirAll(dir, 0o755) },
		))
		return
	case err != nil:
		state.add(doctor.Fail("state dir", err.Error()))
		return
	case !info.IsDir():
		state.add(doctor.Fail("state dir", fmt.Sprintf("%s exists but is not a directory", dir)))
		return
	}

	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		state.add(doctor.Fail("state dir", fmt.Sprintf("%s is not writable: %v", dir, err)))
		return
	}
	probe.Close()
	os.Remove(probe.Name())
	state.add(doctor.Pass("state dir", dir))
}
