// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/drydock-dev/drydock/cmd/drydock/cli"
	"github.com/drydock-dev/drydock/lib/branchname"
	"github.com/drydock-dev/drydock/lib/git"
	"github.com/drydock-dev/drydock/lib/tmux"
	"github.com/drydock-dev/drydock/lib/transcript"
)

// StatusCommand returns the "drydock status" command.
func StatusCommand() *cli.Command {
	var configPath string
	var jsonOutput bool
	var transcriptBranch string

	return &cli.Command{
		Name:    "status",
		Summary: "Show branch environments, sessions, and build transcripts",
		Description: `List this repository's provisioned environments: each worktree under
the worktree container, the tmux session serving it (if any), the
session's workspace number, and the age and size of its last build
transcript. Sessions without a matching worktree are listed too, since
they usually mean a worktree was removed by hand.

With --transcript, print one branch's stored build transcript instead.`,
		Usage: "drydock status [flags]",
		Examples: []cli.Example{
			{
				Description: "Environment table",
				Command:     "drydock status",
			},
			{
				Description: "Machine-readable output",
				Command:     "drydock status --json",
			},
			{
				Description: "What the last build for a branch printed",
				Command:     "drydock status --transcript feature/login-retry",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "configuration file (default: the XDG config path)")
			flags.BoolVar(&jsonOutput, "json", false, "emit JSON instead of a table")
			flags.StringVar(&transcriptBranch, "transcript", "", "print the stored build transcript for a branch")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runStatus(ctx, configPath, jsonOutput, transcriptBranch, logger)
		},
	}
}

func runStatus(ctx context.Context, configPath string, jsonOutput bool, transcriptBranch string, logger *slog.Logger) error {
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
	root := repo.Dir()

	output, err := repo.Run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return err
	}
	worktrees := filterToDir(parseWorktreePorcelain(output), cfg.ResolveWorktreesDir(root))

	stateDir, err := cfg.ResolveStateDir(root)
	if err != nil {
		return err
	}
	store := transcript.NewStore(filepath.Join(stateDir, "transcripts"), logger)
	if transcriptBranch != "" {
		return printTranscript(store, transcriptBranch)
	}

	socketPath, err := cfg.ResolveSocketPath(root)
	if err != nil {
		return err
	}
	server := tmux.NewServer(socketPath, "")
	sessionNames, err := server.ListSessions()
	if err != nil {
		return err
	}

	transcripts, err := store.List()
	if err != nil {
		return err
	}

	rows := buildStatusRows(worktrees, sessionNames, transcripts, time.Now())

	if jsonOutput {
		return cli.WriteJSON(statusReport{Environments: rows})
	}
	if len(rows) == 0 {
		fmt.Println("No environments. Run 'drydock up <branch>' to create one.")
		return nil
	}
	fmt.Print(renderStatusTable(rows))
	return nil
}

// printTranscript writes the branch's stored build transcript to
// stdout. Transcripts are keyed by session name, so the branch is
// matched through its label the same way the table join works.
func printTranscript(store *transcript.Store, branch string) error {
	entries, err := store.List()
	if err != nil {
		return err
	}
	entry, ok := findTranscriptEntry(entries, branch)
	if !ok {
		return cli.NotFound("no build transcript for branch %q", branch).
			WithHint("Transcripts appear after 'drydock up' runs a build for the branch.")
	}
	content, err := store.Read(entry.SessionName)
	if err != nil {
		return err
	}
	fmt.Print(content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Println()
	}
	return nil
}

// findTranscriptEntry resolves a branch to its transcript via the
// session-title label. Entries are newest first, so the first match is
// the most recent capture.
func findTranscriptEntry(entries []transcript.Entry, branch string) (transcript.Entry, bool) {
	label := branchname.Normalize(branch).Label
	for _, entry := range entries {
		if _, entryLabel, ok := branchname.ParseSessionTitle(entry.SessionName); ok && entryLabel == label {
			return entry, true
		}
	}
	return transcript.Entry{}, false
}

// worktreeListing is one entry from "git worktree list --porcelain".
type worktreeListing struct {
	Path   string
	Branch string
}

// parseWorktreePorcelain extracts worktree paths and their checked-out
// branches from porcelain output. Entries are blank-line separated;
// detached worktrees have no branch line and keep an empty Branch.
func parseWorktreePorcelain(output string) []worktreeListing {
	var listings []worktreeListing
	var current *worktreeListing

	flush := func() {
		if current != nil {
			listings = append(listings, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &worktreeListing{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch ") && current != nil:
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	flush()
	return listings
}

// filterToDir keeps listings whose path is inside dir. The main
// worktree (the repository root itself) never qualifies.
func filterToDir(listings []worktreeListing, dir string) []worktreeListing {
	prefix := strings.TrimRight(dir, string(filepath.Separator)) + string(filepath.Separator)
	var kept []worktreeListing
	for _, listing := range listings {
		if strings.HasPrefix(listing.Path, prefix) {
			kept = append(kept, listing)
		}
	}
	return kept
}

// statusRow is one line of the status table, also the JSON shape.
type statusRow struct {
	Branch      string `json:"branch"`
	Environment string `json:"environment,omitempty"`
	Session     string `json:"session,omitempty"`
	Workspace   int    `json:"workspace,omitempty"`
	BuildAge    string `json:"build_age,omitempty"`
	BuildSize   string `json:"build_size,omitempty"`
}

type statusReport struct {
	Environments []statusRow `json:"environments"`
}

// buildStatusRows joins worktrees, sessions, and transcripts on the
// session label. Rows with a session sort by workspace ordinal; rows
// without one follow, sorted by branch.
func buildStatusRows(worktrees []worktreeListing, sessionNames []string, transcripts []transcript.Entry, now time.Time) []statusRow {
	type transcriptInfo struct {
		age  string
		size string
	}
	transcriptByLabel := make(map[string]transcriptInfo)
	for _, entry := range transcripts {
		if _, label, ok := branchname.ParseSessionTitle(entry.SessionName); ok {
			transcriptByLabel[label] = transcriptInfo{
				age:  formatAge(now.Sub(entry.Captured)),
				size: formatSize(entry.Size),
			}
		}
	}

	type sessionInfo struct {
		name    string
		ordinal int
	}
	sessions := make(map[string]sessionInfo)
	for _, name := range sessionNames {
		if ordinal, label, ok := branchname.ParseSessionTitle(name); ok {
			sessions[label] = sessionInfo{name: name, ordinal: ordinal}
		}
	}

	var rows []statusRow
	seen := make(map[string]bool)
	for _, listing := range worktrees {
		branch := listing.Branch
		if branch == "" {
			branch = filepath.Base(listing.Path)
		}
		label := branchname.Normalize(branch).Label
		seen[label] = true

		row := statusRow{
			Branch:      branch,
			Environment: listing.Path,
			BuildAge:    transcriptByLabel[label].age,
			BuildSize:   transcriptByLabel[label].size,
		}
		if info, ok := sessions[label]; ok {
			row.Session = info.name
			row.Workspace = info.ordinal
		}
		rows = append(rows, row)
	}

	// Sessions whose worktree is gone still occupy a workspace and a
	// name; show them so the skew is visible.
	for label, info := range sessions {
		if seen[label] {
			continue
		}
		rows = append(rows, statusRow{
			Branch:    label,
			Session:   info.name,
			Workspace: info.ordinal,
			BuildAge:  transcriptByLabel[label].age,
			BuildSize: transcriptByLabel[label].size,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		left, right := rows[i], rows[j]
		if (left.Session != "") != (right.Session != "") {
			return left.Session != ""
		}
		if left.Session != "" && left.Workspace != right.Workspace {
			return left.Workspace < right.Workspace
		}
		return left.Branch < right.Branch
	})
	return rows
}

// formatAge renders a duration as a compact age: "41s", "12m", "3h",
// "5d". Future timestamps clamp to "0s".
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	}
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true)
	statusStaleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderStatusTable lays the rows out with tabwriter first and styles
// whole lines afterwards, so the escape sequences never skew column
// widths. Rows without a session render faint.
func renderStatusTable(rows []statusRow) string {
	lipgloss.SetColorProfile(termenv.ColorProfile())

	var buffer bytes.Buffer
	writer := tabwriter.NewWriter(&buffer, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "BRANCH\tENVIRONMENT\tSESSION\tWS\tBUILD\tSIZE\n")
	for _, row := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Branch,
			orDash(row.Environment),
			orDash(row.Session),
			workspaceCell(row),
			orDash(row.BuildAge),
			orDash(row.BuildSize),
		)
	}
	writer.Flush()

	lines := strings.Split(strings.TrimRight(buffer.String(), "\n"), "\n")
	var rendered strings.Builder
	for i, line := range lines {
		switch {
		case i == 0:
			rendered.WriteString(statusHeaderStyle.Render(line))
		case rows[i-1].Session == "":
			rendered.WriteString(statusStaleStyle.Render(line))
		default:
			rendered.WriteString(line)
		}
		rendered.WriteByte('\n')
	}
	return rendered.String()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func workspaceCell(row statusRow) string {
	if row.Session == "" {
		return "-"
	}
	return fmt.Sprintf("%d", row.Workspace)
}
