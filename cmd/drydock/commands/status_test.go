// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/drydock-dev/drydock/lib/branchname"
	"github.com/drydock-dev/drydock/lib/transcript"
)

func TestParseWorktreePorcelain(t *testing.T) {
	output := strings.Join([]string{
		"worktree /home/dev/app",
		"HEAD 1111111111111111111111111111111111111111",
		"branch refs/heads/main",
		"",
		"worktree /home/dev/app-worktrees/feature-login-retry",
		"HEAD 2222222222222222222222222222222222222222",
		"branch refs/heads/feature/login-retry",
		"",
		"worktree /home/dev/app-worktrees/detached-probe",
		"HEAD 3333333333333333333333333333333333333333",
		"detached",
		"",
	}, "\n")

	listings := parseWorktreePorcelain(output)
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d: %+v", len(listings), listings)
	}
	if listings[0].Path != "/home/dev/app" || listings[0].Branch != "main" {
		t.Errorf("main worktree parsed as %+v", listings[0])
	}
	if listings[1].Branch != "feature/login-retry" {
		t.Errorf("branch = %q, want feature/login-retry", listings[1].Branch)
	}
	if listings[2].Branch != "" {
		t.Errorf("detached worktree has branch %q, want empty", listings[2].Branch)
	}
}

func TestParseWorktreePorcelainEmpty(t *testing.T) {
	if listings := parseWorktreePorcelain(""); len(listings) != 0 {
		t.Errorf("expected no listings, got %+v", listings)
	}
}

func TestFilterToDir(t *testing.T) {
	listings := []worktreeListing{
		{Path: "/home/dev/app", Branch: "main"},
		{Path: "/home/dev/app-worktrees/feature-login", Branch: "feature/login"},
		{Path: "/home/dev/app-worktrees-other/x", Branch: "x"},
	}

	kept := filterToDir(listings, "/home/dev/app-worktrees")
	if len(kept) != 1 {
		t.Fatalf("expected 1 kept listing, got %d: %+v", len(kept), kept)
	}
	if kept[0].Branch != "feature/login" {
		t.Errorf("kept %+v", kept[0])
	}
}

func TestBuildStatusRowsJoinsOnLabel(t *testing.T) {
	branch := "feature/login-retry"
	label := branchname.Normalize(branch).Label
	title := branchname.SessionTitle(3, label)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rows := buildStatusRows(
		[]worktreeListing{
			{Path: "/wt/feature-login-retry", Branch: branch},
			{Path: "/wt/docs-changelog", Branch: "docs/changelog"},
		},
		[]string{title},
		[]transcript.Entry{
			{SessionName: title, Captured: now.Add(-90 * time.Minute), Size: 2048},
		},
		now,
	)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}

	// The session-bearing row sorts first.
	first := rows[0]
	if first.Branch != branch {
		t.Fatalf("first row is %+v, want branch %s", first, branch)
	}
	if first.Session != title || first.Workspace != 3 {
		t.Errorf("session join failed: %+v", first)
	}
	if first.BuildAge != "1h" {
		t.Errorf("build age = %q, want 1h", first.BuildAge)
	}
	if first.BuildSize != "2.0 KB" {
		t.Errorf("build size = %q, want 2.0 KB", first.BuildSize)
	}

	second := rows[1]
	if second.Session != "" || second.Workspace != 0 {
		t.Errorf("sessionless row carries session data: %+v", second)
	}
	if second.BuildAge != "" {
		t.Errorf("sessionless row carries build age %q", second.BuildAge)
	}
}

func TestBuildStatusRowsIncludesStaleSessions(t *testing.T) {
	title := branchname.SessionTitle(2, "orphan Work")
	rows := buildStatusRows(nil, []string{title}, nil, time.Now())

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Session != title || rows[0].Environment != "" {
		t.Errorf("stale session row = %+v", rows[0])
	}
	if rows[0].Branch != "orphan Work" {
		t.Errorf("stale row branch = %q, want the session label", rows[0].Branch)
	}
}

func TestBuildStatusRowsOrdering(t *testing.T) {
	labelA := branchname.Normalize("feature/alpha").Label
	labelB := branchname.Normalize("feature/beta").Label
	titleA := branchname.SessionTitle(5, labelA)
	titleB := branchname.SessionTitle(2, labelB)

	rows := buildStatusRows(
		[]worktreeListing{
			{Path: "/wt/zeta", Branch: "zeta"},
			{Path: "/wt/feature-alpha", Branch: "feature/alpha"},
			{Path: "/wt/feature-beta", Branch: "feature/beta"},
			{Path: "/wt/apricot", Branch: "apricot"},
		},
		[]string{titleA, titleB},
		nil,
		time.Now(),
	)

	var order []string
	for _, row := range rows {
		order = append(order, row.Branch)
	}
	want := []string{"feature/beta", "feature/alpha", "apricot", "zeta"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("row order = %v, want %v", order, want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m"},
		{45 * time.Minute, "45m"},
		{26 * time.Hour, "1d"},
		{3 * time.Hour, "3h"},
		{-5 * time.Second, "0s"},
	}
	for _, c := range cases {
		if got := formatAge(c.age); got != c.want {
			t.Errorf("formatAge(%v) = %q, want %q", c.age, got, c.want)
		}
	}
}

func TestFindTranscriptEntry(t *testing.T) {
	entries := []transcript.Entry{
		{SessionName: branchname.SessionTitle(4, "DCT-46934 Login Fix")},
		{SessionName: branchname.SessionTitle(2, "Changelog")},
		{SessionName: "not a session title"},
	}

	entry, ok := findTranscriptEntry(entries, "feature/DCT-46934-login-fix")
	if !ok {
		t.Fatal("expected a transcript for the login-fix branch")
	}
	if entry.SessionName != entries[0].SessionName {
		t.Errorf("matched %q, want %q", entry.SessionName, entries[0].SessionName)
	}

	if _, ok := findTranscriptEntry(entries, "feature/unrelated"); ok {
		t.Error("matched a transcript for a branch that has none")
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
		{3 << 29, "1.5 GB"},
	}
	for _, c := range cases {
		if got := formatSize(c.bytes); got != c.want {
			t.Errorf("formatSize(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}

func TestRenderStatusTable(t *testing.T) {
	rows := []statusRow{
		{Branch: "feature/login", Environment: "/wt/feature-login", Session: "1 login", Workspace: 1, BuildAge: "5m"},
		{Branch: "docs/changelog", Environment: "/wt/docs-changelog"},
	}

	rendered := renderStatusTable(rows)
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), rendered)
	}
	if !strings.Contains(lines[0], "BRANCH") || !strings.Contains(lines[0], "BUILD") || !strings.Contains(lines[0], "SIZE") {
		t.Errorf("header missing columns: %q", lines[0])
	}
	if !strings.Contains(lines[1], "feature/login") || !strings.Contains(lines[1], "5m") {
		t.Errorf("session row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "-") {
		t.Errorf("sessionless row should show dashes: %q", lines[2])
	}
}
