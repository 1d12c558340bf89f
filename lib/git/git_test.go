// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// initRepo creates a git repository with an initial commit on "main"
// and returns its path. Tests needing git skip when the binary is
// absent.
func initRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git not available: %v", err)
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		command := exec.Command("git", append([]string{"-C", dir}, args...)...)
		command.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test",
			"GIT_AUTHOR_EMAIL=test@test.local",
			"GIT_COMMITTER_NAME=Test",
			"GIT_COMMITTER_EMAIL=test@test.local",
		)
		if output, err := command.CombinedOutput(); err != nil {
			t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, output)
		}
	}

	run("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("test\n"), 0o644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	run("add", "README")
	run("commit", "-m", "initial")

	return dir
}

func TestRepository_Run(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)

	output, err := repo.Run(context.Background(), "branch", "--list")
	if err != nil {
		t.Fatalf("Run(branch --list): %v", err)
	}
	if !strings.Contains(output, "main") {
		t.Errorf("branch list output = %q, want to contain 'main'", output)
	}
}

func TestRepository_Run_InvalidSubcommand(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)

	_, err := repo.Run(context.Background(), "not-a-real-command")
	if err == nil {
		t.Fatal("expected error for invalid git subcommand")
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("error = %v, want to contain repository dir %q", err, dir)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	nested := filepath.Join(dir, "sub", "deeper")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	repo, err := Find(context.Background(), nested)
	if err != nil {
		t.Fatalf("Find from nested dir: %v", err)
	}

	// Resolve both sides: git may print the symlink-resolved path
	// (macOS /tmp vs /private/tmp).
	wantRoot, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	gotRoot, err := filepath.EvalSymlinks(repo.Dir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if gotRoot != wantRoot {
		t.Errorf("Find root = %q, want %q", gotRoot, wantRoot)
	}
}

func TestFind_OutsideRepository(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git not available: %v", err)
	}

	outside := t.TempDir()
	if _, err := Find(context.Background(), outside); err == nil {
		t.Fatal("expected error when outside any repository")
	}
}

func TestInsideWorkTree(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	ctx := context.Background()

	if !InsideWorkTree(ctx, dir) {
		t.Error("InsideWorkTree = false inside a work tree")
	}
	if InsideWorkTree(ctx, t.TempDir()) {
		t.Error("InsideWorkTree = true outside any repository")
	}
	// The .git directory is inside the repository but not the work tree.
	if InsideWorkTree(ctx, filepath.Join(dir, ".git")) {
		t.Error("InsideWorkTree = true inside the .git directory")
	}
}

func TestLocalBranchExists(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)
	ctx := context.Background()

	exists, err := repo.LocalBranchExists(ctx, "main")
	if err != nil {
		t.Fatalf("LocalBranchExists(main): %v", err)
	}
	if !exists {
		t.Error("main should exist")
	}

	exists, err = repo.LocalBranchExists(ctx, "no-such-branch")
	if err != nil {
		t.Fatalf("LocalBranchExists(no-such-branch): %v", err)
	}
	if exists {
		t.Error("no-such-branch should not exist")
	}
}

func TestRemoteBranchExists(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)
	ctx := context.Background()

	// Simulate a remote-tracking ref without a network remote.
	if _, err := repo.Run(ctx, "update-ref", "refs/remotes/origin/release", "main"); err != nil {
		t.Fatalf("update-ref: %v", err)
	}

	exists, err := repo.RemoteBranchExists(ctx, "origin", "release")
	if err != nil {
		t.Fatalf("RemoteBranchExists(origin, release): %v", err)
	}
	if !exists {
		t.Error("origin/release should exist")
	}

	exists, err = repo.RemoteBranchExists(ctx, "origin", "absent")
	if err != nil {
		t.Fatalf("RemoteBranchExists(origin, absent): %v", err)
	}
	if exists {
		t.Error("origin/absent should not exist")
	}
}

func TestListBranches(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)
	ctx := context.Background()

	if _, err := repo.Run(ctx, "branch", "feature/extra"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if _, err := repo.Run(ctx, "update-ref", "refs/remotes/origin/remote-only", "main"); err != nil {
		t.Fatalf("update-ref: %v", err)
	}
	// A remote-tracking ref that shadows a local branch must not
	// produce a duplicate.
	if _, err := repo.Run(ctx, "update-ref", "refs/remotes/origin/main", "main"); err != nil {
		t.Fatalf("update-ref: %v", err)
	}

	branches, err := repo.ListBranches(ctx)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}

	counts := make(map[string]int)
	for _, branch := range branches {
		counts[branch]++
	}

	for _, want := range []string{"main", "feature/extra", "remote-only"} {
		if counts[want] != 1 {
			t.Errorf("branch %q appears %d times, want exactly once (all: %v)", want, counts[want], branches)
		}
	}
}

func TestRepository_RunLocked(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	repo := NewRepository(dir)
	lockPath := filepath.Join(t.TempDir(), "git.lock")

	output, err := repo.RunLocked(context.Background(), lockPath, "branch", "--list")
	if err != nil {
		t.Fatalf("RunLocked(branch --list): %v", err)
	}
	if !strings.Contains(output, "main") {
		t.Errorf("branch list output = %q, want to contain 'main'", output)
	}

	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestRepository_Command(t *testing.T) {
	t.Parallel()

	repo := NewRepository("/some/dir")

	cmd := repo.Command(context.Background(), "status", "--porcelain")

	expectedArgs := []string{"git", "-C", "/some/dir", "status", "--porcelain"}
	if len(cmd.Args) != len(expectedArgs) {
		t.Fatalf("cmd.Args = %v, want %v", cmd.Args, expectedArgs)
	}
	for i, want := range expectedArgs {
		if cmd.Args[i] != want {
			t.Errorf("cmd.Args[%d] = %q, want %q", i, cmd.Args[i], want)
		}
	}
}

func TestRepository_Name(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir  string
		want string
	}{
		{"/work/checkout/app", "app"},
		{"/work/checkout/app.git", "app"},
		{"/app", "app"},
	}
	for _, test := range tests {
		if got := NewRepository(test.dir).Name(); got != test.want {
			t.Errorf("Name(%q) = %q, want %q", test.dir, got, test.want)
		}
	}
}
