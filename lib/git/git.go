// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for repository
// operations. Drydock uses git for environment provisioning: resolving
// refs and creating per-branch worktrees. All commands target a
// specific repository directory via the -C flag, which is
// automatically injected by all Repository methods, analogous to how
// lib/tmux injects -S for its server socket.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory; callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Find locates the repository containing startDir by asking git for
// the work tree's top level. Returns an error when startDir is not
// inside a git work tree.
func Find(ctx context.Context, startDir string) (*Repository, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "-C", startDir, "rev-parse", "--show-toplevel")
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("%s is not inside a git work tree: %w (stderr: %s)",
			startDir, err, strings.TrimSpace(stderr.String()))
	}

	return NewRepository(strings.TrimSpace(stdout.String())), nil
}

// InsideWorkTree reports whether startDir is inside a git work tree.
// A bare repository or the .git directory itself reports false, which
// Find cannot distinguish from "no repository here at all".
func InsideWorkTree(ctx context.Context, startDir string) bool {
	var stdout bytes.Buffer
	command := exec.CommandContext(ctx, "git", "-C", startDir, "rev-parse", "--is-inside-work-tree")
	command.Stdout = &stdout
	if err := command.Run(); err != nil {
		return false
	}
	return strings.TrimSpace(stdout.String()) == "true"
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Name returns the repository's short name: the base name of its
// directory. Used to derive the worktree container directory.
func (r *Repository) Name() string {
	return strings.TrimSuffix(filepath.Base(r.dir), ".git")
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// RunLocked executes a git command while holding an exclusive advisory
// lock on lockPath. Worktree creation mutates the shared .git
// directory, so concurrent drydock invocations against the same
// repository must serialize their mutations. The lock file is created
// if missing and held for the duration of the command.
//
// Returns combined stdout and stderr output because git writes
// progress information to stderr (e.g., "Preparing worktree ...").
func (r *Repository) RunLocked(ctx context.Context, lockPath string, args ...string) (string, error) {
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return "", fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return "", fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	fullArgs := append([]string{"-C", r.dir}, args...)
	var output bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &output
	command.Stderr = &output

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (output: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(output.String()))
	}
	return strings.TrimSpace(output.String()), nil
}

// Command returns an *exec.Cmd for a git command without running it.
// The caller gets full control over Stdin, Stdout, Stderr, and
// SysProcAttr before starting the process. The -C flag targeting
// this repository is automatically prepended.
func (r *Repository) Command(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append([]string{"-C", r.dir}, args...)
	return exec.CommandContext(ctx, "git", fullArgs...)
}

// refExists reports whether a fully qualified ref exists. show-ref
// exits 1 for a missing ref, which is a negative answer rather than a
// failure; any other error is real.
func (r *Repository) refExists(ctx context.Context, ref string) (bool, error) {
	_, err := r.Run(ctx, "show-ref", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) && exitError.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

// LocalBranchExists reports whether refs/heads/<branch> exists.
func (r *Repository) LocalBranchExists(ctx context.Context, branch string) (bool, error) {
	return r.refExists(ctx, "refs/heads/"+branch)
}

// RemoteBranchExists reports whether refs/remotes/<remote>/<branch>
// exists. This consults the local remote-tracking refs only; it does
// not contact the remote.
func (r *Repository) RemoteBranchExists(ctx context.Context, remote, branch string) (bool, error) {
	return r.refExists(ctx, "refs/remotes/"+remote+"/"+branch)
}

// ListBranches returns local branch names followed by remote-tracking
// branch names not already present locally, in ref order. Remote HEAD
// pointers are skipped. Used by the interactive picker.
func (r *Repository) ListBranches(ctx context.Context) ([]string, error) {
	output, err := r.Run(ctx, "for-each-ref", "--format=%(refname)", "refs/heads", "refs/remotes")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var branches []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		branches = append(branches, name)
	}

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		switch {
		case strings.HasPrefix(line, "refs/heads/"):
			add(strings.TrimPrefix(line, "refs/heads/"))
		case strings.HasPrefix(line, "refs/remotes/"):
			rest := strings.TrimPrefix(line, "refs/remotes/")
			// Drop the remote name; the remainder is the branch.
			if index := strings.IndexByte(rest, '/'); index >= 0 {
				name := rest[index+1:]
				if name != "HEAD" {
					add(name)
				}
			}
		}
	}
	return branches, nil
}
