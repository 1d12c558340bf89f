// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package worktree provisions per-branch development environments: one
// git worktree per branch, living under a shared worktrees directory
// and named by the branch's filesystem-safe identifier.
//
// Provisioning is idempotent and resolves in a fixed order: an existing
// directory is reused untouched, then a local ref is attached, then a
// remote-tracking ref is attached (creating a local tracking branch),
// and only when no ref exists anywhere is a new branch created. The
// provisioner never deletes an environment.
package worktree

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drydock-dev/drydock/lib/branchname"
	"github.com/drydock-dev/drydock/lib/git"
)

// State describes how an environment came to exist during provisioning.
type State string

const (
	// StateReused means the worktree directory already existed; nothing
	// was touched.
	StateReused State = "reused"
	// StateAttachedLocal means a worktree was attached to an existing
	// local branch.
	StateAttachedLocal State = "attached-local"
	// StateAttachedRemote means a worktree was attached to a
	// remote-tracking ref, with a new local branch tracking it.
	StateAttachedRemote State = "attached-remote"
	// StateCreatedNew means neither ref existed and a new branch was
	// created with the worktree.
	StateCreatedNew State = "created-new"
)

// Environment is a provisioned per-branch working copy.
type Environment struct {
	// Path is the worktree directory.
	Path string
	// Branch is the original branch ref, path separators intact.
	Branch string
	// State records the resolution outcome.
	State State
}

// Provisioner creates environments under a fixed worktrees directory.
type Provisioner struct {
	repo     *git.Repository
	dir      string
	remote   string
	lockPath string
	logger   *slog.Logger
}

// NewProvisioner returns a Provisioner writing worktrees into dir.
// Remote refs are looked up on "origin". Worktree mutations run under
// the flock at lockPath because "git worktree add" rewrites shared
// .git metadata.
func NewProvisioner(repo *git.Repository, dir, lockPath string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		repo:     repo,
		dir:      dir,
		remote:   "origin",
		lockPath: lockPath,
		logger:   logger,
	}
}

// Path returns the environment directory a branch resolves to, whether
// or not it exists yet.
func (p *Provisioner) Path(name branchname.Name) string {
	return filepath.Join(p.dir, name.Safe)
}

// Provision resolves an environment for the branch, creating it if
// needed. Resolution stops at the first match:
//
//  1. the target directory exists → reused, no mutation
//  2. the local branch exists → worktree attached to it
//  3. the remote branch exists → worktree attached, local branch tracks it
//  4. otherwise → new branch created with the worktree
//
// A failure applies to this branch only; callers decide whether to
// continue with their remaining branches.
func (p *Provisioner) Provision(ctx context.Context, name branchname.Name) (Environment, error) {
	path := p.Path(name)
	env := Environment{Path: path, Branch: name.Branch}

	if _, err := os.Stat(path); err == nil {
		p.logger.Debug("environment already exists", "branch", name.Branch, "path", path)
		env.State = StateReused
		return env, nil
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return env, fmt.Errorf("creating worktrees directory %s: %w", p.dir, err)
	}

	localExists, err := p.repo.LocalBranchExists(ctx, name.Branch)
	if err != nil {
		return env, fmt.Errorf("provisioning %s: %w", name.Branch, err)
	}
	if localExists {
		if _, err := p.repo.RunLocked(ctx, p.lockPath, "worktree", "add", path, name.Branch); err != nil {
			return env, fmt.Errorf("attaching worktree for %s: %w", name.Branch, err)
		}
		p.logger.Debug("attached worktree to local branch", "branch", name.Branch, "path", path)
		env.State = StateAttachedLocal
		return env, nil
	}

	remoteExists, err := p.repo.RemoteBranchExists(ctx, p.remote, name.Branch)
	if err != nil {
		return env, fmt.Errorf("provisioning %s: %w", name.Branch, err)
	}
	if remoteExists {
		remoteRef := p.remote + "/" + name.Branch
		if _, err := p.repo.RunLocked(ctx, p.lockPath,
			"worktree", "add", "--track", "-b", name.Branch, path, remoteRef); err != nil {
			return env, fmt.Errorf("attaching worktree for %s: %w", remoteRef, err)
		}
		p.logger.Debug("attached worktree to remote branch",
			"branch", name.Branch, "remote", p.remote, "path", path)
		env.State = StateAttachedRemote
		return env, nil
	}

	if _, err := p.repo.RunLocked(ctx, p.lockPath, "worktree", "add", "-b", name.Branch, path); err != nil {
		return env, fmt.Errorf("creating branch %s with worktree: %w", name.Branch, err)
	}
	p.logger.Debug("created new branch with worktree", "branch", name.Branch, "path", path)
	env.State = StateCreatedNew
	return env, nil
}
