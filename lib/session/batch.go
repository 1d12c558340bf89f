// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/drydock-dev/drydock/lib/buildrunner"
	"github.com/drydock-dev/drydock/lib/worktree"
)

// BranchResult is one branch's outcome in a provisioning batch.
type BranchResult struct {
	// Branch is the ref as given on the command line.
	Branch string

	// Environment is the provisioned worktree. Zero when the branch
	// failed before its environment resolved.
	Environment worktree.Environment

	// Session describes the branch's session. Zero when the branch
	// failed before session registration.
	Session Record

	// Err is the failure that stopped this branch, nil on success.
	Err error
}

// BatchState threads one invocation's accumulating outcome through the
// per-branch loop: the ordinal-tracking registry, the build queue, and
// the per-branch results. There is no package-level mutable state; a
// batch is built, consumed, and discarded within a single run.
//
// Every job in Jobs corresponds to exactly one created session; reused
// sessions and failed branches never enqueue. The Record* methods are
// the only writers, which is what keeps that pairing true.
type BatchState struct {
	Registry *Registry
	Jobs     []buildrunner.Job
	Results  []BranchResult
}

// NewBatchState returns an empty batch over the given registry.
func NewBatchState(registry *Registry) *BatchState {
	return &BatchState{Registry: registry}
}

// RecordFailure marks branch as failed. The loop continues; one broken
// ref never blocks the rest of the batch.
func (b *BatchState) RecordFailure(branch string, err error) {
	b.Results = append(b.Results, BranchResult{Branch: branch, Err: err})
}

// RecordReused records a branch that resolved to a pre-existing
// session. No ordinal is consumed and no job is enqueued.
func (b *BatchState) RecordReused(branch string, env worktree.Environment, record Record) {
	b.Results = append(b.Results, BranchResult{Branch: branch, Environment: env, Session: record})
}

// RecordCreated commits a freshly launched session to the registry and
// enqueues its build job. The job's workspace is the session's ordinal.
func (b *BatchState) RecordCreated(branch string, env worktree.Environment, record Record) {
	b.Registry.Created(record.SessionName)
	b.Results = append(b.Results, BranchResult{Branch: branch, Environment: env, Session: record})
	b.Jobs = append(b.Jobs, buildrunner.Job{
		Branch:          branch,
		EnvironmentPath: env.Path,
		Workspace:       record.Ordinal,
		SessionName:     record.SessionName,
		ShellPane:       record.Panes.Shell,
	})
}

// FailedCount returns how many branches in the batch failed.
func (b *BatchState) FailedCount() int {
	failed := 0
	for _, result := range b.Results {
		if result.Err != nil {
			failed++
		}
	}
	return failed
}
