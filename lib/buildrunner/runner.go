// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package buildrunner

import (
	"context"
	"log/slog"

	"github.com/drydock-dev/drydock/lib/workspace"
)

// KeySender types key strings into a tmux pane.
type KeySender interface {
	SendKeys(target string, keys ...string) error
}

// Capturer reads a pane's content.
type Capturer interface {
	CapturePane(target string, maxLines int) (string, error)
}

// Waiter blocks until a new window appears or its budget runs out.
type Waiter interface {
	WaitForNew(ctx context.Context, appName string, before workspace.Snapshot) (workspace.WindowID, bool)
}

// Mover relocates a window to a workspace, best-effort.
type Mover interface {
	Assign(ctx context.Context, window workspace.WindowID, workspaceNumber int) workspace.AssignResult
}

// Saver persists a session's transcript.
type Saver interface {
	Save(sessionName, content string) (string, error)
}

// Options wires the runner's collaborators. Production passes the tmux
// server, the command inventory, the watcher, the assigner, and the
// transcript store; tests pass fakes.
type Options struct {
	Keys        KeySender
	Capture     Capturer
	Inventory   workspace.Inventory
	Watcher     Waiter
	Assigner    Mover
	Transcripts Saver

	// BuildCommand is the shell line typed into each job's shell pane.
	BuildCommand string

	// AppName filters the window inventory.
	AppName string

	// CaptureLines bounds the transcript tail. Zero captures all.
	CaptureLines int
}

// JobResult records one job's outcome for logging and inspection.
// There is no fatal variant: every field describes something the run
// already decided to survive.
type JobResult struct {
	Job            Job
	TriggerErr     error
	Window         workspace.WindowID
	Found          bool
	Assign         workspace.AssignResult
	TranscriptPath string
	TranscriptErr  error
}

// Runner processes build jobs serially.
type Runner struct {
	options Options
	logger  *slog.Logger
}

// New returns a Runner with the given collaborators.
func New(options Options, logger *slog.Logger) *Runner {
	return &Runner{options: options, logger: logger}
}

// Run processes jobs in order, one at a time. Job k+1's build is not
// triggered until job k's watch, assignment, and transcript capture
// have finished. Every failure is contained to its job; Run always
// processes the full queue.
func (r *Runner) Run(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, 0, len(jobs))
	for i, job := range jobs {
		r.logger.Info("starting build",
			"position", i+1,
			"of", len(jobs),
			"branch", job.Branch,
			"session", job.SessionName,
			"workspace", job.Workspace)
		results = append(results, r.runJob(ctx, job))
	}
	return results
}

func (r *Runner) runJob(ctx context.Context, job Job) JobResult {
	result := JobResult{Job: job}

	before, err := r.options.Inventory.List(ctx, r.options.AppName)
	if err != nil {
		// Without a baseline every current window counts as new;
		// an empty baseline keeps detection working.
		r.logger.Warn("window snapshot failed, using empty baseline",
			"session", job.SessionName,
			"error", err)
		before = workspace.Snapshot{}
	}

	if err := r.options.Keys.SendKeys(job.ShellPane, r.options.BuildCommand, "Enter"); err != nil {
		r.logger.Warn("could not trigger build, skipping job",
			"session", job.SessionName,
			"pane", job.ShellPane,
			"error", err)
		result.TriggerErr = err
		return result
	}

	result.Window, result.Found = r.options.Watcher.WaitForNew(ctx, r.options.AppName, before)
	if result.Found {
		result.Assign = r.options.Assigner.Assign(ctx, result.Window, job.Workspace)
		if !result.Assign.OK() {
			r.logger.Warn("workspace assignment incomplete, continuing",
				"session", job.SessionName,
				"window", result.Window,
				"workspace", job.Workspace,
				"move_error", result.Assign.Move,
				"follow_up_error", result.Assign.FollowUp)
		}
	} else {
		r.logger.Warn("no window appeared within the attempt budget",
			"session", job.SessionName,
			"app", r.options.AppName)
	}

	r.captureTranscript(&result)
	return result
}

func (r *Runner) captureTranscript(result *JobResult) {
	content, err := r.options.Capture.CapturePane(result.Job.ShellPane, r.options.CaptureLines)
	if err != nil {
		r.logger.Warn("transcript capture failed",
			"session", result.Job.SessionName,
			"error", err)
		result.TranscriptErr = err
		return
	}
	result.TranscriptPath, err = r.options.Transcripts.Save(result.Job.SessionName, content)
	if err != nil {
		r.logger.Warn("transcript save failed",
			"session", result.Job.SessionName,
			"error", err)
		result.TranscriptErr = err
	}
}
