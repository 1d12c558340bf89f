// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// AssignResult reports the outcome of one workspace assignment. A nil
// field means that step succeeded or was not configured. Callers that
// treat assignment as best-effort inspect the result, log it, and move
// on; the failure never propagates as an error return.
type AssignResult struct {
	// Move is the outcome of the move command.
	Move error

	// FollowUp is the outcome of the optional follow-up command.
	FollowUp error
}

// OK reports whether every configured step succeeded.
func (r AssignResult) OK() bool {
	return r.Move == nil && r.FollowUp == nil
}

// Assigner relocates a window to a numbered workspace by running
// configured argv templates. The placeholders {{window}} and
// {{workspace}} are substituted into every argv element.
type Assigner struct {
	moveCommand     []string
	followUpCommand []string
	logger          *slog.Logger
}

// NewAssigner returns an Assigner running moveCommand for each
// assignment and followUpCommand (may be empty) afterwards.
func NewAssigner(moveCommand, followUpCommand []string, logger *slog.Logger) *Assigner {
	return &Assigner{
		moveCommand:     moveCommand,
		followUpCommand: followUpCommand,
		logger:          logger,
	}
}

// Assign moves the window to the given workspace and runs the
// follow-up command if one is configured. The follow-up runs even when
// the move fails: a "focus back" style follow-up is wanted regardless.
func (a *Assigner) Assign(ctx context.Context, window WindowID, workspace int) AssignResult {
	vars := map[string]string{
		"window":    string(window),
		"workspace": strconv.Itoa(workspace),
	}

	var result AssignResult
	result.Move = a.run(ctx, renderArgv(a.moveCommand, vars))
	if len(a.followUpCommand) > 0 {
		result.FollowUp = a.run(ctx, renderArgv(a.followUpCommand, vars))
	}

	if result.OK() {
		a.logger.Debug("window assigned",
			"window", window,
			"workspace", workspace)
	}
	return result
}

func (a *Assigner) run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%q: %w (%s)", strings.Join(argv, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
