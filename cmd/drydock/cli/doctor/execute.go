// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// ExecuteFixes runs the fix action for each fixable failure, updating
// results in place. In dry-run mode, no fixes are executed and an empty
// Outcome is returned.
func ExecuteFixes(ctx context.Context, results []Result, dryRun bool) Outcome {
	if dryRun {
		return Outcome{}
	}

	var outcome Outcome
	for i := range results {
		if results[i].Status != StatusFail || results[i].fix == nil {
			continue
		}
		if err := results[i].fix(ctx); err != nil {
			if isPermissionDenied(err) {
				outcome.PermissionDenied = true
				results[i].Message = fmt.Sprintf("%s (insufficient permissions)", results[i].Message)
			} else {
				results[i].Message = fmt.Sprintf("%s (fix failed: %v)", results[i].Message, err)
			}
		} else {
			results[i].Status = StatusFixed
			outcome.FixedCount++
		}
	}

	return outcome
}

// isPermissionDenied returns true if err wraps EPERM or EACCES.
func isPermissionDenied(err error) bool {
	return errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

// BuildJSON builds the JSON output struct from results and outcome
// metadata.
func BuildJSON(results []Result, dryRun bool, outcome Outcome) JSONOutput {
	anyFailed := false
	for _, result := range results {
		if result.Status == StatusFail {
			anyFailed = true
			break
		}
	}
	return JSONOutput{
		Checks:           results,
		OK:               !anyFailed,
		DryRun:           dryRun,
		PermissionDenied: outcome.PermissionDenied,
	}
}
