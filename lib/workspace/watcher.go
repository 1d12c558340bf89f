// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/drydock-dev/drydock/lib/clock"
)

// WatcherOptions bound the polling loop.
type WatcherOptions struct {
	// Attempts is the number of inventory polls before giving up.
	Attempts int

	// Interval is the pause before each poll.
	Interval time.Duration

	// Settle is the pause after a window is detected, giving the
	// window manager time to finish registering it before a move
	// command targets it.
	Settle time.Duration
}

// Watcher polls an Inventory until a window appears that was absent
// from a baseline snapshot. The attempt budget is the only cancellation
// mechanism: a build that never opens a window costs one full budget
// and nothing more.
type Watcher struct {
	inventory Inventory
	options   WatcherOptions
	clock     clock.Clock
	logger    *slog.Logger
}

// NewWatcher returns a Watcher over the given inventory.
func NewWatcher(inventory Inventory, options WatcherOptions, clk clock.Clock, logger *slog.Logger) *Watcher {
	return &Watcher{
		inventory: inventory,
		options:   options,
		clock:     clk,
		logger:    logger,
	}
}

// WaitForNew polls until the inventory for appName contains a window
// absent from before, then pauses for the settle duration and returns
// that window's identifier. When several new windows appear in the same
// poll the lowest identifier wins, so repeated runs against the same
// inventory pick the same window. Returns false when the attempt budget
// is exhausted.
//
// An identifier present in before is never returned, even if it is the
// only thing the inventory reports.
func (w *Watcher) WaitForNew(ctx context.Context, appName string, before Snapshot) (WindowID, bool) {
	for attempt := 1; attempt <= w.options.Attempts; attempt++ {
		w.clock.Sleep(w.options.Interval)

		current, err := w.inventory.List(ctx, appName)
		if err != nil {
			// Transient tool failures burn an attempt, not the run.
			w.logger.Debug("window inventory poll failed",
				"app", appName,
				"attempt", attempt,
				"error", err)
			continue
		}

		fresh := current.newSince(before)
		if len(fresh) == 0 {
			continue
		}
		id := fresh[0]
		w.logger.Debug("new window detected",
			"app", appName,
			"window", id,
			"attempt", attempt,
			"candidates", len(fresh))
		w.clock.Sleep(w.options.Settle)
		return id, true
	}

	w.logger.Debug("no new window within attempt budget",
		"app", appName,
		"attempts", w.options.Attempts)
	return "", false
}
