// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/drydock-dev/drydock/lib/clock"
	"github.com/drydock-dev/drydock/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// listStep scripts one inventory poll: either a snapshot or an error.
type listStep struct {
	snap Snapshot
	err  error
}

// scriptedInventory replays a fixed sequence of poll results. Polls
// past the end of the script repeat the last step.
type scriptedInventory struct {
	mu    sync.Mutex
	steps []listStep
	calls int
}

func (inv *scriptedInventory) List(ctx context.Context, appName string) (Snapshot, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.calls++
	index := inv.calls - 1
	if index >= len(inv.steps) {
		index = len(inv.steps) - 1
	}
	step := inv.steps[index]
	return step.snap, step.err
}

func (inv *scriptedInventory) callCount() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.calls
}

func snap(ids ...WindowID) Snapshot {
	s := make(Snapshot, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

type waitOutcome struct {
	id WindowID
	ok bool
}

// startWait runs WaitForNew in a goroutine and returns the channel its
// outcome arrives on.
func startWait(t *testing.T, w *Watcher, before Snapshot) <-chan waitOutcome {
	t.Helper()
	outcomes := make(chan waitOutcome, 1)
	go func() {
		id, ok := w.WaitForNew(t.Context(), "MyApp", before)
		outcomes <- waitOutcome{id: id, ok: ok}
	}()
	return outcomes
}

// tick unblocks exactly one pending clock pause.
func tick(fake *clock.FakeClock, d time.Duration) {
	fake.WaitForTimers(1)
	fake.Advance(d)
}

func TestWaitForNewDetectsWindowOnLaterPoll(t *testing.T) {
	t.Parallel()

	inventory := &scriptedInventory{steps: []listStep{
		{snap: snap("1", "2")},
		{snap: snap("1", "2")},
		{snap: snap("1", "2", "3")},
	}}
	fake := clock.Fake(time.Unix(0, 0))
	watcher := NewWatcher(inventory, WatcherOptions{
		Attempts: 10,
		Interval: 2 * time.Second,
		Settle:   2 * time.Second,
	}, fake, discardLogger())

	outcomes := startWait(t, watcher, snap("1", "2"))

	for range 3 {
		tick(fake, 2*time.Second)
	}
	// Third poll saw the window; the remaining pause is the settle.
	tick(fake, 2*time.Second)

	outcome := testutil.RequireReceive(t, outcomes, 5*time.Second, "waiting for detection")
	if !outcome.ok {
		t.Fatalf("WaitForNew reported no window")
	}
	if outcome.id != "3" {
		t.Errorf("detected window = %q, want %q", outcome.id, "3")
	}
	if calls := inventory.callCount(); calls != 3 {
		t.Errorf("inventory polled %d times, want 3", calls)
	}
}

func TestWaitForNewExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	inventory := &scriptedInventory{steps: []listStep{
		{snap: snap("1", "2")},
	}}
	fake := clock.Fake(time.Unix(0, 0))
	watcher := NewWatcher(inventory, WatcherOptions{
		Attempts: 4,
		Interval: 2 * time.Second,
		Settle:   2 * time.Second,
	}, fake, discardLogger())

	outcomes := startWait(t, watcher, snap("1", "2"))

	for range 4 {
		tick(fake, 2*time.Second)
	}

	outcome := testutil.RequireReceive(t, outcomes, 5*time.Second, "waiting for budget exhaustion")
	if outcome.ok {
		t.Fatalf("WaitForNew = %q, want no window", outcome.id)
	}
	if calls := inventory.callCount(); calls != 4 {
		t.Errorf("inventory polled %d times, want 4", calls)
	}
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("%d clock waiters still pending after exhaustion", pending)
	}
}

func TestWaitForNewNeverReturnsBaselineWindow(t *testing.T) {
	t.Parallel()

	// Window 3 sorts below baseline window 5, but 5 must not win: it
	// existed before the build was triggered.
	inventory := &scriptedInventory{steps: []listStep{
		{snap: snap("5", "3")},
	}}
	fake := clock.Fake(time.Unix(0, 0))
	watcher := NewWatcher(inventory, WatcherOptions{
		Attempts: 3,
		Interval: time.Second,
	}, fake, discardLogger())

	outcomes := startWait(t, watcher, snap("5"))
	tick(fake, time.Second)

	outcome := testutil.RequireReceive(t, outcomes, 5*time.Second, "waiting for detection")
	if !outcome.ok || outcome.id != "3" {
		t.Fatalf("WaitForNew = (%q, %t), want (%q, true)", outcome.id, outcome.ok, "3")
	}
}

func TestWaitForNewPicksLowestIdentifier(t *testing.T) {
	t.Parallel()

	inventory := &scriptedInventory{steps: []listStep{
		{snap: snap("12", "9", "3")},
	}}
	fake := clock.Fake(time.Unix(0, 0))
	watcher := NewWatcher(inventory, WatcherOptions{
		Attempts: 3,
		Interval: time.Second,
	}, fake, discardLogger())

	outcomes := startWait(t, watcher, snap())
	tick(fake, time.Second)

	outcome := testutil.RequireReceive(t, outcomes, 5*time.Second, "waiting for detection")
	if outcome.id != "3" {
		t.Errorf("detected window = %q, want numeric minimum %q", outcome.id, "3")
	}
}

func TestWaitForNewSurvivesInventoryErrors(t *testing.T) {
	t.Parallel()

	inventory := &scriptedInventory{steps: []listStep{
		{err: errors.New("tool crashed")},
		{err: errors.New("tool crashed")},
		{snap: snap("7")},
	}}
	fake := clock.Fake(time.Unix(0, 0))
	watcher := NewWatcher(inventory, WatcherOptions{
		Attempts: 5,
		Interval: time.Second,
	}, fake, discardLogger())

	outcomes := startWait(t, watcher, snap())
	for range 3 {
		tick(fake, time.Second)
	}

	outcome := testutil.RequireReceive(t, outcomes, 5*time.Second, "waiting for detection")
	if !outcome.ok || outcome.id != "7" {
		t.Fatalf("WaitForNew = (%q, %t), want (%q, true)", outcome.id, outcome.ok, "7")
	}
	if calls := inventory.callCount(); calls != 3 {
		t.Errorf("inventory polled %d times, want 3", calls)
	}
}

func TestSnapshotNewSince(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current Snapshot
		before  Snapshot
		want    []WindowID
	}{
		{
			name:    "no change",
			current: snap("1", "2"),
			before:  snap("1", "2"),
			want:    nil,
		},
		{
			name:    "numeric ordering",
			current: snap("12", "9", "101"),
			before:  snap(),
			want:    []WindowID{"9", "12", "101"},
		},
		{
			name:    "numeric before lexicographic",
			current: snap("beta", "10", "alpha"),
			before:  snap(),
			want:    []WindowID{"10", "alpha", "beta"},
		},
		{
			name:    "baseline excluded",
			current: snap("1", "2", "3"),
			before:  snap("2"),
			want:    []WindowID{"1", "3"},
		},
		{
			name:    "shrunk inventory",
			current: snap("1"),
			before:  snap("1", "2"),
			want:    nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := test.current.newSince(test.before)
			if len(got) != len(test.want) {
				t.Fatalf("newSince = %v, want %v", got, test.want)
			}
			for i := range got {
				if got[i] != test.want[i] {
					t.Fatalf("newSince = %v, want %v", got, test.want)
				}
			}
		})
	}
}
