// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.After, or time.Sleep directly. In production, Real()
// provides the standard library behavior. In tests, Fake() provides a
// deterministic clock that advances only when Advance is called.
//
// The surface is deliberately small: the window watcher's polling loop
// and the build runner's settle pauses need Now, Sleep, and After, and
// nothing else.
//
// # Wiring Pattern
//
// Add a Clock field to structs that pause or poll:
//
//	type Watcher struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	w := &Watcher{clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	w := &Watcher{clock: c}
//	// ... start the polling goroutine ...
//	c.WaitForTimers(1)         // wait for the loop to register its pause
//	c.Advance(2 * time.Second) // fire it deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep or After on a FakeClock, it registers a
// pending waiter. Use WaitForTimers to block until a specific number of
// waiters are registered before calling Advance. This eliminates the
// race between registration and time advancement that plagues tests
// using time.Sleep for synchronization.
package clock
