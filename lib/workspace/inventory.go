// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// WindowID identifies one window in the window manager's inventory.
// Identifiers are opaque: aerospace emits small integers, other tools
// may emit anything printable.
type WindowID string

// Snapshot is a set of window identifiers taken at one instant.
type Snapshot map[WindowID]struct{}

// Contains reports whether id is part of the snapshot.
func (s Snapshot) Contains(id WindowID) bool {
	_, ok := s[id]
	return ok
}

// newSince returns the identifiers present in s but not in before,
// ordered lowest first. Identifiers that parse as integers sort
// numerically, everything else sorts after them lexicographically.
func (s Snapshot) newSince(before Snapshot) []WindowID {
	var fresh []WindowID
	for id := range s {
		if !before.Contains(id) {
			fresh = append(fresh, id)
		}
	}
	for i := 1; i < len(fresh); i++ {
		for j := i; j > 0 && lessWindowID(fresh[j], fresh[j-1]); j-- {
			fresh[j], fresh[j-1] = fresh[j-1], fresh[j]
		}
	}
	return fresh
}

func lessWindowID(a, b WindowID) bool {
	an, aerr := strconv.Atoi(string(a))
	bn, berr := strconv.Atoi(string(b))
	switch {
	case aerr == nil && berr == nil:
		return an < bn
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// Inventory lists the windows an application currently has open.
type Inventory interface {
	List(ctx context.Context, appName string) (Snapshot, error)
}

// CommandInventory runs a configured argv to list windows. The command
// must print one window per line, either "<id>\t<app name>" or a bare
// "<id>" when the tool applies the application filter itself. The
// placeholder {{app}} in any argv element is replaced with the
// application name before the command runs.
type CommandInventory struct {
	argv []string
}

// NewCommandInventory returns an inventory backed by the given argv.
func NewCommandInventory(argv []string) (*CommandInventory, error) {
	if len(argv) == 0 {
		return nil, errors.New("window list command is empty")
	}
	return &CommandInventory{argv: argv}, nil
}

// List runs the list command and returns the identifiers of windows
// whose application column matches appName. Lines without an
// application column are included unconditionally.
func (inv *CommandInventory) List(ctx context.Context, appName string) (Snapshot, error) {
	argv := renderArgv(inv.argv, map[string]string{"app": appName})
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("list windows %q: %w (%s)", strings.Join(argv, " "), err, detail)
	}
	return parseInventory(string(output), appName), nil
}

func parseInventory(output, appName string) Snapshot {
	snapshot := make(Snapshot)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, app, hasApp := strings.Cut(line, "\t")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if hasApp && appName != "" && strings.TrimSpace(app) != appName {
			continue
		}
		snapshot[WindowID(id)] = struct{}{}
	}
	return snapshot
}

// renderArgv substitutes {{name}} placeholders in every argv element.
// Unknown placeholders are left verbatim.
func renderArgv(argv []string, vars map[string]string) []string {
	rendered := make([]string, len(argv))
	for i, arg := range argv {
		for name, value := range vars {
			arg = strings.ReplaceAll(arg, "{{"+name+"}}", value)
		}
		rendered[i] = arg
	}
	return rendered
}
