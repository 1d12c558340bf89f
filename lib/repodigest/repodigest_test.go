// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package repodigest

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDigestStable(t *testing.T) {
	first, err := Digest("/work/checkout/app")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	second, err := Digest("/work/checkout/app")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if first != second {
		t.Errorf("digest not stable: %q vs %q", first, second)
	}
}

func TestDigestShape(t *testing.T) {
	digest, err := Digest("/work/checkout/app")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if len(digest) != 12 {
		t.Errorf("digest length = %d, want 12", len(digest))
	}
	if digest != strings.ToLower(digest) {
		t.Errorf("digest %q contains uppercase characters", digest)
	}
	for _, r := range digest {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("digest %q contains non-hex character %q", digest, r)
		}
	}
}

func TestDigestDistinguishesRepositories(t *testing.T) {
	first, err := Digest("/work/checkout/app")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	second, err := Digest("/work/checkout/app-copy")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if first == second {
		t.Errorf("different roots produced the same digest %q", first)
	}
}

func TestDigestCleansPath(t *testing.T) {
	clean, err := Digest("/work/checkout/app")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	dirty, err := Digest("/work/checkout/../checkout/app/")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if clean != dirty {
		t.Errorf("equivalent paths produced different digests: %q vs %q", clean, dirty)
	}
}

func TestStateDirHonorsXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")

	stateDir, err := StateDir("/work/checkout/app")
	if err != nil {
		t.Fatalf("StateDir: %v", err)
	}
	digest, err := Digest("/work/checkout/app")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	want := filepath.Join("/custom/state", "drydock", digest)
	if stateDir != want {
		t.Errorf("StateDir = %q, want %q", stateDir, want)
	}
}

func TestStateDirDefaultsUnderHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/shipwright")

	stateDir, err := StateDir("/work/checkout/app")
	if err != nil {
		t.Fatalf("StateDir: %v", err)
	}
	if !strings.HasPrefix(stateDir, filepath.Join("/home/shipwright", ".local", "state", "drydock")) {
		t.Errorf("StateDir = %q, want it under ~/.local/state/drydock", stateDir)
	}
}

func TestSocketPathInsideStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")

	socketPath, err := SocketPath("/work/checkout/app")
	if err != nil {
		t.Fatalf("SocketPath: %v", err)
	}
	stateDir, err := StateDir("/work/checkout/app")
	if err != nil {
		t.Fatalf("StateDir: %v", err)
	}

	if filepath.Dir(socketPath) != stateDir {
		t.Errorf("socket %q is not directly inside state dir %q", socketPath, stateDir)
	}
	if filepath.Base(socketPath) != "tmux.sock" {
		t.Errorf("socket file name = %q, want tmux.sock", filepath.Base(socketPath))
	}
}
