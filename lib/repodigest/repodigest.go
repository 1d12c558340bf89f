// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package repodigest derives per-repository namespaces from the
// repository root path.
//
// Drydock scopes everything it touches to one repository: the tmux
// server socket, the runner log, and the build transcripts. Sessions
// for two different clones must never land on the same tmux server,
// and state files must never collide. The namespace is a short keyed
// BLAKE3 digest of the canonicalized root path, so it is stable across
// invocations without drydock persisting any mapping.
package repodigest

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// namespaceKey is the 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures repository-namespace digests can never collide
// with digests computed for another purpose. The byte values are the
// ASCII encoding of the domain name, zero-padded to 32 bytes; readable
// ASCII keeps the key inspectable in hex dumps without sacrificing any
// property of BLAKE3 keyed mode. This is a fixed constant; changing
// it would orphan every existing state directory.
var namespaceKey = [32]byte{
	'd', 'r', 'y', 'd', 'o', 'c', 'k', '.', 'r', 'e', 'p', 'o', '.',
	'n', 'a', 'm', 'e', 's', 'p', 'a', 'c', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// digestLength is the number of hex characters in a namespace digest.
// Six bytes of digest is far beyond what collision-avoidance across a
// developer's clones needs, while keeping socket paths well under the
// 108-byte sun_path limit.
const digestLength = 12

// Digest returns the namespace digest for the repository at root: the
// keyed BLAKE3 hash of the cleaned absolute path, truncated to 12
// lowercase hex characters.
func Digest(root string) (string, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving repository root %s: %w", root, err)
	}

	hasher, err := blake3.NewKeyed(namespaceKey[:])
	if err != nil {
		panic("repodigest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(filepath.Clean(absolute)))
	sum := hasher.Sum(nil)

	return hex.EncodeToString(sum)[:digestLength], nil
}

// StateDir returns the per-repository state directory:
// $XDG_STATE_HOME/drydock/<digest>, falling back to
// ~/.local/state/drydock/<digest>. The directory is not created; call
// config.EnsurePaths (or os.MkdirAll) before writing into it.
func StateDir(root string) (string, error) {
	digest, err := Digest(root)
	if err != nil {
		return "", err
	}

	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory for state: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}

	return filepath.Join(base, "drydock", digest), nil
}

// SocketPath returns the tmux server socket path for the repository:
// <state dir>/tmux.sock. Keeping the socket inside the state directory
// gives each repository an isolated tmux server with no global socket
// registry.
func SocketPath(root string) (string, error) {
	stateDir, err := StateDir(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "tmux.sock"), nil
}
