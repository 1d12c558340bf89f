// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/drydock-dev/drydock/lib/testutil"
)

// NewTestServer creates an isolated tmux server for testing. The server:
//   - Uses a short /tmp path to stay within the 108-byte Unix socket limit
//   - Passes -f /dev/null to prevent loading the user's ~/.tmux.conf
//   - Creates a _guard session running "sleep infinity" to keep the server
//     alive (tmux exits when its last session ends)
//   - Registers t.Cleanup to kill the server when the test completes
//
// Tests skip when tmux is not installed.
//
// All test tmux commands MUST use the returned Server. A bare "tmux"
// command without -S targets the default server, which may be the
// session the developer is working in; killing that server kills their
// terminal.
func NewTestServer(t *testing.T) *Server {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skipf("tmux not available: %v", err)
	}

	socketPath := filepath.Join(testutil.SocketDir(t), "tmux.sock")
	server := NewServer(socketPath, "/dev/null")

	// Create a guard session to keep the server alive. The server starts
	// when the first session is created, and the config is read at that
	// point. "sleep infinity" never exits, so the server survives until
	// our cleanup kills it.
	if _, err := server.NewSession("_guard", "guard", "", "sleep", "infinity"); err != nil {
		t.Fatalf("start tmux test server: %v", err)
	}

	t.Cleanup(func() {
		server.KillServer()
	})

	return server
}
