// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package toolprofile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write profile %s: %v", name, err)
	}
	return path
}

func TestParseJSONCFeatures(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		// The agent command.
		"agent": ["aider", "--model", "gpt-5"],
		/* Planning prompt template. */
		"prompt": "Work on {{ticket}}",
		"git_ui": ["tig"], // trailing comma next
	}`)

	profile, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(profile.Agent) != 3 || profile.Agent[0] != "aider" {
		t.Errorf("agent = %v, want [aider --model gpt-5]", profile.Agent)
	}
	if profile.Prompt != "Work on {{ticket}}" {
		t.Errorf("prompt = %q", profile.Prompt)
	}
	if len(profile.GitUI) != 1 || profile.GitUI[0] != "tig" {
		t.Errorf("git_ui = %v, want [tig]", profile.GitUI)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"agent": [}`)); err == nil {
		t.Fatal("expected error for malformed profile")
	}
}

func TestLoadSetsNameFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeProfile(t, dir, "aider.jsonc", `{"agent": ["aider"], "git_ui": ["tig"]}`)

	profile, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if profile.Name != "aider" {
		t.Errorf("name = %q, want %q", profile.Name, "aider")
	}
}

func TestNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/home/user/.config/drydock/profiles/aider.jsonc", "aider"},
		{"profiles/claude.json", "claude"},
		{"bare", "bare"},
	}
	for _, test := range tests {
		if got := NameFromPath(test.path); got != test.want {
			t.Errorf("NameFromPath(%q) = %q, want %q", test.path, got, test.want)
		}
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeProfile(t, dir, "aider.jsonc", `{"agent": ["aider"], "git_ui": ["tig"]}`)
	writeProfile(t, dir, "goose.json", `{"agent": ["goose"], "git_ui": ["gitui"]}`)
	writeProfile(t, dir, "notes.txt", `not a profile`)

	profiles, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	if len(profiles) != 2 {
		t.Fatalf("loaded %d profiles, want 2: %v", len(profiles), profiles)
	}
	if profiles["aider"] == nil || profiles["goose"] == nil {
		t.Errorf("missing expected profiles, got %v", profiles)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	t.Parallel()

	profiles, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadDir on missing dir: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected empty map, got %v", profiles)
	}
}

func TestLoadDirFailsOnBadProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeProfile(t, dir, "broken.jsonc", `{"agent": `)

	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected error for unparseable profile file")
	}
}

func TestSelectBuiltinFallback(t *testing.T) {
	t.Parallel()

	profile, err := Select(filepath.Join(t.TempDir(), "absent"), "claude")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if profile.Name != "claude" {
		t.Errorf("name = %q, want claude", profile.Name)
	}
	if len(profile.Agent) == 0 || profile.Agent[0] != "claude" {
		t.Errorf("agent = %v, want claude", profile.Agent)
	}
	if len(profile.GitUI) == 0 || profile.GitUI[0] != "lazygit" {
		t.Errorf("git_ui = %v, want lazygit", profile.GitUI)
	}
}

func TestSelectPrefersOnDiskOverBuiltin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeProfile(t, dir, "claude.jsonc",
		`{"agent": ["claude", "--dangerously-skip-permissions"], "git_ui": ["lazygit"]}`)

	profile, err := Select(dir, "claude")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(profile.Agent) != 2 {
		t.Errorf("agent = %v, want the on-disk override", profile.Agent)
	}
}

func TestSelectUnknownProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeProfile(t, dir, "aider.jsonc", `{"agent": ["aider"], "git_ui": ["tig"]}`)

	_, err := Select(dir, "cursor")
	if err == nil {
		t.Fatal("expected error for unknown profile")
	}
	// The error lists what the user could have picked.
	for _, name := range []string{"aider", "claude"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention available profile %q", err, name)
		}
	}
}

func TestSelectRejectsInvalidProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeProfile(t, dir, "empty.jsonc", `{}`)

	if _, err := Select(dir, "empty"); err == nil {
		t.Fatal("expected error for profile with no commands")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	full := &Profile{Agent: []string{"claude"}, GitUI: []string{"lazygit"}}
	if issues := full.Validate(); len(issues) != 0 {
		t.Errorf("valid profile has issues: %v", issues)
	}

	empty := &Profile{}
	issues := empty.Validate()
	if len(issues) != 2 {
		t.Errorf("empty profile issues = %v, want agent and git_ui", issues)
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"ticket": "DCT-46934",
		"branch": "feature/DCT-46934-login-fix",
		"label":  "DCT-46934 Login Fix",
	}

	tests := []struct {
		input string
		want  string
	}{
		{"Work on {{ticket}}", "Work on DCT-46934"},
		{"{{branch}} ({{label}})", "feature/DCT-46934-login-fix (DCT-46934 Login Fix)"},
		{"no placeholders", "no placeholders"},
		{"unknown {{thing}} stays", "unknown {{thing}} stays"},
	}
	for _, test := range tests {
		if got := Expand(test.input, vars); got != test.want {
			t.Errorf("Expand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestAgentCommandAppendsPrompt(t *testing.T) {
	t.Parallel()

	profile := &Profile{
		Agent:  []string{"claude"},
		Prompt: "Plan {{ticket}} first",
		GitUI:  []string{"lazygit"},
	}

	command := profile.AgentCommand(map[string]string{"ticket": "DCT-1"})
	if len(command) != 2 || command[1] != "Plan DCT-1 first" {
		t.Errorf("command = %v, want prompt appended", command)
	}
}

func TestAgentCommandSkipsTicketPromptWithoutTicket(t *testing.T) {
	t.Parallel()

	profile := &Profile{
		Agent:  []string{"claude"},
		Prompt: "Plan {{ticket}} first",
		GitUI:  []string{"lazygit"},
	}

	command := profile.AgentCommand(map[string]string{"ticket": "", "branch": "main"})
	if len(command) != 1 {
		t.Errorf("command = %v, want bare agent argv (ticket prompt skipped)", command)
	}
}

func TestAgentCommandKeepsTicketFreePrompt(t *testing.T) {
	t.Parallel()

	profile := &Profile{
		Agent:  []string{"claude"},
		Prompt: "Work on branch {{branch}}",
	}

	command := profile.AgentCommand(map[string]string{"ticket": "", "branch": "docs/cleanup"})
	if len(command) != 2 || command[1] != "Work on branch docs/cleanup" {
		t.Errorf("command = %v, want branch prompt appended", command)
	}
}

func TestAgentCommandExpandsArgvPlaceholders(t *testing.T) {
	t.Parallel()

	profile := &Profile{
		Agent: []string{"agent", "--session-tag", "{{label}}"},
	}

	command := profile.AgentCommand(map[string]string{"label": "DCT-9 Fix"})
	if command[2] != "DCT-9 Fix" {
		t.Errorf("argv placeholder not expanded: %v", command)
	}
}
