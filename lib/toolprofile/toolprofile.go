// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolprofile loads tool profiles: the agent command, its
// planning-prompt template, and the git-UI command launched inside each
// branch session.
//
// Profiles are authored on disk as JSONC files (JSON extended with
// comments and trailing commas), one profile per file, in the
// configuration's profile directory. The file name is the profile name.
// When the directory does not exist, the built-in "claude" profile
// applies, so a fresh installation works with no setup.
//
// Prompt and command arguments may embed {{ticket}}, {{branch}}, and
// {{label}} placeholders; [Expand] substitutes them at launch time and
// leaves unknown placeholders verbatim.
package toolprofile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// Profile describes the tools launched inside a branch session.
type Profile struct {
	// Name identifies the profile. Derived from the file name, not the
	// file content.
	Name string `json:"-"`

	// Agent is the interactive coding agent argv for the agent pane.
	Agent []string `json:"agent"`

	// Prompt is the planning-prompt template appended as the agent's
	// final argument. A template that references {{ticket}} is skipped
	// entirely for branches without a ticket token.
	Prompt string `json:"prompt"`

	// GitUI is the git-inspection tool argv for the git window.
	GitUI []string `json:"git_ui"`
}

// Builtin returns the built-in default profile: the claude agent with a
// ticket-aware planning prompt and lazygit for the git window.
func Builtin() *Profile {
	return &Profile{
		Name:   "claude",
		Agent:  []string{"claude"},
		Prompt: "Plan the work for {{ticket}} on branch {{branch}}: read the relevant code and propose an implementation plan before changing anything.",
		GitUI:  []string{"lazygit"},
	}
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Profile. The caller sets Name.
func Parse(data []byte) (*Profile, error) {
	stripped := jsonc.ToJSON(data)

	var profile Profile
	if err := json.Unmarshal(stripped, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	return &profile, nil
}

// Load reads a JSONC profile file from disk, parses it, and names it
// after the file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	profile, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	profile.Name = NameFromPath(path)
	return profile, nil
}

// LoadDir loads every .jsonc and .json profile in dir, keyed by profile
// name. A missing directory is not an error; it returns an empty map,
// and the built-in profile covers the default. Any unparseable profile
// file is an error: a profile the user wrote must not be silently
// skipped.
func LoadDir(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Profile{}, nil
		}
		return nil, fmt.Errorf("reading profile directory %s: %w", dir, err)
	}

	profiles := make(map[string]*Profile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".jsonc" && ext != ".json" {
			continue
		}

		profile, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		profiles[profile.Name] = profile
	}

	return profiles, nil
}

// NameFromPath extracts a profile name from a file path by stripping
// the directory prefix and the file extension. For example,
// "~/.config/drydock/profiles/aider.jsonc" returns "aider".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	extension := filepath.Ext(base)
	return strings.TrimSuffix(base, extension)
}

// Select returns the named profile from dir, falling back to the
// built-in when the name matches it and no file overrides it. The
// returned profile is validated; a profile with issues is an error
// here, where launching is about to depend on it.
func Select(dir, name string) (*Profile, error) {
	profiles, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	profile, ok := profiles[name]
	if !ok {
		if builtin := Builtin(); name == builtin.Name {
			return builtin, nil
		}

		available := make([]string, 0, len(profiles)+1)
		for profileName := range profiles {
			available = append(available, profileName)
		}
		available = append(available, Builtin().Name)
		sort.Strings(available)
		return nil, fmt.Errorf("profile %q not found in %s (available: %s)",
			name, dir, strings.Join(available, ", "))
	}

	if issues := profile.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("profile %q: %s", name, strings.Join(issues, "; "))
	}
	return profile, nil
}

// Validate checks a profile for structural issues. Returns a list of
// human-readable issue descriptions; an empty list means the profile
// is valid.
func (p *Profile) Validate() []string {
	var issues []string

	if len(p.Agent) == 0 {
		issues = append(issues, "agent command is required")
	}
	if len(p.GitUI) == 0 {
		issues = append(issues, "git_ui command is required")
	}

	return issues
}

// Expand substitutes {{name}} placeholders in s from vars. Unknown
// placeholders are left verbatim, so a typo surfaces in the launched
// command rather than vanishing.
func Expand(s string, vars map[string]string) string {
	for name, value := range vars {
		s = strings.ReplaceAll(s, "{{"+name+"}}", value)
	}
	return s
}

// AgentCommand returns the agent argv with placeholders expanded and
// the planning prompt appended. A prompt template that references
// {{ticket}} is dropped when vars carries no ticket: a planning prompt
// about an absent ticket is noise.
func (p *Profile) AgentCommand(vars map[string]string) []string {
	command := expandArgv(p.Agent, vars)

	if p.Prompt == "" {
		return command
	}
	if strings.Contains(p.Prompt, "{{ticket}}") && vars["ticket"] == "" {
		return command
	}
	return append(command, Expand(p.Prompt, vars))
}

// GitUICommand returns the git-UI argv with placeholders expanded.
func (p *Profile) GitUICommand(vars map[string]string) []string {
	return expandArgv(p.GitUI, vars)
}

func expandArgv(argv []string, vars map[string]string) []string {
	expanded := make([]string, len(argv))
	for i, arg := range argv {
		expanded[i] = Expand(arg, vars)
	}
	return expanded
}
