// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package branchname derives the identifiers drydock uses from a raw
// git branch ref.
//
// A branch ref like "feature/DCT-46934-login-fix" yields three
// derivations:
//
//   - Safe: "feature—DCT-46934-login-fix", path separators replaced
//     with an em dash, usable as a directory name and inside tmux
//     session names.
//   - Label: "DCT-46934 Login Fix", the human-readable short form
//     shown in session titles and status output.
//   - Ticket: "DCT-46934", the issue-tracker token, when present.
//
// Everything here is pure string derivation: no I/O, no failure modes,
// recomputed on every invocation and never persisted. Applying
// Normalize to a Safe identifier is a fixed point.
package branchname

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Separator replaces path separators in branch refs. An em dash is
// accepted by filesystems, git, and tmux, and cannot collide with the
// ordinary hyphens already present in branch names.
const Separator = "—"

// ticketPattern matches issue-tracker tokens: uppercase letters (and
// digits after the first letter), a dash, then the issue number.
var ticketPattern = regexp.MustCompile(`[A-Z][A-Z0-9]+-[0-9]+`)

// categoryPrefixes are the branch-category markers stripped from the
// front of a ref when deriving the label. Matching is case-insensitive.
var categoryPrefixes = map[string]bool{
	"bugfix":  true,
	"fix":     true,
	"feature": true,
	"feat":    true,
	"hotfix":  true,
	"task":    true,
	"chore":   true,
	"epic":    true,
}

// Name holds every derivation of a branch ref. Construct with
// Normalize.
type Name struct {
	// Branch is the ref exactly as given.
	Branch string

	// Safe is Branch with path separators replaced by Separator.
	// Contains no '/' or '\'.
	Safe string

	// Label is the human-readable short form: category prefix
	// stripped, ticket token hoisted to the front, remaining
	// separators converted to spaces, words after the first
	// title-cased.
	Label string

	// Ticket is the issue-tracker token extracted from Branch, or ""
	// when the ref carries none.
	Ticket string
}

// Normalize derives all identifier forms from a raw branch ref. Any
// printable string is accepted.
func Normalize(branch string) Name {
	safe := strings.NewReplacer("/", Separator, "\\", Separator).Replace(branch)
	ticket := ticketPattern.FindString(branch)

	return Name{
		Branch: branch,
		Safe:   safe,
		Label:  deriveLabel(safe, ticket),
		Ticket: ticket,
	}
}

// deriveLabel computes the human-readable label from the safe
// identifier and the extracted ticket token.
func deriveLabel(safe, ticket string) string {
	segments := strings.Split(safe, Separator)

	// Strip leading category markers, always leaving at least one
	// segment so "feature" alone still labels as "feature".
	for len(segments) > 1 && categoryPrefixes[strings.ToLower(segments[0])] {
		segments = segments[1:]
	}
	remainder := strings.Join(segments, Separator)

	// Hoist the ticket out of the remainder; it becomes the first
	// word of the label.
	if ticket != "" {
		remainder = strings.Replace(remainder, ticket, " ", 1)
	}

	words := splitWords(remainder)

	if ticket != "" {
		label := ticket
		for _, word := range words {
			label += " " + titleCase(word)
		}
		return label
	}

	if len(words) == 0 {
		return ""
	}
	label := words[0]
	for _, word := range words[1:] {
		label += " " + titleCase(word)
	}
	return label
}

// splitWords breaks the remaining text on every separator form: the
// em dash, hyphens, underscores, and spaces. Empty fields (from
// adjacent separators, e.g. around a removed ticket) are dropped.
func splitWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || strings.ContainsRune(Separator, r)
	})
	return fields
}

// titleCase upper-cases the first rune and leaves the rest of the word
// unchanged.
func titleCase(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// sessionReserved maps the characters tmux reserves in target syntax.
// A "session:window" or "session.pane" target splits on these, so a
// session name containing them cannot be addressed reliably.
var sessionReserved = strings.NewReplacer(":", "-", ".", "-")

// SessionSafe returns label with tmux target-syntax characters replaced
// by "-". The registry applies the same transform to the label it
// matches against, so a branch whose label contains dots still matches
// the session created for it.
func SessionSafe(label string) string {
	return sessionReserved.Replace(label)
}

// SessionTitle renders the tmux session name for an ordinal and label:
// "<ordinal> <label>", session-safe.
func SessionTitle(ordinal int, label string) string {
	return strconv.Itoa(ordinal) + " " + SessionSafe(label)
}

// ParseSessionTitle splits a session name of the form "<ordinal> <label>"
// back into its parts. Returns ok=false for names that were not produced
// by SessionTitle (no space, or a non-numeric first field).
func ParseSessionTitle(name string) (ordinal int, label string, ok bool) {
	first, rest, found := strings.Cut(name, " ")
	if !found || rest == "" {
		return 0, "", false
	}
	ordinal, err := strconv.Atoi(first)
	if err != nil || ordinal < 0 {
		return 0, "", false
	}
	return ordinal, rest, true
}
