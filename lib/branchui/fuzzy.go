// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package branchui

import (
	"sort"
	"strings"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Slab dimensions match fzf's own allocation for interactive use.
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

// NewSlab allocates the scratch memory reused across FuzzyMatch calls.
// A slab must not be shared between goroutines.
func NewSlab() *util.Slab {
	return util.MakeSlab(slab16Size, slab32Size)
}

// FuzzyResult reports how well a pattern matched a candidate string.
// Score is zero when the pattern did not match at all. Positions holds
// the rune indices of the matched characters in ascending order, for
// highlighting.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch scores text against pattern using fzf's V2 algorithm.
// Matching is case-insensitive. An empty pattern yields a zero result;
// callers treat that as "no filter" rather than "no match".
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	lowered := make([]rune, len(pattern))
	for i, r := range pattern {
		lowered[i] = unicode.ToLower(r)
	}
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, positions := algo.FuzzyMatchV2(true, false, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}
	out := FuzzyResult{Score: result.Score}
	if positions != nil {
		out.Positions = append(out.Positions, *positions...)
		sort.Ints(out.Positions)
	}
	return out
}
