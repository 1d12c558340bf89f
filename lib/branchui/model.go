// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

package branchui

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/junegunn/fzf/src/util"
)

var (
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	markStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	rowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	matchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)

	cursorRowStyle   = rowStyle.Background(lipgloss.Color("236"))
	cursorMatchStyle = matchStyle.Background(lipgloss.Color("236"))
)

// row is one filtered candidate with its match metadata.
type row struct {
	branch    string
	score     int
	positions []int
}

// Model is the branch picker. The filter input is always focused;
// every printable key edits the query and the list re-ranks live.
type Model struct {
	branches []string
	keys     KeyMap
	input    textinput.Model
	slab     *util.Slab

	rows   []row
	cursor int
	offset int

	selected    []string
	selectedSet map[string]bool

	accepted bool
	width    int
	height   int
}

// New builds a picker over the given branch names. Order is preserved
// while the query is empty.
func New(branches []string) Model {
	input := textinput.New()
	input.Prompt = "branch> "
	input.Focus()
	m := Model{
		branches:    branches,
		keys:        DefaultKeyMap,
		input:       input,
		slab:        NewSlab(),
		selectedSet: make(map[string]bool),
	}
	m.refilter()
	return m
}

// Accepted reports whether the picker was confirmed rather than
// cancelled.
func (m Model) Accepted() bool { return m.accepted }

// Selected returns the chosen branches in the order they were marked.
// Confirming with nothing marked selects the branch under the cursor.
func (m Model) Selected() []string {
	return slices.Clone(m.selected)
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > 12 {
			m.input.Width = msg.Width - 12
		}
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.accepted = false
			return m, tea.Quit
		case key.Matches(msg, m.keys.Accept):
			if len(m.selected) == 0 && len(m.rows) > 0 {
				m.toggleCurrent()
			}
			m.accepted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.toggleCurrent()
			m.moveCursor(1)
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.moveCursor(-m.visibleRows())
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.moveCursor(m.visibleRows())
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.cursor = 0
		m.offset = 0
		m.refilter()
	}
	return m, cmd
}

// refilter recomputes the visible rows from the current query. With an
// empty query every branch shows in its original order; otherwise rows
// are ranked by fuzzy score, ties keeping input order.
func (m *Model) refilter() {
	query := []rune(m.input.Value())
	rows := make([]row, 0, len(m.branches))
	if len(query) == 0 {
		for _, branch := range m.branches {
			rows = append(rows, row{branch: branch})
		}
	} else {
		for _, branch := range m.branches {
			result := FuzzyMatch(branch, query, m.slab)
			if result.Score <= 0 {
				continue
			}
			rows = append(rows, row{branch: branch, score: result.Score, positions: result.Positions})
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].score > rows[j].score
		})
	}
	m.rows = rows
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > len(m.rows)-1 {
		m.cursor = len(m.rows) - 1
	}
	m.ensureVisible()
}

func (m *Model) ensureVisible() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// visibleRows is the list height after the input, count, and help lines.
func (m *Model) visibleRows() int {
	if m.height == 0 {
		return 20
	}
	visible := m.height - 3
	if visible < 1 {
		return 1
	}
	return visible
}

func (m *Model) toggleCurrent() {
	if len(m.rows) == 0 || m.cursor >= len(m.rows) {
		return
	}
	branch := m.rows[m.cursor].branch
	if m.selectedSet[branch] {
		delete(m.selectedSet, branch)
		i := slices.Index(m.selected, branch)
		m.selected = slices.Delete(m.selected, i, i+1)
		return
	}
	m.selectedSet[branch] = true
	m.selected = append(m.selected, branch)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")

	count := fmt.Sprintf("%d/%d branches", len(m.rows), len(m.branches))
	if n := len(m.selected); n > 0 {
		count += fmt.Sprintf(", %d selected", n)
	}
	b.WriteString(faintStyle.Render(count))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(faintStyle.Render("  no matching branches"))
		b.WriteString("\n")
	}

	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		line := m.renderRow(r, i == m.cursor)
		if m.width > 0 {
			line = ansi.Truncate(line, m.width, "…")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderRow(r row, isCursor bool) string {
	marker := "  "
	if isCursor {
		marker = "▸ "
	}
	mark := "  "
	if m.selectedSet[r.branch] {
		mark = markStyle.Render("✓") + " "
	}
	base, match := rowStyle, matchStyle
	if isCursor {
		base, match = cursorRowStyle, cursorMatchStyle
	}
	return marker + mark + highlight(r.branch, r.positions, base, match)
}

// highlight renders text with the runes at positions in the match
// style, coalescing adjacent runs to keep the escape churn down.
func highlight(text string, positions []int, base, match lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(text)
	}
	matched := make(map[int]bool, len(positions))
	for _, p := range positions {
		matched[p] = true
	}
	runes := []rune(text)
	var b strings.Builder
	var run []rune
	var runMatched bool
	flush := func() {
		if len(run) == 0 {
			return
		}
		if runMatched {
			b.WriteString(match.Render(string(run)))
		} else {
			b.WriteString(base.Render(string(run)))
		}
		run = run[:0]
	}
	for i, r := range runes {
		if len(run) > 0 && matched[i] != runMatched {
			flush()
		}
		runMatched = matched[i]
		run = append(run, r)
	}
	flush()
	return b.String()
}

func (m Model) helpLine() string {
	bindings := []key.Binding{m.keys.Toggle, m.keys.Accept, m.keys.Quit}
	parts := make([]string, 0, len(bindings)+1)
	parts = append(parts, "↑/↓ move")
	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
