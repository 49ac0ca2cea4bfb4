package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/model"
)

// defaultWidth is used before the first WindowSizeMsg.
const defaultWidth = 80

// maxPreviewLines bounds the preview pane height.
const maxPreviewLines = 8

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.viewPrompt())
	b.WriteRune('\n')

	if m.snap.Hint != "" {
		b.WriteString(m.styles.Hint.Render(Clean(m.snap.Hint)))
		b.WriteRune('\n')
	}
	if len(m.snap.Tabs) > 0 {
		b.WriteString(m.viewTabBar())
		b.WriteRune('\n')
	}

	if m.snap.MenuOpen {
		b.WriteString(m.viewMenu())
	} else {
		b.WriteString(m.viewContent())
	}

	if preview := m.viewPreview(); preview != "" {
		b.WriteRune('\n')
		b.WriteString(preview)
	}

	if footer := m.viewFooter(); footer != "" {
		b.WriteRune('\n')
		b.WriteString(footer)
	}

	return b.String()
}

func (m Model) lineWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

// viewPrompt renders the message and input line.
func (m Model) viewPrompt() string {
	line := m.input.View()
	if m.opts.Message != "" {
		line = m.styles.Message.Render(Clean(m.opts.Message)) + " " + line
	}
	if m.snap.Loading {
		line += " " + m.spinner.View()
	}
	if flag := m.snap.State.Flag; flag != "" {
		line += " " + m.styles.Flag.Render(" "+flag+" ")
	}
	return line
}

// viewTabBar renders the tab bar.
func (m Model) viewTabBar() string {
	parts := make([]string, 0, len(m.snap.Tabs))
	for i, tab := range m.snap.Tabs {
		label := " " + Clean(tab) + " "
		if i == m.snap.State.TabIndex {
			parts = append(parts, m.styles.ActiveTab.Render(label))
		} else {
			parts = append(parts, m.styles.InactiveTab.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// viewContent renders the choice list or a status line.
func (m Model) viewContent() string {
	switch {
	case !m.hasSnap:
		return m.styles.Dim.Render("Loading...")
	case m.snap.Err != nil:
		return m.styles.Error.Render(fmt.Sprintf("Error: %s", Clean(m.snap.Err.Error())))
	case len(m.snap.Choices) == 0 && m.snap.Loading:
		return m.styles.Dim.Render("Loading...")
	case len(m.snap.Choices) == 0:
		return m.styles.Dim.Render("No matches")
	default:
		return m.viewList()
	}
}

// window returns the visible slice bounds keeping focus on screen.
func window(focused, count, rows int) (int, int) {
	if count <= rows {
		return 0, count
	}
	start := 0
	if focused >= rows {
		start = focused - rows + 1
	}
	return start, start + rows
}

// viewList renders the visible choices with the focus marker.
func (m Model) viewList() string {
	width := m.lineWidth()
	start, end := window(m.snap.State.Index, len(m.snap.Choices), m.opts.MaxRows)

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		lines = append(lines, m.viewRow(m.snap.Choices[i], i == m.snap.State.Index, width))
	}
	if hidden := len(m.snap.Choices) - (end - start); hidden > 0 {
		lines = append(lines, m.styles.Dim.Render(fmt.Sprintf("  %d/%d", m.snap.State.Index+1, len(m.snap.Choices))))
	}
	return strings.Join(lines, "\n")
}

// viewRow renders one choice: marker, icon, highlighted name, tag and
// description, fitted to width columns.
func (m Model) viewRow(c model.ScoredChoice, focused bool, width int) string {
	if c.Skip {
		return m.styles.Header.Render(EndTruncate(Clean(c.Name), width))
	}
	if c.Info != "" {
		return m.styles.Hint.Render(EndTruncate("  "+Clean(c.Name), width))
	}

	marker, base := "  ", m.styles.Normal
	if focused {
		marker, base = "> ", m.styles.Focused
	}

	prefix := marker
	if c.Icon != "" {
		prefix += Clean(c.Icon) + " "
	}
	tag := ""
	if c.Tag != "" {
		tag = " [" + Clean(c.Tag) + "]"
	}

	name, spans := Clean(c.Name), c.Matches[model.FieldName]
	if name != c.Name {
		spans = nil
	}
	avail := width - runewidth.StringWidth(prefix) - runewidth.StringWidth(tag)
	row := base.Render(prefix) + highlight(name, spans, max(avail, 1), base, m.styles.Match)
	if tag != "" {
		row += m.styles.Tag.Render(tag)
	}

	used := runewidth.StringWidth(prefix) + min(runewidth.StringWidth(name), max(avail, 1)) + runewidth.StringWidth(tag)
	if desc := Clean(c.Description); desc != "" && width-used > 4 {
		row += m.styles.Description.Render(" " + MiddleTruncate(desc, width-used-1))
	}
	return row
}

// viewMenu renders the flags menu overlay.
func (m Model) viewMenu() string {
	width := m.lineWidth()
	lines := []string{m.styles.Header.Render("Actions")}
	for i, c := range m.snap.FlagsMenu {
		marker, style := "  ", m.styles.Normal
		if i == m.snap.MenuIndex {
			marker, style = "> ", m.styles.Focused
		}
		label := marker + Clean(c.Name)
		if c.Tag != "" {
			label += "  " + c.Tag
		}
		row := style.Render(EndTruncate(label, width))
		if c.Description != "" {
			row += m.styles.Description.Render(" " + MiddleTruncate(Clean(c.Description), max(width-runewidth.StringWidth(label)-1, 0)))
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

// viewPreview renders the preview pane, if any.
func (m Model) viewPreview() string {
	if m.snap.Preview == "" || m.snap.MenuOpen {
		return ""
	}
	width := m.lineWidth() - m.styles.Preview.GetHorizontalFrameSize()
	if width < 4 {
		return ""
	}
	lines := strings.Split(ValidateUTF8(m.snap.Preview), "\n")
	if len(lines) > maxPreviewLines {
		lines = append(lines[:maxPreviewLines], "…")
	}
	for i, line := range lines {
		lines[i] = EndTruncate(Clean(line), width)
	}
	return m.styles.Preview.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// viewFooter renders shortcut bars and key help.
func (m Model) viewFooter() string {
	var left, right []string
	for _, sc := range m.driver.Shortcuts() {
		label := sc.Key + " " + sc.Name
		switch sc.Bar {
		case flags.BarLeft:
			left = append(left, label)
		case flags.BarRight:
			right = append(right, label)
		}
	}
	if len(left) == 0 && len(right) == 0 {
		return m.styles.Dim.Render(strings.Join(help(m.keys.Up, m.keys.Down, m.keys.Submit, m.keys.Escape), "  "))
	}

	l := m.styles.Dim.Render(strings.Join(left, "  "))
	r := m.styles.Dim.Render(strings.Join(right, "  "))
	gap := m.lineWidth() - lipgloss.Width(l) - lipgloss.Width(r)
	if gap < 1 {
		gap = 1
	}
	return l + strings.Repeat(" ", gap) + r
}
