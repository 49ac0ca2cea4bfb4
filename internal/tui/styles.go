package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/palette/internal/model"
)

// Styles groups the lipgloss styles the prompt view draws with.
type Styles struct {
	Message     lipgloss.Style
	Hint        lipgloss.Style
	Header      lipgloss.Style
	Focused     lipgloss.Style
	Normal      lipgloss.Style
	Match       lipgloss.Style
	Description lipgloss.Style
	Tag         lipgloss.Style
	Dim         lipgloss.Style
	Error       lipgloss.Style
	Preview     lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Flag        lipgloss.Style
}

// DefaultStyles returns the standard palette. highlight colours matched
// characters and accepts an ANSI number or hex value.
func DefaultStyles(highlight string) Styles {
	if highlight == "" {
		highlight = "212"
	}
	return Styles{
		Message:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Hint:        lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		Header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110")),
		Focused:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		Normal:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Match:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(highlight)),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Tag:         lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		Dim:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Preview:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1),
		ActiveTab:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")),
		InactiveTab: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Flag:        lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
	}
}

// ColorProfile resolves a configured colour mode (auto, always, never)
// against the terminal output.
func ColorProfile(mode string, out *termenv.Output) termenv.Profile {
	switch mode {
	case "never":
		return termenv.Ascii
	case "always":
		if p := out.ColorProfile(); p != termenv.Ascii {
			return p
		}
		return termenv.ANSI256
	default:
		return out.ColorProfile()
	}
}

// highlight draws s truncated to width columns with the matched spans in
// the match style and everything else in base.
func highlight(s string, spans []model.Span, width int, base, match lipgloss.Style) string {
	runes := []rune(s)
	cut, marked := len(runes), false
	if width > 0 {
		visible := []rune(EndTruncate(s, width))
		cut = len(visible)
		if cut < len(runes) && cut > 0 && string(visible[cut-1]) == ellipsis {
			cut, marked = cut-1, true
		}
	}

	var b strings.Builder
	inSpan := func(i int) bool {
		for _, sp := range spans {
			if i >= sp.Start && i < sp.End {
				return true
			}
		}
		return false
	}
	start := 0
	for i := 1; i <= cut; i++ {
		if i < cut && inSpan(i) == inSpan(start) {
			continue
		}
		style := base
		if inSpan(start) {
			style = match
		}
		b.WriteString(style.Render(string(runes[start:i])))
		start = i
	}
	if marked {
		b.WriteString(base.Render(ellipsis))
	}
	return b.String()
}
