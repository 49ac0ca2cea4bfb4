// Package tui renders prompt sessions in a terminal with Bubble Tea.
//
// The session owns all prompt state. The terminal model only edits the
// input line locally, forwards keys, and redraws whatever snapshot the
// session published last.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/palette/internal/event"
	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/prompt"
)

// Driver is the part of a prompt session the terminal model drives.
// *prompt.Session implements it.
type Driver interface {
	Key(key string) error
	SetInput(text string, cursor int) error
	Send(ev event.Event) error
	Shortcuts() []flags.Shortcut
}

// Options configures the terminal model.
type Options struct {
	Message string // Shown before the input line
	MaxRows int    // Visible choice rows
	MenuKey string // Key that toggles the flags menu
	Styles  *Styles
}

// snapshotMsg carries a published session snapshot into the program.
type snapshotMsg struct {
	snap prompt.Snapshot
}

// doneMsg is sent once the session has finished.
type doneMsg struct {
	result prompt.Result
	err    error
}

// Model is the Bubble Tea model for a prompt session.
type Model struct {
	driver  Driver
	opts    Options
	styles  Styles
	keys    keyMap
	input   textinput.Model
	spinner spinner.Model
	// forwarded holds normalized shortcut keys owned by the session.
	forwarded map[string]bool

	snap     prompt.Snapshot
	hasSnap  bool
	spinning bool

	// acked is the last input the session confirmed; sent queues edits
	// it has not confirmed yet.
	acked string
	sent  []string

	width  int
	height int

	done   bool
	result prompt.Result
	err    error
}

// NewModel creates a terminal model driving d.
func NewModel(d Driver, opts Options) Model {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 10
	}
	if opts.MenuKey == "" {
		opts.MenuKey = prompt.DefaultFlagsMenuKey
	}
	styles := DefaultStyles("")
	if opts.Styles != nil {
		styles = *opts.Styles
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = styles.Message
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.Dim))

	forwarded := map[string]bool{flags.NormalizeKey(opts.MenuKey): true}
	for _, sc := range d.Shortcuts() {
		forwarded[flags.NormalizeKey(sc.Key)] = true
	}

	return Model{
		driver:    d,
		opts:      opts,
		styles:    styles,
		keys:      defaultKeyMap(),
		input:     ti,
		spinner:   sp,
		forwarded: forwarded,
	}
}

// Done reports whether the session has finished.
func (m Model) Done() bool {
	return m.done
}

// Result returns the session outcome once Done is true.
func (m Model) Result() (prompt.Result, error) {
	return m.result, m.err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-len(m.opts.Message)-4, 10)
		return m, nil

	case snapshotMsg:
		return m.handleSnapshot(msg.snap)

	case spinner.TickMsg:
		if !m.snap.Loading {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSnapshot adopts a session snapshot. Input the session changed on
// its own (paste, initial text, leaving a nested list) replaces the local
// line; echoes of local edits do not.
func (m Model) handleSnapshot(snap prompt.Snapshot) (tea.Model, tea.Cmd) {
	m.snap = snap
	m.hasSnap = true
	m.input.Placeholder = snap.Placeholder

	in := snap.State.Input
	switch i := indexOf(m.sent, in); {
	case in == m.acked:
	case i >= 0:
		m.acked = in
		m.sent = m.sent[i+1:]
	default:
		m.acked = in
		m.sent = nil
		m.input.SetValue(in)
		m.input.SetCursor(snap.State.Cursor)
	}

	if snap.Loading && !m.spinning {
		m.spinning = true
		return m, m.spinner.Tick
	}
	return m, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// handleKey routes a key press to the session or the input line.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, nil
	}
	if msg.Paste {
		_ = m.driver.Send(event.Event{Type: event.Paste, Text: string(msg.Runes)})
		return m, nil
	}

	k := msg.String()
	switch {
	case m.snap.MenuOpen, m.forwarded[flags.NormalizeKey(k)], m.choiceShortcut(k), key.Matches(msg, m.keys.session()...):
		_ = m.driver.Key(k)
		return m, nil
	case key.Matches(msg, m.keys.First):
		_ = m.driver.Key("home")
		return m, nil
	case key.Matches(msg, m.keys.Last):
		_ = m.driver.Key("end")
		return m, nil
	case key.Matches(msg, m.keys.Groups) && m.input.Value() == "":
		_ = m.driver.Key(k)
		return m, nil
	case key.Matches(msg, m.keys.Back) && m.input.Value() == "" && m.snap.Depth > 0:
		_ = m.driver.Send(event.Event{Type: event.Back, Key: k})
		return m, nil
	}

	before, pos := m.input.Value(), m.input.Position()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	after, cursor := m.input.Value(), m.input.Position()
	switch {
	case after != before:
		m.sent = append(m.sent, after)
		_ = m.driver.SetInput(after, cursor)
	case cursor != pos:
		_ = m.driver.SetInput(after, cursor)
	}
	return m, cmd
}

// choiceShortcut reports whether a listed choice is bound to k.
func (m Model) choiceShortcut(k string) bool {
	k = flags.NormalizeKey(k)
	for _, c := range m.snap.Choices {
		if c.Shortcut != "" && flags.NormalizeKey(c.Shortcut) == k {
			return true
		}
	}
	return false
}
