package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the keys the terminal forwards to the session instead of
// the text input.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	First  key.Binding
	Last   key.Binding
	Tab    key.Binding
	Submit key.Binding
	Escape key.Binding
	Abort  key.Binding
	Groups key.Binding
	Back   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
		First:  key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "first")),
		Last:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "last")),
		Tab:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch tab")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Abort:  key.NewBinding(key.WithKeys("ctrl+c")),
		Groups: key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "group")),
		Back:   key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "back")),
	}
}

// session reports the bindings always forwarded as keys.
func (k keyMap) session() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Tab, k.Submit, k.Escape, k.Abort}
}

// help renders the footer line for the given bindings.
func help(bindings ...key.Binding) []string {
	var out []string
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" || !b.Enabled() {
			continue
		}
		out = append(out, h.Key+" "+h.Desc)
	}
	return out
}
