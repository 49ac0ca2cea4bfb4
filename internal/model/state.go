package model

// AppState is the session snapshot passed to callbacks. The prompt engine
// builds a fresh value on every transition; holders of an older snapshot
// never observe later changes.
type AppState struct {
	SessionID    string
	Input        string
	InputChanged bool   // Input differs from the previous snapshot
	Focused      *Choice // Nil when nothing is focused
	Value        any     // Value of the focused choice
	Flag         string  // Active flag key, "" when none
	Index        int     // Index of the focused choice in the ranked list, -1 if none
	Count        int     // Number of ranked choices
	Tab          string
	TabIndex     int
	Modifiers    []string
	Submitted    bool
	Shortcut     string // Last triggered shortcut key
	Paste        string // Last pasted text
	Cursor       int
	Generation   uint64 // Choice store generation the list was scored from
}

// Clone returns a deep copy so the caller can hand it out safely.
func (s AppState) Clone() AppState {
	if s.Focused != nil {
		f := s.Focused.Clone()
		s.Focused = &f
	}
	if s.Modifiers != nil {
		s.Modifiers = append([]string(nil), s.Modifiers...)
	}
	return s
}

// HasModifier reports whether the named modifier key was held.
func (s AppState) HasModifier(name string) bool {
	for _, m := range s.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}
