package prompt

import "github.com/runger/palette/internal/model"

// Status is the lifecycle state of a session.
type Status int

const (
	Idle Status = iota
	Active
	Validating
	Submitted
	Aborted
	TimedOut
)

var statusNames = [...]string{"idle", "active", "validating", "submitted", "aborted", "timed-out"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == Submitted || s == Aborted || s == TimedOut
}

// Snapshot is an immutable view of a session handed to renderers.
type Snapshot struct {
	State       model.AppState
	Choices     []model.ScoredChoice
	Status      Status
	Loading     bool  // A pull is pending or in flight
	Err         error // Last reported error, cleared by the next successful pull
	Preview     string
	Hint        string
	Placeholder string
	Tabs        []string
	Depth       int // Number of nested choice lists entered

	MenuOpen  bool
	FlagsMenu []model.Choice
	MenuIndex int

	Generation uint64
}

// Names returns the display names of the ranked choices.
func (s Snapshot) Names() []string {
	out := make([]string, len(s.Choices))
	for i, c := range s.Choices {
		out[i] = c.Name
	}
	return out
}

// snapshot builds a copy of the loop-owned state.
func (s *Session) snapshot() Snapshot {
	hint := s.cfg.Hint
	if s.focusHint != "" {
		hint = s.focusHint
	}
	snap := Snapshot{
		State:       s.state.Clone(),
		Choices:     append([]model.ScoredChoice(nil), s.ranked...),
		Status:      s.Status(),
		Loading:     s.loading,
		Err:         s.lastErr,
		Preview:     s.preview,
		Hint:        hint,
		Placeholder: s.cfg.Placeholder,
		Tabs:        append([]string(nil), s.cfg.Tabs...),
		Depth:       len(s.stack),
		MenuOpen:    s.menuOpen,
		MenuIndex:   -1,
		Generation:  s.state.Generation,
	}
	if s.menuOpen {
		for _, c := range s.menuList {
			snap.FlagsMenu = append(snap.FlagsMenu, c.Choice.Clone())
		}
		_, snap.MenuIndex, _ = s.menu.Focused()
	}
	return snap
}

// publish stores a fresh snapshot and hands it to the renderer.
func (s *Session) publish() {
	snap := s.snapshot()
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	if s.cfg.Renderer != nil {
		s.cfg.Renderer.Render(snap)
	}
}
