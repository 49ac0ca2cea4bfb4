// Package focus tracks which ranked choice holds focus and moves it in
// response to navigation.
//
// Non-focusable choices (group headers) are transparent: they are never
// focused and never count toward wrap-around at the ends of the list.
package focus

import "github.com/runger/palette/internal/model"

// Direction is a navigation request.
type Direction int

const (
	Up Direction = iota
	Down
	Left  // Previous group
	Right // Next group
	First
	Last
)

var directionNames = [...]string{"up", "down", "left", "right", "first", "last"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// Options configures a Tracker.
type Options struct {
	Wrap     bool     // Wrap from the last focusable item to the first and back
	Tabs     []string // Declared tabs, cycled with CycleTab
	TabIndex int      // Initially selected tab
}

// Tracker owns the focus position over a ranked list. It is not safe for
// concurrent use; the prompt session drives it from its event loop.
type Tracker struct {
	opts  Options
	list  []model.ScoredChoice
	index int    // -1 when nothing is focused
	key   string // Identity of the focused choice
	tab   int
}

// New returns a tracker with nothing focused.
func New(opts Options) *Tracker {
	t := &Tracker{opts: opts, index: -1}
	if n := len(opts.Tabs); n > 0 {
		t.tab = ((opts.TabIndex % n) + n) % n
	}
	return t
}

// Reconcile installs a new ranked list. Focus follows the previously
// focused identity when it is still present, otherwise it falls to the
// first focusable item. It reports false when nothing can be focused.
func (t *Tracker) Reconcile(list []model.ScoredChoice) (model.Choice, bool) {
	t.list = list
	if t.key != "" {
		if i := t.indexOf(t.key); i >= 0 {
			return t.set(i)
		}
	}
	return t.set(t.next(-1, 1, false))
}

// Move shifts focus in the given direction and returns the new focus.
func (t *Tracker) Move(dir Direction) (model.Choice, bool) {
	switch dir {
	case Up:
		if t.index < 0 {
			return t.set(t.next(len(t.list), -1, false))
		}
		if i := t.next(t.index, -1, t.opts.Wrap); i >= 0 {
			return t.set(i)
		}
	case Down:
		if i := t.next(t.index, 1, t.opts.Wrap); i >= 0 {
			return t.set(i)
		}
	case Left:
		return t.moveGroup(-1)
	case Right:
		return t.moveGroup(1)
	case First:
		return t.set(t.next(-1, 1, false))
	case Last:
		return t.set(t.next(len(t.list), -1, false))
	}
	return t.Current()
}

// FocusKey focuses the choice with the given identity, if it is present
// and focusable.
func (t *Tracker) FocusKey(key string) bool {
	i := t.indexOf(key)
	if i < 0 {
		return false
	}
	t.set(i)
	return true
}

// Focused returns the focused choice and its index in the ranked list.
func (t *Tracker) Focused() (model.Choice, int, bool) {
	if t.index < 0 || t.index >= len(t.list) {
		return model.Choice{}, -1, false
	}
	return t.list[t.index].Choice, t.index, true
}

// Current is Focused without the index.
func (t *Tracker) Current() (model.Choice, bool) {
	c, _, ok := t.Focused()
	return c, ok
}

// Count returns the number of choices in the ranked list.
func (t *Tracker) Count() int {
	return len(t.list)
}

// CycleTab moves the tab selection by delta, wrapping. It reports false
// when no tabs are declared.
func (t *Tracker) CycleTab(delta int) (string, int, bool) {
	n := len(t.opts.Tabs)
	if n == 0 {
		return "", 0, false
	}
	t.tab = ((t.tab+delta)%n + n) % n
	return t.opts.Tabs[t.tab], t.tab, true
}

// Tab returns the current tab, "" when none are declared.
func (t *Tracker) Tab() (string, int) {
	if len(t.opts.Tabs) == 0 {
		return "", 0
	}
	return t.opts.Tabs[t.tab], t.tab
}

// Clear drops the focus and the remembered identity.
func (t *Tracker) Clear() {
	t.index = -1
	t.key = ""
}

func (t *Tracker) set(i int) (model.Choice, bool) {
	if i < 0 || i >= len(t.list) {
		t.index = -1
		t.key = ""
		return model.Choice{}, false
	}
	t.index = i
	t.key = t.list[i].Key()
	return t.list[i].Choice, true
}

// next scans from start (exclusive) in steps of step for a focusable
// index. With wrap the scan continues from the other end, stopping before
// it comes back to start.
func (t *Tracker) next(start, step int, wrap bool) int {
	n := len(t.list)
	if n == 0 {
		return -1
	}
	i := start
	for range n {
		i += step
		if i < 0 || i >= n {
			if !wrap {
				return -1
			}
			i = (i + n) % n
		}
		if i == start {
			return -1
		}
		if t.list[i].Focusable() {
			return i
		}
	}
	return -1
}

func (t *Tracker) indexOf(key string) int {
	for i, c := range t.list {
		if c.Focusable() && c.Key() == key {
			return i
		}
	}
	return -1
}

// moveGroup focuses the first focusable item of the neighbouring group,
// wrapping around the group sequence.
func (t *Tracker) moveGroup(step int) (model.Choice, bool) {
	var groups []string
	first := make(map[string]int)
	for i, c := range t.list {
		if !c.Focusable() {
			continue
		}
		if _, ok := first[c.Group]; !ok {
			first[c.Group] = i
			groups = append(groups, c.Group)
		}
	}
	if len(groups) == 0 {
		return t.set(-1)
	}

	cur := -1
	if t.index >= 0 {
		for gi, g := range groups {
			if g == t.list[t.index].Group {
				cur = gi
				break
			}
		}
	}
	var target int
	switch {
	case cur < 0 && step > 0:
		target = 0
	case cur < 0:
		target = len(groups) - 1
	default:
		target = ((cur+step)%len(groups) + len(groups)) % len(groups)
	}
	return t.set(first[groups[target]])
}
