// Package flags implements the secondary-action overlay of a prompt:
// named flags selectable alongside the submitted value, and the keyboard
// shortcuts that trigger them.
package flags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/runger/palette/internal/model"
)

var (
	ErrDuplicateShortcut = errors.New("duplicate shortcut")
	ErrUnknownFlag       = errors.New("unknown flag")
	ErrEmptyKey          = errors.New("empty shortcut key")
)

// Bar placement hints for renderers.
const (
	BarLeft  = "left"
	BarRight = "right"
)

// Flag describes one selectable flag.
type Flag struct {
	Key         string
	Name        string
	Shortcut    string // Optional key combination that selects the flag
	Group       string
	Description string
	Bar         string
	Preview     model.Preview
}

// Label returns the display name, falling back to the key.
func (f Flag) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Key
}

// Options is either a plain on/off switch or a set of named flags.
type Options struct {
	Enabled bool
	Flags   map[string]Flag
	Order   []string // Keys listed first in the menu, in this order
}

// Bool enables or disables flags without declaring any.
func Bool(enabled bool) Options {
	return Options{Enabled: enabled}
}

// Map enables flags with the given declarations. Each flag's Key is taken
// from its map key.
func Map(flags map[string]Flag, order ...string) Options {
	m := make(map[string]Flag, len(flags))
	for k, f := range flags {
		f.Key = k
		m[k] = f
	}
	return Options{Enabled: true, Flags: m, Order: order}
}

// PressFunc runs when a shortcut fires. It may block; the session waits
// for it before processing more input.
type PressFunc func(ctx context.Context, input string, state model.AppState) error

// Shortcut is a key binding registered for the lifetime of a session.
type Shortcut struct {
	Key     string
	Name    string
	Value   any
	OnPress PressFunc
	Bar     string
	Flag    string // Flag marked active when the shortcut fires

	// Condition, when set, must accept the focused choice for the
	// shortcut to fire.
	Condition func(model.Choice) bool
}

var modifierOrder = []string{"ctrl", "alt", "shift", "cmd"}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"opt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"cmd":     "cmd",
	"command": "cmd",
	"meta":    "cmd",
	"super":   "cmd",
}

// NormalizeKey canonicalizes a key combination: lower case, modifiers in
// the order ctrl, alt, shift, cmd, then the key. "Cmd+Shift+O" becomes
// "shift+cmd+o".
func NormalizeKey(combo string) string {
	combo = strings.ToLower(strings.TrimSpace(combo))
	if combo == "" {
		return ""
	}
	if combo == "+" {
		return "+"
	}

	parts := strings.Split(combo, "+")
	// A trailing "++" means the key itself is "+".
	if strings.HasSuffix(combo, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}

	held := make(map[string]bool)
	var key string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if m, ok := modifierAliases[p]; ok {
			held[m] = true
			continue
		}
		key = p
	}

	var b strings.Builder
	for _, m := range modifierOrder {
		if held[m] {
			b.WriteString(m)
			b.WriteByte('+')
		}
	}
	if key == "" {
		return strings.TrimSuffix(b.String(), "+")
	}
	b.WriteString(key)
	return b.String()
}

// Registry holds the shortcuts and the active flag of one session.
// Shortcuts are fixed at construction; the active flag changes.
type Registry struct {
	opts      Options
	shortcuts []Shortcut
	byKey     map[string]int

	mu     sync.Mutex
	active string
}

// NewRegistry registers shortcuts plus one implicit shortcut for every
// flag that declares a key combination.
func NewRegistry(opts Options, shortcuts ...Shortcut) (*Registry, error) {
	r := &Registry{opts: opts, byKey: make(map[string]int)}
	for _, sc := range shortcuts {
		if err := r.add(sc); err != nil {
			return nil, err
		}
	}
	for _, key := range r.flagKeys() {
		f := opts.Flags[key]
		if f.Shortcut == "" {
			continue
		}
		err := r.add(Shortcut{Key: f.Shortcut, Name: f.Label(), Bar: f.Bar, Flag: key})
		if err != nil {
			return nil, fmt.Errorf("flag %q: %w", key, err)
		}
	}
	return r, nil
}

func (r *Registry) add(sc Shortcut) error {
	sc.Key = NormalizeKey(sc.Key)
	if sc.Key == "" {
		return ErrEmptyKey
	}
	if _, ok := r.byKey[sc.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateShortcut, sc.Key)
	}
	r.byKey[sc.Key] = len(r.shortcuts)
	r.shortcuts = append(r.shortcuts, sc)
	return nil
}

// Has reports whether a shortcut is bound to key.
func (r *Registry) Has(key string) bool {
	_, ok := r.byKey[NormalizeKey(key)]
	return ok
}

// Shortcuts returns the registered shortcuts in registration order.
func (r *Registry) Shortcuts() []Shortcut {
	return append([]Shortcut(nil), r.shortcuts...)
}

// Resolve finds the shortcut bound to key that is enabled for the focused
// choice. A shortcut with a condition never fires without a focus.
func (r *Registry) Resolve(key string, focused *model.Choice) (Shortcut, bool) {
	i, ok := r.byKey[NormalizeKey(key)]
	if !ok {
		return Shortcut{}, false
	}
	sc := r.shortcuts[i]
	if sc.Condition != nil {
		if focused == nil || !sc.Condition(*focused) {
			return Shortcut{}, false
		}
	}
	return sc, true
}

// Trigger runs the shortcut's press handler and then marks its flag as
// active, replacing any earlier selection. A failing handler leaves the
// active flag unchanged.
func (r *Registry) Trigger(ctx context.Context, sc Shortcut, input string, state model.AppState) error {
	if err := r.Press(ctx, sc, input, state); err != nil {
		return err
	}
	r.Activate(sc)
	return nil
}

// Press runs the shortcut's press handler without touching the active
// flag. Panics are returned as errors.
func (r *Registry) Press(ctx context.Context, sc Shortcut, input string, state model.AppState) error {
	if sc.OnPress == nil {
		return nil
	}
	if err := press(ctx, sc, input, state); err != nil {
		return fmt.Errorf("shortcut %s: %w", sc.Key, err)
	}
	return nil
}

// Activate marks the shortcut's flag as active, if it has one.
func (r *Registry) Activate(sc Shortcut) {
	if sc.Flag == "" {
		return
	}
	r.mu.Lock()
	r.active = sc.Flag
	r.mu.Unlock()
}

func press(ctx context.Context, sc Shortcut, input string, state model.AppState) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return sc.OnPress(ctx, input, state)
}

// Active returns the active flag key, "" when none is selected.
func (r *Registry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Select marks a declared flag as active.
func (r *Registry) Select(key string) error {
	if _, ok := r.opts.Flags[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}
	r.mu.Lock()
	r.active = key
	r.mu.Unlock()
	return nil
}

// Clear deselects the active flag.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.active = ""
	r.mu.Unlock()
}

// Flag returns the declaration for key.
func (r *Registry) Flag(key string) (Flag, bool) {
	f, ok := r.opts.Flags[key]
	return f, ok
}

// Enabled reports whether the flag menu is available.
func (r *Registry) Enabled() bool {
	return r.opts.Enabled && len(r.opts.Flags) > 0
}

// Menu returns the flags as choices for the overlay menu. Values are flag
// keys; the shortcut is shown as the tag.
func (r *Registry) Menu() []model.Choice {
	if !r.Enabled() {
		return nil
	}
	keys := r.flagKeys()
	out := make([]model.Choice, 0, len(keys))
	for i, key := range keys {
		f := r.opts.Flags[key]
		out = append(out, model.Choice{
			ID:          key,
			Name:        f.Label(),
			Value:       key,
			Description: f.Description,
			Tag:         NormalizeKey(f.Shortcut),
			Group:       f.Group,
			Preview:     f.Preview,
		}.WithOrder(i))
	}
	return out
}

// flagKeys orders flag keys: Order first, the rest by group then key.
func (r *Registry) flagKeys() []string {
	seen := make(map[string]bool, len(r.opts.Flags))
	var keys []string
	for _, k := range r.opts.Order {
		if _, ok := r.opts.Flags[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range r.opts.Flags {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		a, b := r.opts.Flags[rest[i]], r.opts.Flags[rest[j]]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return rest[i] < rest[j]
	})
	return append(keys, rest...)
}
