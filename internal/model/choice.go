// Package model defines the data shared by every stage of the prompt engine:
// candidate choices, their scored form, and the session state snapshot handed
// to callbacks and renderers.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyName is returned when a choice has neither a name nor a printable value.
var ErrEmptyName = errors.New("choice has no display name")

// Choice is one candidate entry offered to the user.
type Choice struct {
	ID          string // Stable identity; Name is used when empty
	Name        string // Display name, never empty after normalization
	Value       any    // Submitted value; defaults to Name
	Description string
	Icon        string
	Tag         string
	Preview     Preview
	Group       string

	Skip             bool // Displayed but never focusable (group headers)
	Miss             bool // Dropped when the input is non-empty and does not match
	Pass             bool // Bypasses scoring, always included in place
	DisableSubmit    bool // Enter on this choice does nothing
	HideWithoutInput bool // Hidden until the user types something

	// Info marks an informational row: never filtered, never focused.
	Info InfoMode

	// Shortcodes submit the choice as soon as the input equals one of
	// them, ignoring case.
	Shortcodes []string
	// Shortcut is a key combination that submits the choice while it is
	// listed.
	Shortcut string

	// OnFocus runs when the choice gains focus. A non-empty result
	// replaces the prompt hint until focus moves on.
	OnFocus ChoiceFunc
	// OnSubmit runs after validation accepts the choice. A non-empty
	// result replaces the submitted value; an error rejects the
	// submission like a validator would.
	OnSubmit ChoiceFunc

	// Choices are nested sub-choices. Submitting a choice that has them
	// drills into the sub-list instead of ending the session.
	Choices []Choice

	order int // Position in the source, assigned by the store
}

// InfoMode controls when an informational row is shown.
type InfoMode string

const (
	InfoAlways      InfoMode = "always"      // Shown above the list for any input
	InfoOnNoChoices InfoMode = "onNoChoices" // Shown only when nothing else is listed
)

// ChoiceFunc is a per-choice callback. It may block; ctx ends with the
// session.
type ChoiceFunc func(ctx context.Context, input string, state AppState) (string, error)

// Key returns the identity used to follow a choice across list changes.
func (c Choice) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// Focusable reports whether the choice can hold focus.
func (c Choice) Focusable() bool {
	return !c.Skip && c.Info == ""
}

// HasShortcode reports whether input equals one of the choice's
// shortcodes, ignoring case and surrounding space.
func (c Choice) HasShortcode(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	for _, code := range c.Shortcodes {
		if strings.EqualFold(strings.TrimSpace(code), input) {
			return true
		}
	}
	return false
}

// Order returns the choice's position in its source generation.
func (c Choice) Order() int {
	return c.order
}

// WithOrder returns a copy of c with its source position set.
func (c Choice) WithOrder(i int) Choice {
	c.order = i
	return c
}

// Clone returns a copy of c that shares no slices with the original.
func (c Choice) Clone() Choice {
	c.Shortcodes = append([]string(nil), c.Shortcodes...)
	if len(c.Choices) > 0 {
		nested := make([]Choice, len(c.Choices))
		for i, sub := range c.Choices {
			nested[i] = sub.Clone()
		}
		c.Choices = nested
	}
	return c
}

// PreviewFunc renders preview content for the current input and state.
// It may block; callers pass a context that is cancelled when the result
// is no longer wanted.
type PreviewFunc func(ctx context.Context, input string, state AppState) (string, error)

// Preview is either literal text or a function producing it.
type Preview struct {
	Text string
	Func PreviewFunc
}

// IsZero reports whether no preview is configured.
func (p Preview) IsZero() bool {
	return p.Text == "" && p.Func == nil
}

// Render resolves the preview. Literal text wins over the function.
func (p Preview) Render(ctx context.Context, input string, state AppState) (string, error) {
	if p.Text != "" || p.Func == nil {
		return p.Text, nil
	}
	return p.Func(ctx, input, state)
}

// Normalize turns a mixed sequence of strings and choices into choices.
// Bare strings become choices whose name and value equal the string.
// Text fields are NFC-normalized so matching treats composed and
// decomposed forms alike.
func Normalize(items ...any) ([]Choice, error) {
	out := make([]Choice, 0, len(items))
	for i, item := range items {
		c, err := normalizeOne(item)
		if err != nil {
			return nil, fmt.Errorf("choice %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Strings is a convenience wrapper around Normalize for string slices.
func Strings(items ...string) []Choice {
	out := make([]Choice, len(items))
	for i, s := range items {
		s = norm.NFC.String(s)
		out[i] = Choice{Name: s, Value: s}
	}
	return out
}

func normalizeOne(item any) (Choice, error) {
	var c Choice
	switch v := item.(type) {
	case string:
		c = Choice{Name: v, Value: v}
	case Choice:
		c = v
	case *Choice:
		if v == nil {
			return Choice{}, ErrEmptyName
		}
		c = *v
	case fmt.Stringer:
		s := v.String()
		c = Choice{Name: s, Value: item}
	default:
		return Choice{}, fmt.Errorf("unsupported choice type %T", item)
	}
	return finish(c)
}

func finish(c Choice) (Choice, error) {
	if c.Name == "" && c.Value != nil {
		c.Name = fmt.Sprint(c.Value)
	}
	if c.Name == "" {
		return Choice{}, ErrEmptyName
	}
	c.Name = norm.NFC.String(c.Name)
	c.Description = norm.NFC.String(c.Description)
	if c.Value == nil {
		c.Value = c.Name
	}
	if len(c.Choices) > 0 {
		nested := make([]Choice, 0, len(c.Choices))
		for i, sub := range c.Choices {
			n, err := finish(sub)
			if err != nil {
				return Choice{}, fmt.Errorf("sub-choice %d of %q: %w", i, c.Name, err)
			}
			nested = append(nested, n.WithOrder(i))
		}
		c.Choices = nested
	}
	return c, nil
}
