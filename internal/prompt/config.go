package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/runger/palette/internal/event"
	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/model"
)

const (
	// DefaultFlagsMenuKey opens the flag overlay.
	DefaultFlagsMenuKey = "ctrl+k"
	// DefaultDebounceInput is the delay after the last keystroke before a
	// dynamic source is pulled again.
	DefaultDebounceInput = 100 * time.Millisecond
)

// ValidateFunc checks the value about to be submitted. A non-nil error
// rejects it and its text becomes the reason shown to the user.
type ValidateFunc func(ctx context.Context, value any) error

// Renderer receives a snapshot after every transition. Render is called
// from the session goroutine and must not block for long; it may call
// back into the session.
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

// Config is the full configuration of one prompt. It is read-only once
// the session starts.
type Config struct {
	// Choices is anything source.From accepts.
	Choices   any
	Validate  ValidateFunc
	Flags     flags.Options
	Shortcuts []flags.Shortcut
	Preview   model.Preview // Used when the focused choice has none

	DebounceInput       time.Duration // Zero means DefaultDebounceInput; negative disables
	DebounceChoiceFocus time.Duration
	Timeout             time.Duration // Zero means none

	Input       string // Initial input text
	Placeholder string
	Hint        string
	Tabs        []string
	TabIndex    int

	DefaultChoiceID  string // Initially focused choice identity
	Strict           bool   // Only a focused choice can be submitted
	NoWrap           bool
	IgnoreBlur       bool
	MatchDescription bool
	DisableFilter    bool
	FlagsMenuKey     string // Defaults to DefaultFlagsMenuKey

	Handlers map[event.Type]event.Handler
	Renderer Renderer
	Logger   *slog.Logger

	// OnError receives every error reported without ending the session:
	// source failures, handler failures and preview failures.
	OnError func(error)
}

func (c Config) debounceInput() time.Duration {
	switch {
	case c.DebounceInput < 0:
		return 0
	case c.DebounceInput == 0:
		return DefaultDebounceInput
	}
	return c.DebounceInput
}

func (c Config) flagsMenuKey() string {
	if c.FlagsMenuKey == "" {
		return DefaultFlagsMenuKey
	}
	return flags.NormalizeKey(c.FlagsMenuKey)
}

// Result is what a submitted session yields.
type Result struct {
	Value  any
	Flag   string
	Input  string
	Choice *model.Choice // Nil when the typed input was submitted
	State  model.AppState
}
