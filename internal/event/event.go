// Package event routes prompt events to at most one handler per event type.
//
// Dispatch is sequential: a handler runs to completion before the next
// event is handled, so handlers never observe overlapping state changes.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/runger/palette/internal/model"
)

// Type enumerates the events a prompt emits.
type Type int

const (
	Input Type = iota
	Change
	Blur
	Up
	Down
	Left
	Right
	Tab
	Paste
	Drop
	DragEnter
	DragLeave
	DragOver
	Init
	Submit
	ValidationFailed
	NoChoices
	Escape
	Abandon
	Back
	Forward
	ChoiceFocus
	MessageFocus
	AudioData
)

var typeNames = [...]string{
	Input:            "input",
	Change:           "change",
	Blur:             "blur",
	Up:               "up",
	Down:             "down",
	Left:             "left",
	Right:            "right",
	Tab:              "tab",
	Paste:            "paste",
	Drop:             "drop",
	DragEnter:        "drag-enter",
	DragLeave:        "drag-leave",
	DragOver:         "drag-over",
	Init:             "init",
	Submit:           "submit",
	ValidationFailed: "validation-failed",
	NoChoices:        "no-choices",
	Escape:           "escape",
	Abandon:          "abandon",
	Back:             "back",
	Forward:          "forward",
	ChoiceFocus:      "choice-focus",
	MessageFocus:     "message-focus",
	AudioData:        "audio-data",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("event(%d)", int(t))
	}
	return typeNames[t]
}

// Types returns every event type in declaration order.
func Types() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// Event is one occurrence delivered to a handler.
type Event struct {
	Type       Type
	Text       string // Input text, pasted text, or dropped path
	Key        string // Key combination for key-driven events
	Data       []byte // Raw payload (drop, audio)
	Modifiers  []string
	Cursor     int
	Reason     string // Validation failure or error text
	Suggestion string // Closest match on no-choices
}

// Handler reacts to an event. The state is a snapshot taken when the event
// was dispatched.
type Handler func(ctx context.Context, ev Event, state model.AppState) error

// HandlerError reports a failing or panicking handler.
type HandlerError struct {
	Event Type
	Cause error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler: %v", e.Event, e.Cause)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// Dispatcher maps event types to handlers.
type Dispatcher struct {
	Logger *slog.Logger

	mu       sync.RWMutex
	handlers map[Type]Handler

	run sync.Mutex // Serializes Dispatch
}

// NewDispatcher returns a dispatcher with the given handlers registered.
func NewDispatcher(logger *slog.Logger, handlers map[Type]Handler) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{Logger: logger, handlers: make(map[Type]Handler, len(handlers))}
	for t, h := range handlers {
		d.On(t, h)
	}
	return d
}

// On registers h for t, replacing any earlier handler. A nil h removes it.
func (d *Dispatcher) On(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = make(map[Type]Handler)
	}
	if h == nil {
		delete(d.handlers, t)
		return
	}
	d.handlers[t] = h
}

// Has reports whether a handler is registered for t.
func (d *Dispatcher) Has(t Type) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[t]
	return ok
}

// Dispatch runs the handler for ev, if any, and waits for it. Errors and
// panics come back as *HandlerError after being logged; the dispatcher
// stays usable either way.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, state model.AppState) error {
	d.mu.RLock()
	h := d.handlers[ev.Type]
	d.mu.RUnlock()
	if h == nil {
		return nil
	}

	d.run.Lock()
	defer d.run.Unlock()

	if err := call(ctx, h, ev, state.Clone()); err != nil {
		herr := &HandlerError{Event: ev.Type, Cause: err}
		d.logger().Warn("event handler failed", "event", ev.Type.String(), "error", err)
		return herr
	}
	return nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func call(ctx context.Context, h Handler, ev Event, state model.AppState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, ev, state)
}
