// Package prompt implements the prompt state machine: it owns the input
// text, drives choice production with debouncing and cancellation, ranks
// and focuses the results, and routes every transition through the event
// dispatcher.
//
// All state changes happen on the goroutine running Run. Other goroutines
// talk to the session by posting messages (Send, Key, SetInput, ...), which
// are processed one at a time in arrival order.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runger/palette/internal/event"
	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/focus"
	"github.com/runger/palette/internal/model"
	"github.com/runger/palette/internal/source"
	"github.com/runger/palette/internal/store"
)

// level is a saved choice list left by drilling into nested choices.
type level struct {
	producer source.Producer
	input    string
	focusKey string
}

// Session is one prompt invocation.
type Session struct {
	cfg        Config
	id         string
	logger     *slog.Logger
	store      *store.Store
	dispatcher *event.Dispatcher
	registry   *flags.Registry
	tracker    *focus.Tracker
	inbox      *inbox

	statusMu sync.RWMutex
	status   Status

	snapMu sync.RWMutex
	snap   Snapshot

	// Owned by the Run goroutine.
	ctx          context.Context
	producer     source.Producer
	input        string
	cursor       int
	modifiers    []string
	ranked       []model.ScoredChoice
	state        model.AppState
	loading      bool
	lastErr      error
	pendingFocus string
	stack        []level

	debounceID    uint64
	debounceTimer *time.Timer
	cancelPull    context.CancelFunc

	focusKey      string
	focusID       uint64
	focusTimer    *time.Timer
	cancelPreview context.CancelFunc
	preview       string
	focusHint     string // Hint returned by the focused choice's OnFocus

	menuOpen bool
	menu     *focus.Tracker
	menuList []model.ScoredChoice

	noChoicesKey string // input+generation of the last no-choices event
	finished     bool
	result       Result
}

// New validates cfg and returns an idle session.
func New(cfg Config) (*Session, error) {
	producer, err := source.From(cfg.Choices)
	if err != nil {
		return nil, fmt.Errorf("configure choices: %w", err)
	}
	registry, err := flags.NewRegistry(cfg.Flags, cfg.Shortcuts...)
	if err != nil {
		return nil, fmt.Errorf("configure shortcuts: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:          cfg,
		id:           uuid.NewString(),
		store:        store.New(),
		dispatcher:   event.NewDispatcher(logger, cfg.Handlers),
		registry:     registry,
		tracker:      focus.New(focus.Options{Wrap: !cfg.NoWrap, Tabs: cfg.Tabs, TabIndex: cfg.TabIndex}),
		menu:         focus.New(focus.Options{Wrap: true}),
		inbox:        newInbox(),
		status:       Idle,
		producer:     producer,
		input:        cfg.Input,
		cursor:       len([]rune(cfg.Input)),
		pendingFocus: cfg.DefaultChoiceID,
	}
	s.logger = logger.With("session", s.id)
	s.rebuildState(false)
	s.snap = s.snapshot()
	return s, nil
}

// ID returns the session identifier carried in every AppState.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Session) setStatus(st Status) {
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// On registers a handler, replacing any earlier one for t.
func (s *Session) On(t event.Type, h event.Handler) {
	s.dispatcher.On(t, h)
}

// Send posts an event reported by the renderer. It returns ErrClosed once
// the session has finished.
func (s *Session) Send(ev event.Event) error {
	return s.post(eventMsg{ev: ev})
}

// Key posts a key press such as "down", "enter" or "cmd+o".
func (s *Session) Key(key string) error {
	return s.post(keyMsg{key: key})
}

// SetInput replaces the input text. A negative cursor puts the cursor at
// the end.
func (s *Session) SetInput(text string, cursor int) error {
	return s.Send(event.Event{Type: event.Input, Text: text, Cursor: cursor})
}

// Submit requests submission of the focused choice, or of the typed input
// when nothing is focused.
func (s *Session) Submit() error {
	return s.Send(event.Event{Type: event.Submit})
}

// SubmitValue submits v directly. The validator still runs.
func (s *Session) SubmitValue(v any) error {
	return s.post(submitValueMsg{value: v})
}

// Abort ends the session as aborted.
func (s *Session) Abort() error {
	return s.post(abortMsg{})
}

// SetChoices swaps the choice source and pulls it.
func (s *Session) SetChoices(src any) error {
	p, err := source.From(src)
	if err != nil {
		return err
	}
	return s.post(setChoicesMsg{producer: p})
}

// SelectFlag marks a declared flag as active. An empty key clears it.
func (s *Session) SelectFlag(key string) error {
	if key != "" {
		if _, ok := s.registry.Flag(key); !ok {
			return fmt.Errorf("%w: %s", flags.ErrUnknownFlag, key)
		}
	}
	return s.post(selectFlagMsg{key: key})
}

// Shortcuts exposes the registered shortcuts for renderers.
func (s *Session) Shortcuts() []flags.Shortcut {
	return s.registry.Shortcuts()
}

func (s *Session) post(msg any) error {
	if !s.inbox.push(msg) {
		return ErrClosed
	}
	return nil
}

// Run starts the session and blocks until it is submitted, aborted or
// timed out. Cancelling ctx aborts the session.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.statusMu.Lock()
	if s.status != Idle {
		s.statusMu.Unlock()
		return Result{}, ErrNotIdle
	}
	s.status = Active
	s.statusMu.Unlock()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if s.cfg.Timeout > 0 {
		timer := time.AfterFunc(s.cfg.Timeout, func() {
			cancel(&TimeoutError{After: s.cfg.Timeout})
		})
		defer timer.Stop()
	}
	s.ctx = ctx
	defer s.shutdown()

	s.logger.Debug("prompt started")
	s.startPull()
	s.refresh(false)
	s.dispatch(event.Event{Type: event.Init, Text: s.input})

	for !s.finished {
		if ctx.Err() != nil {
			return s.interrupted(context.Cause(ctx))
		}
		msg, ok := s.inbox.pop()
		if !ok {
			select {
			case <-ctx.Done():
			case <-s.inbox.ready:
			}
			continue
		}
		s.handle(msg)
	}

	if s.Status() == Submitted {
		s.logger.Debug("prompt submitted", "flag", s.result.Flag)
		return s.result, nil
	}
	return s.result, ErrAborted
}

// interrupted ends the session because its context was cancelled.
func (s *Session) interrupted(cause error) (Result, error) {
	s.cancelInflight()
	res := Result{Input: s.input, State: s.state.Clone()}
	if _, ok := cause.(*TimeoutError); ok {
		s.setStatus(TimedOut)
		s.logger.Info("prompt timed out", "after", s.cfg.Timeout)
		s.publish()
		return res, cause
	}
	s.setStatus(Aborted)
	s.publish()
	return res, fmt.Errorf("%w: %w", ErrAborted, cause)
}

func (s *Session) shutdown() {
	s.inbox.close()
	s.cancelInflight()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.focusTimer != nil {
		s.focusTimer.Stop()
	}
	if s.cancelPreview != nil {
		s.cancelPreview()
	}
}

// dispatch runs the handler for ev against the current state. Handler
// failures are reported and otherwise ignored.
func (s *Session) dispatch(ev event.Event) {
	if !s.dispatcher.Has(ev.Type) {
		return
	}
	if ev.Modifiers == nil {
		ev.Modifiers = s.modifiers
	}
	state := s.state.Clone()
	err := s.await(func() error { return s.dispatcher.Dispatch(s.ctx, ev, state) })
	if err != nil && s.ctx.Err() == nil {
		s.notify(err)
	}
}

// await runs fn off the loop and waits for it or for the session context,
// whichever ends first. A result arriving after the context ended is
// dropped; the loop sees the cancellation on its next turn.
func (s *Session) await(fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-s.ctx.Done():
		return context.Cause(s.ctx)
	}
}

// report records an error that does not end the session.
func (s *Session) report(err error) {
	s.logger.Warn("prompt error", "error", err)
	s.lastErr = err
	s.notify(err)
}

func (s *Session) notify(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}
