package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runger/palette/internal/event"
	"github.com/runger/palette/internal/filter"
	"github.com/runger/palette/internal/flags"
	"github.com/runger/palette/internal/focus"
	"github.com/runger/palette/internal/model"
	"github.com/runger/palette/internal/source"
)

// Messages processed by the session loop.
type (
	eventMsg struct {
		ev event.Event
	}

	keyMsg struct {
		key string
	}

	submitValueMsg struct {
		value any
	}

	abortMsg struct{}

	setChoicesMsg struct {
		producer source.Producer
	}

	selectFlagMsg struct {
		key string
	}

	// debounceMsg fires after the input debounce timer expires.
	debounceMsg struct {
		id uint64 // Must match debounceID to be accepted
	}

	// batchMsg carries one batch from a pull tagged with its generation.
	batchMsg struct {
		gen     uint64
		choices []model.Choice
		replace bool
		done    bool
		err     error
	}

	// focusMsg fires after the choice-focus debounce expires.
	focusMsg struct {
		id uint64
	}

	previewMsg struct {
		id   uint64
		text string
		err  error
	}
)

func (s *Session) handle(msg any) {
	switch msg := msg.(type) {
	case eventMsg:
		s.handleEvent(msg.ev)
	case keyMsg:
		s.handleKey(msg.key)
	case submitValueMsg:
		s.finishWith(msg.value, nil)
	case abortMsg:
		s.abort(nil)
	case setChoicesMsg:
		s.producer = msg.producer
		s.startPull()
	case selectFlagMsg:
		if msg.key == "" {
			s.registry.Clear()
		} else if err := s.registry.Select(msg.key); err != nil {
			s.report(err)
		}
		s.rebuildState(false)
		s.publish()
	case debounceMsg:
		if msg.id == s.debounceID {
			s.startPull()
		}
	case batchMsg:
		s.handleBatch(msg)
	case focusMsg:
		s.handleFocus(msg)
	case previewMsg:
		s.handlePreview(msg)
	default:
		s.logger.Debug("ignoring unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

func (s *Session) handleEvent(ev event.Event) {
	if len(ev.Modifiers) > 0 {
		s.modifiers = append([]string(nil), ev.Modifiers...)
	}
	switch ev.Type {
	case event.Input:
		s.setInput(ev.Text, ev.Cursor)
	case event.Paste:
		s.paste(ev)
	case event.Up:
		s.navigate(focus.Up, ev)
	case event.Down:
		s.navigate(focus.Down, ev)
	case event.Left:
		s.navigate(focus.Left, ev)
	case event.Right:
		s.navigate(focus.Right, ev)
	case event.Tab:
		s.cycleTab(1, ev)
	case event.Submit:
		s.submit()
	case event.Escape:
		s.escape(ev)
	case event.Abandon:
		s.abort(&ev)
	case event.Blur:
		s.dispatch(ev)
		if !s.cfg.IgnoreBlur {
			s.abort(&event.Event{Type: event.Abandon})
		}
	case event.Back:
		s.back(ev)
	default:
		// Forward, drag and drop, audio and message focus belong to the
		// handlers alone.
		s.dispatch(ev)
	}
}

func (s *Session) handleKey(raw string) {
	key := flags.NormalizeKey(raw)
	if parts := strings.Split(key, "+"); len(parts) > 1 {
		s.modifiers = parts[:len(parts)-1]
	} else {
		s.modifiers = nil
	}

	if s.menuOpen {
		s.handleMenuKey(key)
		return
	}
	if key == s.cfg.flagsMenuKey() && s.registry.Enabled() {
		s.openMenu()
		return
	}
	if sc, ok := s.registry.Resolve(key, s.state.Focused); ok {
		s.trigger(sc)
		return
	}
	if c, ok := s.choiceShortcut(key); ok {
		s.submitChoice(c)
		return
	}

	ev := event.Event{Key: key}
	switch key {
	case "up", "ctrl+p":
		s.navigate(focus.Up, ev)
	case "down", "ctrl+n":
		s.navigate(focus.Down, ev)
	case "left":
		s.navigate(focus.Left, ev)
	case "right":
		s.navigate(focus.Right, ev)
	case "home":
		s.navigate(focus.First, ev)
	case "end":
		s.navigate(focus.Last, ev)
	case "tab":
		s.cycleTab(1, ev)
	case "shift+tab":
		s.cycleTab(-1, ev)
	case "enter":
		s.submit()
	case "esc", "escape":
		s.escape(ev)
	case "ctrl+c":
		s.abort(&event.Event{Type: event.Abandon, Key: key})
	default:
		s.logger.Debug("unbound key", "key", key)
	}
}

// trigger runs a shortcut. The press handler is awaited before the next
// message is processed; its flag is marked only if it returns in time.
func (s *Session) trigger(sc flags.Shortcut) {
	s.state.Shortcut = sc.Key
	input, state := s.input, s.state.Clone()
	err := s.await(func() error { return s.registry.Press(s.ctx, sc, input, state) })
	if s.ctx.Err() != nil {
		return
	}
	if err != nil {
		s.report(err)
	} else {
		s.registry.Activate(sc)
	}
	s.rebuildState(false)
	s.publish()
}

// choiceShortcut finds the listed choice bound to key.
func (s *Session) choiceShortcut(key string) (model.Choice, bool) {
	for _, sc := range s.ranked {
		if sc.Shortcut != "" && sc.Info == "" && flags.NormalizeKey(sc.Shortcut) == key {
			return sc.Choice, true
		}
	}
	return model.Choice{}, false
}

// shortcode finds the choice of the current generation whose shortcode
// equals the input.
func (s *Session) shortcode() (model.Choice, bool) {
	items, _ := s.store.Current()
	for _, c := range items {
		if c.Info == "" && c.HasShortcode(s.input) {
			return c, true
		}
	}
	return model.Choice{}, false
}

func (s *Session) setInput(text string, cursor int) {
	if n := len([]rune(text)); cursor < 0 || cursor > n {
		cursor = n
	}
	s.cursor = cursor
	if text == s.input {
		s.rebuildState(false)
		s.publish()
		return
	}

	s.input = text
	if s.producer.Dynamic() {
		s.cancelInflight()
		s.store.Invalidate()
		s.loading = true
		s.startDebounce()
	}
	s.refresh(true)
	s.dispatch(event.Event{Type: event.Input, Text: text, Cursor: cursor})
	s.dispatch(event.Event{Type: event.Change, Text: text, Cursor: cursor})

	if c, ok := s.shortcode(); ok && !s.finished && s.ctx.Err() == nil {
		s.logger.Debug("shortcode typed", "choice", c.Key())
		s.submitChoice(c)
	}
}

func (s *Session) paste(ev event.Event) {
	runes := []rune(s.input)
	at := min(max(s.cursor, 0), len(runes))
	text := string(runes[:at]) + ev.Text + string(runes[at:])

	s.state.Paste = ev.Text
	s.setInput(text, at+len([]rune(ev.Text)))
	ev.Cursor = s.cursor
	s.dispatch(ev)
}

func (s *Session) navigate(dir focus.Direction, ev event.Event) {
	s.tracker.Move(dir)
	s.rebuildState(false)
	s.publish()
	s.focusChanged()

	switch dir {
	case focus.Up:
		ev.Type = event.Up
	case focus.Down:
		ev.Type = event.Down
	case focus.Left:
		ev.Type = event.Left
	case focus.Right:
		ev.Type = event.Right
	default:
		return
	}
	s.dispatch(ev)
}

func (s *Session) cycleTab(delta int, ev event.Event) {
	ev.Type = event.Tab
	if name, _, ok := s.tracker.CycleTab(delta); ok {
		ev.Text = name
		s.rebuildState(false)
		s.publish()
	}
	s.dispatch(ev)
}

func (s *Session) escape(ev event.Event) {
	if s.menuOpen {
		s.closeMenu()
		return
	}
	ev.Type = event.Escape
	s.dispatch(ev)
	s.abort(nil)
}

// abort ends the session. A non-nil ev is dispatched first.
func (s *Session) abort(ev *event.Event) {
	if ev != nil {
		ev.Type = event.Abandon
		s.dispatch(*ev)
	}
	s.setStatus(Aborted)
	s.result = Result{Input: s.input, State: s.state.Clone()}
	s.finished = true
	s.cancelInflight()
	s.publish()
}

func (s *Session) submit() {
	c, ok := s.tracker.Current()
	if !ok {
		if s.cfg.Strict {
			s.logger.Debug("strict prompt: nothing focused to submit")
			return
		}
		s.finishWith(s.input, nil)
		return
	}
	s.submitChoice(c)
}

// submitChoice drills into c or submits its value.
func (s *Session) submitChoice(c model.Choice) {
	if len(c.Choices) > 0 {
		s.drillIn(c)
		return
	}
	if c.DisableSubmit {
		s.logger.Debug("submit disabled for choice", "choice", c.Key())
		return
	}
	s.finishWith(c.Value, &c)
}

// finishWith validates value and, if accepted, completes the session.
func (s *Session) finishWith(value any, choice *model.Choice) {
	s.setStatus(Validating)
	s.publish()

	if s.cfg.Validate != nil {
		err := s.await(func() error { return validate(s.ctx, s.cfg.Validate, value) })
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.reject(value, err)
			return
		}
	}
	if choice != nil && choice.OnSubmit != nil {
		fn, input, state := choice.OnSubmit, s.input, s.state.Clone()
		var replaced string
		err := s.await(func() (err error) {
			replaced, err = callChoice(s.ctx, fn, input, state)
			return err
		})
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.reject(value, err)
			return
		}
		if replaced != "" {
			value = replaced
		}
	}

	s.rebuildState(false)
	s.state.Submitted = true
	s.state.Value = value
	s.result = Result{
		Value:  value,
		Flag:   s.registry.Active(),
		Input:  s.input,
		Choice: choice,
		State:  s.state.Clone(),
	}
	s.setStatus(Submitted)
	s.finished = true
	s.cancelInflight()
	s.publish()
	s.dispatch(event.Event{Type: event.Submit, Text: s.input})
}

// reject returns a refused submission to Active.
func (s *Session) reject(value any, err error) {
	verr := &ValidationError{Value: value, Reason: err.Error(), Cause: err}
	s.setStatus(Active)
	s.lastErr = verr
	s.logger.Debug("validation failed", "reason", verr.Reason)
	s.publish()
	s.dispatch(event.Event{Type: event.ValidationFailed, Text: s.input, Reason: verr.Reason})
}

func callChoice(ctx context.Context, fn model.ChoiceFunc, input string, state model.AppState) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("choice callback panic: %v", r)
		}
	}()
	return fn(ctx, input, state)
}

func validate(ctx context.Context, fn ValidateFunc, value any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return fn(ctx, value)
}

// drillIn replaces the list with the nested choices of c.
func (s *Session) drillIn(c model.Choice) {
	s.stack = append(s.stack, level{producer: s.producer, input: s.input, focusKey: c.Key()})
	s.producer = source.Static(c.Choices)
	s.input = ""
	s.cursor = 0
	s.tracker.Clear()
	s.cancelInflight()
	s.store.Load(c.Choices)
	s.loading = false
	s.refresh(true)
}

func (s *Session) back(ev event.Event) {
	if n := len(s.stack); n > 0 {
		prev := s.stack[n-1]
		s.stack = s.stack[:n-1]
		s.producer = prev.producer
		s.input = prev.input
		s.cursor = len([]rune(prev.input))
		s.tracker.Clear()
		s.pendingFocus = prev.focusKey
		s.store.Load(nil)
		s.startPull()
		s.refresh(true)
	}
	ev.Type = event.Back
	s.dispatch(ev)
}

func (s *Session) openMenu() {
	s.menuList = filter.Score(s.registry.Menu(), "", filter.Options{})
	s.menu.Reconcile(s.menuList)
	if active := s.registry.Active(); active != "" {
		s.menu.FocusKey(active)
	}
	s.menuOpen = true
	s.publish()
}

func (s *Session) closeMenu() {
	s.menuOpen = false
	s.menuList = nil
	s.publish()
}

func (s *Session) handleMenuKey(key string) {
	switch key {
	case "up", "ctrl+p":
		s.menu.Move(focus.Up)
		s.publish()
	case "down", "ctrl+n":
		s.menu.Move(focus.Down)
		s.publish()
	case "enter":
		if c, ok := s.menu.Current(); ok {
			if err := s.registry.Select(c.Key()); err != nil {
				s.report(err)
			}
			s.rebuildState(false)
		}
		s.closeMenu()
	case "esc", "escape", s.cfg.flagsMenuKey():
		s.closeMenu()
	}
}

// startDebounce restarts the input debounce timer.
func (s *Session) startDebounce() {
	s.debounceID++
	id := s.debounceID
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.cfg.debounceInput(), func() {
		_ = s.post(debounceMsg{id: id})
	})
}

// startPull cancels any pull in flight, reserves a new generation and
// streams the producer's batches back to the loop.
func (s *Session) startPull() {
	s.cancelInflight()
	gen := s.store.Reserve()
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelPull = cancel
	s.loading = true

	p, input := s.producer, s.input
	go func() {
		first := true
		for batch, err := range p.Produce(ctx, input) {
			if err != nil {
				_ = s.post(batchMsg{gen: gen, err: err})
				return
			}
			_ = s.post(batchMsg{gen: gen, choices: batch, replace: first})
			first = false
		}
		_ = s.post(batchMsg{gen: gen, replace: first, done: true})
	}()
}

// cancelInflight cancels the in-flight pull context.
func (s *Session) cancelInflight() {
	if s.cancelPull != nil {
		s.cancelPull()
		s.cancelPull = nil
	}
}

func (s *Session) handleBatch(msg batchMsg) {
	if msg.err != nil {
		if !s.store.IsCurrent(msg.gen) {
			return
		}
		s.store.Commit(msg.gen, nil, true)
		s.loading = false
		s.cancelInflight()
		var cse *source.ChoiceSourceError
		if !errors.As(msg.err, &cse) {
			msg.err = &source.ChoiceSourceError{Cause: msg.err}
		}
		s.report(msg.err)
		s.refresh(false)
		return
	}

	if !s.store.Commit(msg.gen, msg.choices, msg.replace) {
		s.logger.Debug("dropping stale batch", "generation", msg.gen)
		return
	}
	if msg.replace {
		s.lastErr = nil
	}
	if msg.done {
		s.loading = false
		s.cancelInflight()
	}
	s.refresh(false)
}

// refresh rescores the committed generation, reconciles focus and
// publishes a snapshot.
func (s *Session) refresh(inputChanged bool) {
	items, gen := s.store.Current()
	s.ranked = filter.Score(items, s.input, filter.Options{
		MatchDescription: s.cfg.MatchDescription,
		Disabled:         s.cfg.DisableFilter,
	})
	s.tracker.Reconcile(s.ranked)
	if s.pendingFocus != "" {
		if s.tracker.FocusKey(s.pendingFocus) || !s.loading {
			s.pendingFocus = ""
		}
	}
	s.rebuildState(inputChanged)
	s.state.Generation = gen
	s.publish()
	s.focusChanged()

	if !listed(s.ranked) && !s.loading {
		key := fmt.Sprintf("%d\x00%s", gen, s.input)
		if key != s.noChoicesKey {
			s.noChoicesKey = key
			suggestion, _ := filter.Closest(items, s.input)
			s.dispatch(event.Event{Type: event.NoChoices, Text: s.input, Suggestion: suggestion})
		}
	}
}

// rebuildState replaces the AppState wholesale from loop-owned fields.
func (s *Session) rebuildState(inputChanged bool) {
	prev := s.state
	st := model.AppState{
		SessionID:    s.id,
		Input:        s.input,
		InputChanged: inputChanged,
		Flag:         s.registry.Active(),
		Index:        -1,
		Count:        s.tracker.Count(),
		Modifiers:    append([]string(nil), s.modifiers...),
		Shortcut:     prev.Shortcut,
		Paste:        prev.Paste,
		Cursor:       s.cursor,
		Generation:   prev.Generation,
	}
	if c, idx, ok := s.tracker.Focused(); ok {
		cc := c.Clone()
		st.Focused = &cc
		st.Value = c.Value
		st.Index = idx
	}
	st.Tab, st.TabIndex = s.tracker.Tab()
	s.state = st
}

// focusChanged schedules the choice-focus event and preview when the
// focused identity differs from the last one seen.
func (s *Session) focusChanged() {
	key := ""
	if s.state.Focused != nil {
		key = s.state.Focused.Key()
	}
	if key == s.focusKey {
		return
	}
	s.focusKey = key
	s.focusID++
	id := s.focusID
	s.focusHint = ""

	if s.cancelPreview != nil {
		s.cancelPreview()
		s.cancelPreview = nil
	}
	if s.focusTimer != nil {
		s.focusTimer.Stop()
	}
	if d := s.cfg.DebounceChoiceFocus; d > 0 {
		s.focusTimer = time.AfterFunc(d, func() { _ = s.post(focusMsg{id: id}) })
		return
	}
	_ = s.post(focusMsg{id: id})
}

func (s *Session) handleFocus(msg focusMsg) {
	if msg.id != s.focusID {
		return
	}
	if s.state.Focused != nil {
		s.dispatch(event.Event{Type: event.ChoiceFocus, Text: s.input})
		if fn := s.state.Focused.OnFocus; fn != nil && s.ctx.Err() == nil {
			s.runOnFocus(fn)
		}
		if s.ctx.Err() != nil {
			return
		}
	}
	s.startPreview(msg.id)
}

// runOnFocus awaits the focused choice's OnFocus callback and shows its
// result as the hint.
func (s *Session) runOnFocus(fn model.ChoiceFunc) {
	input, state := s.input, s.state.Clone()
	var hint string
	err := s.await(func() (err error) {
		hint, err = callChoice(s.ctx, fn, input, state)
		return err
	})
	switch {
	case s.ctx.Err() != nil:
	case err != nil:
		s.report(fmt.Errorf("focus %s: %w", state.Focused.Key(), err))
	case hint != s.focusHint:
		s.focusHint = hint
		s.publish()
	}
}

// listed reports whether ranked holds anything that can be focused.
func listed(ranked []model.ScoredChoice) bool {
	for _, sc := range ranked {
		if sc.Focusable() {
			return true
		}
	}
	return false
}

// startPreview renders the focused choice's preview, falling back to the
// prompt-wide one. Function previews run off the loop and are dropped if
// focus moved on before they finish.
func (s *Session) startPreview(id uint64) {
	var p model.Preview
	if s.state.Focused != nil {
		p = s.state.Focused.Preview
	}
	if p.IsZero() {
		p = s.cfg.Preview
	}
	if p.Func == nil || p.Text != "" {
		if s.preview != p.Text {
			s.preview = p.Text
			s.publish()
		}
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelPreview = cancel
	input, state := s.input, s.state.Clone()
	go func() {
		text, err := renderPreview(ctx, p, input, state)
		if ctx.Err() != nil {
			return
		}
		_ = s.post(previewMsg{id: id, text: text, err: err})
	}()
}

func renderPreview(ctx context.Context, p model.Preview, input string, state model.AppState) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("preview panic: %v", r)
		}
	}()
	return p.Render(ctx, input, state)
}

func (s *Session) handlePreview(msg previewMsg) {
	if msg.id != s.focusID {
		return
	}
	s.cancelPreview = nil
	if msg.err != nil {
		s.report(fmt.Errorf("preview: %w", msg.err))
		return
	}
	s.preview = msg.text
	s.publish()
}
