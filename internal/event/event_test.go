package event

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/palette/internal/model"
)

func TestType_StringRoundTrip(t *testing.T) {
	for _, typ := range Types() {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	assert.Equal(t, "validation-failed", ValidationFailed.String())
	assert.Equal(t, "drag-enter", DragEnter.String())
	assert.Len(t, Types(), 24)

	_, err := ParseType("keypress")
	assert.Error(t, err)
	assert.Equal(t, "event(99)", Type(99).String())
}

func TestDispatch_NoHandler(t *testing.T) {
	d := NewDispatcher(nil, nil)
	assert.NoError(t, d.Dispatch(context.Background(), Event{Type: Input}, model.AppState{}))
}

func TestOn_Replaces(t *testing.T) {
	d := NewDispatcher(nil, nil)
	var got []string
	d.On(Input, func(context.Context, Event, model.AppState) error {
		got = append(got, "first")
		return nil
	})
	d.On(Input, func(context.Context, Event, model.AppState) error {
		got = append(got, "second")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), Event{Type: Input}, model.AppState{}))
	assert.Equal(t, []string{"second"}, got)

	d.On(Input, nil)
	assert.False(t, d.Has(Input))
}

func TestDispatch_HandlerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	boom := errors.New("boom")

	d := NewDispatcher(logger, map[Type]Handler{
		Submit: func(context.Context, Event, model.AppState) error { return boom },
	})

	err := d.Dispatch(context.Background(), Event{Type: Submit}, model.AppState{})
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, Submit, herr.Event)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "event handler failed")
	assert.Contains(t, buf.String(), "event=submit")

	// The dispatcher keeps working.
	d.On(Submit, func(context.Context, Event, model.AppState) error { return nil })
	assert.NoError(t, d.Dispatch(context.Background(), Event{Type: Submit}, model.AppState{}))
}

func TestDispatch_PanicIsolated(t *testing.T) {
	d := NewDispatcher(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), map[Type]Handler{
		Change: func(context.Context, Event, model.AppState) error { panic("bad handler") },
	})

	err := d.Dispatch(context.Background(), Event{Type: Change}, model.AppState{})
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Contains(t, err.Error(), "bad handler")
}

func TestDispatch_HandlerSeesSnapshot(t *testing.T) {
	d := NewDispatcher(nil, nil)
	focused := model.Choice{Name: "foo"}
	state := model.AppState{Input: "f", Focused: &focused, Modifiers: []string{"shift"}}

	d.On(Input, func(_ context.Context, ev Event, s model.AppState) error {
		assert.Equal(t, "f", ev.Text)
		s.Focused.Name = "mutated"
		s.Modifiers[0] = "mutated"
		return nil
	})
	require.NoError(t, d.Dispatch(context.Background(), Event{Type: Input, Text: "f"}, state))

	assert.Equal(t, "foo", focused.Name)
	assert.Equal(t, "shift", state.Modifiers[0])
}

func TestDispatch_Sequential(t *testing.T) {
	var running, overlaps atomic.Int32
	d := NewDispatcher(nil, map[Type]Handler{
		Input: func(context.Context, Event, model.AppState) error {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return nil
		},
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), Event{Type: Input}, model.AppState{})
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
}
