package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/palette/internal/prompt"
)

func headless() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(io.Discard)}
}

func newSession(t *testing.T, bridge *Bridge) *prompt.Session {
	t.Helper()
	s, err := prompt.New(prompt.Config{
		Choices:  []string{"alpha", "beta"},
		Renderer: bridge,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return s
}

type runOutcome struct {
	res prompt.Result
	err error
}

func TestRun_SubmitEndsProgram(t *testing.T) {
	bridge := NewBridge()
	s := newSession(t, bridge)

	done := make(chan runOutcome, 1)
	go func() {
		res, err := Run(context.Background(), s, bridge, Options{}, headless()...)
		done <- runOutcome{res, err}
	}()

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Status == prompt.Active && len(snap.Choices) == 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Submit())

	select {
	case out := <-done:
		require.NoError(t, out.err)
		assert.Equal(t, "alpha", out.res.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRun_ContextCancelAborts(t *testing.T) {
	bridge := NewBridge()
	s := newSession(t, bridge)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan runOutcome, 1)
	go func() {
		res, err := Run(ctx, s, bridge, Options{}, headless()...)
		done <- runOutcome{res, err}
	}()

	require.Eventually(t, func() bool { return s.Status() == prompt.Active }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case out := <-done:
		assert.ErrorIs(t, out.err, prompt.ErrAborted)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestBridge_UnattachedDrops(t *testing.T) {
	b := NewBridge()
	assert.NotPanics(t, func() { b.Render(prompt.Snapshot{}) })
}
