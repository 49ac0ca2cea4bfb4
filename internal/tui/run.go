package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/palette/internal/prompt"
)

// Bridge is a prompt.Renderer that forwards snapshots into a running
// Bubble Tea program. Snapshots published before Attach are dropped.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewBridge returns an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Render implements prompt.Renderer. It blocks until the program accepts
// the message or has exited.
func (b *Bridge) Render(s prompt.Snapshot) {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p != nil {
		p.Send(snapshotMsg{snap: s})
	}
}

// Run drives s in a terminal program until the session finishes. s must
// have been created with bridge as its Renderer. Quitting the program
// early cancels the session.
func Run(ctx context.Context, s *prompt.Session, bridge *Bridge, opts Options, progOpts ...tea.ProgramOption) (prompt.Result, error) {
	p := tea.NewProgram(NewModel(s, opts), progOpts...)
	bridge.Attach(p)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result prompt.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Run(ctx)
		done <- outcome{result: res, err: err}
		p.Send(doneMsg{result: res, err: err})
	}()

	_, runErr := p.Run()
	cancel()
	out := <-done

	if runErr != nil && out.err != nil {
		return out.result, fmt.Errorf("%w (terminal: %v)", out.err, runErr)
	}
	return out.result, out.err
}
