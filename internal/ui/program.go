package ui

import (
	"context"
	"sync"

	"chatdev/internal/app"
	"chatdev/internal/logging"
	"chatdev/internal/state"

	tea "github.com/charmbracelet/bubbletea"
)

// sender is the part of tea.Program the pump needs.
type sender interface {
	Send(msg tea.Msg)
}

// statePump forwards state snapshots to the program. Observers run on
// the dispatching goroutine, so Notify only records the latest snapshot
// and wakes the pump; intermediate snapshots are coalesced.
type statePump struct {
	program sender

	mu     sync.Mutex
	latest state.State
	wake   chan struct{}
}

func newStatePump(program sender) *statePump {
	return &statePump{program: program, wake: make(chan struct{}, 1)}
}

// Notify is a state.Observer.
func (p *statePump) Notify(s state.State) {
	p.mu.Lock()
	p.latest = s
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run delivers snapshots until ctx ends.
func (p *statePump) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			p.mu.Lock()
			s := p.latest
			p.mu.Unlock()
			p.program.Send(StateMsg{State: s})
		}
	}
}

// Run starts the TUI on a and blocks until the user quits or ctx ends.
func Run(ctx context.Context, a *app.App) error {
	cfg := a.Config()
	m := NewModel(a, cfg.UI)

	program := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pump := newStatePump(program)
	unsubscribe := a.Subscribe(pump.Notify)
	defer unsubscribe()
	go pump.Run(ctx)

	a.OnFinished(func(id string) {
		go program.Send(FinishedMsg{SessionID: id})
	})
	defer a.OnFinished(nil)

	logging.Info("tui started", "base_url", cfg.Server.BaseURL)
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		// Interrupted by a signal; not a UI failure.
		return nil
	}
	return err
}
