// ABOUTME: TUI initialization and control
// ABOUTME: Feeds hub snapshots and receiver status into the bubbletea program
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lisa-project/lisa-odas/internal/hub"
	"github.com/lisa-project/lisa-odas/pkg/odas"
)

const refreshInterval = 100 * time.Millisecond

// Dashboard runs the receiver TUI.
type Dashboard struct {
	name     string
	params   odas.Params
	quitChan chan struct{}
}

// NewDashboard creates a dashboard for a receiver decoding params.
func NewDashboard(name string, params odas.Params) *Dashboard {
	return &Dashboard{
		name:     name,
		params:   params,
		quitChan: make(chan struct{}, 1),
	}
}

// QuitChan signals when the user asked to quit
func (d *Dashboard) QuitChan() <-chan struct{} {
	return d.quitChan
}

// Run blocks until the user quits or ctx is cancelled. status is polled on
// every refresh.
func (d *Dashboard) Run(ctx context.Context, h *hub.Hub, status func() StatusMsg) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(d.name, d.params.Stamp(), d.quitChan), tea.WithAltScreen())

	sub := h.Subscribe(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer h.Unsubscribe(sub)
		feed(ctx, program, sub, newCollector(d.params), status)
	}()

	go func() {
		select {
		case <-ctx.Done():
			program.Quit()
		case <-done:
		}
	}()

	_, err := program.Run()
	cancel()
	<-done
	return err
}

// feed folds events into c and pushes a snapshot every refresh.
func feed(ctx context.Context, p *tea.Program, sub *hub.Subscription, c *collector, status func() StatusMsg) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.add(ev)
		case <-ticker.C:
			p.Send(c.snapshot())
			if status != nil {
				p.Send(status())
			}
		}
	}
}
