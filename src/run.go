package src

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the browser and blocks until the operator quits.
func Run(ctx context.Context, opts Options) error {
	m := InitialModel(opts)
	m.ctx = ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case pm := <-m.ProgressChan:
				p.Send(pm)
			case <-done:
				return
			}
		}
	}()
	_, err := p.Run()
	return err
}
