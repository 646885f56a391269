package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/hts-derivatives/internal/app"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive screen and blocks until the user quits or ctx
// is canceled.
func Run(ctx context.Context, ctrl *app.Controller, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	p := tea.NewProgram(newModel(ctx, ctrl, cfg), programOpts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
