package tui

import (
	"context"

	"github.com/Veraticus/hts-derivatives/internal/app"
	tea "github.com/charmbracelet/bubbletea"
)

// searchCmd runs a search in the current mode. The outcome lands in the
// controller state; the message only reports completion.
func searchCmd(ctx context.Context, ctrl *app.Controller, code string) tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg{err: ctrl.Search(ctx, code)}
	}
}

func retryCmd(ctx context.Context, ctrl *app.Controller) tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg{err: ctrl.Retry(ctx)}
	}
}

func scanCmd(ctx context.Context, ctrl *app.Controller) tea.Cmd {
	return func() tea.Msg {
		headings, err := ctrl.ScanHeadings(ctx)
		return scanDoneMsg{count: len(headings), err: err}
	}
}

func nextProviderCmd(ctx context.Context, ctrl *app.Controller) tea.Cmd {
	return func() tea.Msg {
		name, err := ctrl.NextProvider(ctx)
		return providerSwitchedMsg{name: name, err: err}
	}
}

func toggleThemeCmd(ctx context.Context, ctrl *app.Controller) tea.Cmd {
	return func() tea.Msg {
		return themeToggledMsg{theme: string(ctrl.ToggleTheme(ctx))}
	}
}
