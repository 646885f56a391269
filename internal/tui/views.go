package tui

import (
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case StatePasscode:
		return m.passcodeView()
	case StateHelp:
		return m.helpView()
	}

	s := m.ctrl.Snapshot()
	sections := []string{m.headerView(s), m.theme.Input.Render(m.input.View())}

	if status := m.statusView(s); status != "" {
		sections = append(sections, status)
	}
	if s.Error != "" {
		sections = append(sections, m.theme.ErrorBanner.Render(
			s.Error+"\n"+m.theme.Muted.Render("Press r to retry or c to dismiss")))
	}

	switch {
	case s.Result != nil:
		sections = append(sections, cli.RenderAnalysis(s.Query, *s.Result))
	case s.Provision != nil:
		sections = append(sections, cli.RenderProvision(*s.Provision, m.md))
	}

	if m.showDetails {
		sections = append(sections, cli.RenderReference(s.Reference))
		if s.Reference != nil && len(s.Reference.ExtractedHeadings) > 0 {
			sections = append(sections, cli.RenderHeadings(s.Reference.ExtractedHeadings, m.md))
		}
		sections = append(sections, cli.RenderEntries(s.Entries))
	}

	sections = append(sections, cli.RenderHistory(s.History))
	if m.notice != "" {
		sections = append(sections, m.theme.StatusInfo.Render(m.notice))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView(s app.State) string {
	mode := "Compliance Check"
	if s.SearchMode == app.ModeLookup {
		mode = "Provision Lookup"
	}

	role := m.theme.Badge.Render("User")
	if s.Authenticated {
		role = m.theme.AdminBadge.Render(cli.UnlockIcon + " ADMIN")
	}

	provider := s.Provider
	if provider == "" {
		provider = "none"
	}

	title := m.theme.Title.Render(cli.ShieldIcon + " HTS Derivative Checker")
	meta := m.theme.Subtitle.Render(strings.Join([]string{mode, "Provider: " + provider}, " · "))
	return lipgloss.JoinVertical(lipgloss.Left, title, meta+"  "+role)
}

func (m Model) statusView(s app.State) string {
	switch {
	case m.searching:
		verb := "Checking"
		if s.SearchMode == app.ModeLookup {
			verb = "Looking up"
		}
		return m.spinner.View() + " " + m.theme.Muted.Render(verb+" "+m.input.Value()+"...")
	case m.scanning:
		return m.spinner.View() + " " + m.theme.Muted.Render("Scanning headings...")
	case s.Reference == nil && len(s.Entries) == 0:
		return m.theme.StatusWarning.Render("No reference document or manual entries loaded")
	}
	return ""
}

func (m Model) passcodeView() string {
	lines := []string{
		m.theme.Title.Render(cli.LockIcon + " Admin passcode"),
		m.theme.Input.Render(m.passcode.View()),
	}
	if m.passErr != "" {
		lines = append(lines, m.theme.StatusError.Render(m.passErr))
	}
	lines = append(lines, m.theme.Muted.Render("Enter to unlock · Esc to cancel"))
	return m.theme.RoundedBox.Render(strings.Join(lines, "\n"))
}

func (m Model) helpView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("Keyboard shortcuts"),
		m.help.View(m.keys),
		m.theme.Muted.Render("Press ? or Esc to go back"),
	)
}
