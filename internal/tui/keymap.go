package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts. The search box only accepts digits
// and dots, so single letters are free for commands.
type KeyMap struct {
	// Search
	Search     key.Binding
	ToggleMode key.Binding
	Retry      key.Binding
	Clear      key.Binding

	// Preferences
	Provider key.Binding
	Theme    key.Binding

	// Admin
	Admin   key.Binding
	Scan    key.Binding
	Details key.Binding

	// Application
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Search: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "search"),
		),
		ToggleMode: key.NewBinding(
			key.WithKeys("tab", "m"),
			key.WithHelp("Tab/m", "check ⇄ lookup"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear error"),
		),
		Provider: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "next provider"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "light/dark"),
		),
		Admin: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "admin login/lock"),
		),
		Scan: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "scan headings"),
		),
		Details: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "document & entries"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/Esc", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.ToggleMode, k.Retry, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.ToggleMode, k.Retry, k.Clear},
		{k.Provider, k.Theme, k.Details},
		{k.Admin, k.Scan},
		{k.Help, k.Quit, k.ForceQuit},
	}
}
