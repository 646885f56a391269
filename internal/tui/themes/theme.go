// Package themes holds the light and dark styles of the interactive screen.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Input         lipgloss.Style
	Badge         lipgloss.Style
	AdminBadge    lipgloss.Style
	RoundedBox    lipgloss.Style
	ErrorBanner   lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style
	Primary       lipgloss.Color
	Border        lipgloss.Color
	Name          string
	Dark          bool
}

func build(name string, dark bool, fg, muted, primary, border, success, warning, errc, info lipgloss.Color) Theme {
	return Theme{
		Name:    name,
		Dark:    dark,
		Primary: primary,
		Border:  border,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Subtitle: lipgloss.NewStyle().
			Foreground(muted),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		AdminBadge: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		ErrorBanner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errc).
			Foreground(errc).
			Padding(0, 1),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(errc).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(info).
			Bold(true),
	}
}

// Light is the default theme.
var Light = build("light", false,
	lipgloss.Color("#0f172a"), // slate-900
	lipgloss.Color("#64748b"), // slate-500
	lipgloss.Color("#4f46e5"), // indigo-600
	lipgloss.Color("#cbd5e1"), // slate-300
	lipgloss.Color("#059669"),
	lipgloss.Color("#d97706"),
	lipgloss.Color("#dc2626"),
	lipgloss.Color("#2563eb"),
)

// Dark is the dark theme.
var Dark = build("dark", true,
	lipgloss.Color("#f1f5f9"), // slate-100
	lipgloss.Color("#94a3b8"), // slate-400
	lipgloss.Color("#818cf8"), // indigo-400
	lipgloss.Color("#334155"), // slate-700
	lipgloss.Color("#34d399"),
	lipgloss.Color("#fbbf24"),
	lipgloss.Color("#f87171"),
	lipgloss.Color("#60a5fa"),
)

// GetTheme returns a theme by name, falling back to Light.
func GetTheme(name string) Theme {
	switch name {
	case "dark":
		return Dark
	default:
		return Light
	}
}
