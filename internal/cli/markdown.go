package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// MarkdownRenderer renders markdown for the terminal. A nil renderer, or one
// whose glamour setup failed, returns the input unchanged.
type MarkdownRenderer struct {
	r *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer in the light or dark style.
func NewMarkdownRenderer(dark bool, width int) *MarkdownRenderer {
	if width <= 0 {
		width = 80
	}
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &MarkdownRenderer{}
	}
	return &MarkdownRenderer{r: r}
}

// Render returns md rendered for the terminal, or md itself on failure.
func (m *MarkdownRenderer) Render(md string) string {
	if m == nil || m.r == nil {
		return md
	}
	out, err := m.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// IsStdoutTTY reports whether stdout is a terminal. Markdown is only rendered
// for terminals so piped output stays plain.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}

// IsStdinTTY reports whether stdin is a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}
