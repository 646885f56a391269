package tui

// Async operation messages.
type searchDoneMsg struct {
	err error
}

type scanDoneMsg struct {
	err   error
	count int
}

type providerSwitchedMsg struct {
	err  error
	name string
}

type themeToggledMsg struct {
	theme string
}
