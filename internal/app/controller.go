// Package app holds the application state controller: the reference document,
// manual entries, search state and preferences, and the operations that move
// them between the local store and the LLM provider.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/storage"
)

// DefaultPasscode unlocks admin mode when none is configured.
const DefaultPasscode = "332"

// HistoryLimit is the number of recent compliance checks kept.
const HistoryLimit = 5

// SearchMode selects what a search does.
type SearchMode int

// Search modes.
const (
	ModeCompliance SearchMode = iota
	ModeLookup
)

func (m SearchMode) String() string {
	if m == ModeLookup {
		return "lookup"
	}
	return "compliance"
}

// ViewMode selects between the read-only and the editing surface.
type ViewMode int

// View modes.
const (
	ViewUser ViewMode = iota
	ViewAdmin
)

func (v ViewMode) String() string {
	if v == ViewAdmin {
		return "admin"
	}
	return "user"
}

// Theme is the persisted display theme.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// State is everything the presentation layer renders.
type State struct {
	Reference     *model.ReferenceContext
	Result        *model.AnalysisResult
	Provision     *model.ProvisionResult
	Query         string
	Error         string
	Provider      string
	Theme         Theme
	Entries       []model.ManualEntry
	History       []model.HistoryItem
	SearchMode    SearchMode
	ViewMode      ViewMode
	Loading       bool
	Scanning      bool
	Authenticated bool
}

// Options configures a Controller.
type Options struct {
	Store    Store
	Registry *llm.Registry
	Logger   *slog.Logger
	Passcode string
	// Provider is the configured default; a stored preference overrides it.
	Provider string
}

// Controller owns application state. All methods are safe for concurrent
// use; provider calls run without the lock on a copy of the state they need.
type Controller struct {
	store    Store
	registry *llm.Registry
	logger   *slog.Logger
	passcode string
	state    State
	mu       sync.Mutex
}

// NewController loads the persisted reference, entries and preferences.
// Store failures are logged and leave the corresponding state empty.
func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", common.ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	passcode := opts.Passcode
	if passcode == "" {
		passcode = DefaultPasscode
	}

	c := &Controller{
		store:    opts.Store,
		registry: opts.Registry,
		logger:   logger,
		passcode: passcode,
		state: State{
			Theme:   ThemeLight,
			Entries: []model.ManualEntry{},
			History: []model.HistoryItem{},
		},
	}

	ref, err := opts.Store.LoadReference(ctx)
	if err != nil {
		c.logger.Warn("Failed to load reference document", "error", err)
	} else {
		c.state.Reference = ref
	}

	entries, err := opts.Store.ListEntries(ctx)
	if err != nil {
		c.logger.Warn("Failed to load manual entries", "error", err)
	} else if entries != nil {
		c.state.Entries = entries
	}

	if theme, ok := c.preference(ctx, storage.PrefTheme); ok && (Theme(theme) == ThemeDark || Theme(theme) == ThemeLight) {
		c.state.Theme = Theme(theme)
	}

	c.state.Provider = c.initialProvider(ctx, opts.Provider)
	return c, nil
}

func (c *Controller) preference(ctx context.Context, name string) (string, bool) {
	value, ok, err := c.store.GetPreference(ctx, name)
	if err != nil {
		c.logger.Warn("Failed to load preference", "name", name, "error", err)
		return "", false
	}
	return value, ok
}

func (c *Controller) initialProvider(ctx context.Context, configured string) string {
	if c.registry == nil {
		return strings.ToLower(configured)
	}
	if stored, ok := c.preference(ctx, storage.PrefProvider); ok {
		if _, found := c.registry.Get(stored); found {
			return stored
		}
	}
	if _, found := c.registry.Get(configured); found {
		return strings.ToLower(configured)
	}
	if names := c.registry.Names(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Reference = c.state.Reference.Clone()
	s.Entries = append([]model.ManualEntry{}, c.state.Entries...)
	s.History = append([]model.HistoryItem{}, c.state.History...)
	if c.state.Result != nil {
		r := *c.state.Result
		r.Matches = append([]model.DerivativeMatch{}, c.state.Result.Matches...)
		s.Result = &r
	}
	if c.state.Provision != nil {
		p := *c.state.Provision
		s.Provision = &p
	}
	return s
}

// Ready reports whether a search in the current mode has data to work with.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyLocked()
}

func (c *Controller) readyLocked() bool {
	if c.state.SearchMode == ModeLookup {
		return c.state.Reference != nil
	}
	return c.state.Reference != nil || len(c.state.Entries) > 0
}

// SetSearchMode switches between compliance checks and provision lookups.
func (c *Controller) SetSearchMode(mode SearchMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SearchMode = mode
}

// ToggleSearchMode flips the search mode and returns the new one.
func (c *Controller) ToggleSearchMode() SearchMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.SearchMode == ModeCompliance {
		c.state.SearchMode = ModeLookup
	} else {
		c.state.SearchMode = ModeCompliance
	}
	return c.state.SearchMode
}

// provider resolves the active provider. The caller must hold c.mu.
func (c *Controller) providerLocked() (llm.Provider, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("%w: no LLM provider configured (set GEMINI_API_KEY or OPENAI_API_KEY)", common.ErrMissingConfig)
	}
	p, ok := c.registry.Get(c.state.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not available", common.ErrMissingConfig, c.state.Provider)
	}
	return p, nil
}

// Search runs the current mode against code. An empty code or missing data
// returns common.ErrNotReady without touching state; a search already in
// flight returns common.ErrBusy. Backend failures are recorded in the error
// slot and also returned.
func (c *Controller) Search(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	c.mu.Lock()
	if code == "" || !c.readyLocked() {
		c.mu.Unlock()
		return common.ErrNotReady
	}
	if c.state.Loading {
		c.mu.Unlock()
		return common.ErrBusy
	}

	c.state.Loading = true
	c.state.Error = ""
	c.state.Result = nil
	c.state.Provision = nil
	c.state.Query = code

	mode := c.state.SearchMode
	ref := c.state.Reference.Clone()
	entries := append([]model.ManualEntry(nil), c.state.Entries...)
	provider, providerErr := c.providerLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Loading = false
		c.mu.Unlock()
	}()

	if providerErr != nil {
		c.fail(providerErr)
		return providerErr
	}

	c.logger.Debug("Searching", "mode", mode.String(), "code", code, "provider", provider.Name())

	switch mode {
	case ModeLookup:
		result, err := Lookup(ctx, provider, ref, code)
		if err != nil {
			c.fail(err)
			return err
		}
		c.mu.Lock()
		c.state.Provision = &result
		c.mu.Unlock()
	default:
		result, err := Classify(ctx, provider, ref, entries, code)
		if err != nil {
			c.fail(err)
			return err
		}
		c.mu.Lock()
		c.state.Result = &result
		c.pushHistoryLocked(code, result.Found)
		c.mu.Unlock()
	}
	return nil
}

// Retry re-runs the last searched code in the current mode.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	query := c.state.Query
	c.mu.Unlock()

	if query == "" {
		return common.ErrNoQuery
	}
	return c.Search(ctx, query)
}

func (c *Controller) fail(err error) {
	msg := common.UserMessage(err)
	c.logger.Error("Search failed", "error", err)
	c.mu.Lock()
	c.state.Error = msg
	c.mu.Unlock()
}

func (c *Controller) pushHistoryLocked(code string, found bool) {
	history := make([]model.HistoryItem, 0, HistoryLimit)
	history = append(history, model.HistoryItem{Code: code, Found: found})
	for _, h := range c.state.History {
		if len(history) == HistoryLimit {
			break
		}
		history = append(history, h)
	}
	c.state.History = history
}

// ClearError empties the error slot.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}

// Login unlocks admin mode when passcode matches.
func (c *Controller) Login(passcode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if passcode != c.passcode {
		return common.ErrInvalidPasscode
	}
	c.state.Authenticated = true
	c.state.ViewMode = ViewAdmin
	c.state.Error = ""
	return nil
}

// Lock leaves admin mode.
func (c *Controller) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Authenticated = false
	c.state.ViewMode = ViewUser
}

// requireAdmin returns common.ErrAdminRequired unless logged in.
func (c *Controller) requireAdmin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Authenticated {
		return common.ErrAdminRequired
	}
	return nil
}

// SwitchProvider selects a registered provider and persists the choice.
func (c *Controller) SwitchProvider(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if c.registry == nil {
		return fmt.Errorf("%w: no LLM provider configured", common.ErrMissingConfig)
	}
	if _, ok := c.registry.Get(name); !ok {
		return &common.ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider %q (available: %s)", name, strings.Join(c.registry.Names(), ", ")),
		}
	}

	c.mu.Lock()
	c.state.Provider = name
	c.mu.Unlock()

	c.persistPreference(ctx, storage.PrefProvider, name)
	return nil
}

// NextProvider cycles to the next registered provider and returns its name.
func (c *Controller) NextProvider(ctx context.Context) (string, error) {
	if c.registry == nil {
		return "", fmt.Errorf("%w: no LLM provider configured", common.ErrMissingConfig)
	}
	c.mu.Lock()
	next := c.registry.Next(c.state.Provider)
	c.mu.Unlock()

	if err := c.SwitchProvider(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

// ToggleTheme flips between light and dark and persists the choice.
func (c *Controller) ToggleTheme(ctx context.Context) Theme {
	c.mu.Lock()
	if c.state.Theme == ThemeDark {
		c.state.Theme = ThemeLight
	} else {
		c.state.Theme = ThemeDark
	}
	theme := c.state.Theme
	c.mu.Unlock()

	c.persistPreference(ctx, storage.PrefTheme, string(theme))
	return theme
}

func (c *Controller) persistPreference(ctx context.Context, name, value string) {
	if err := c.store.SetPreference(ctx, name, value); err != nil {
		c.logger.Warn("Failed to save preference", "name", name, "error", err)
	}
}
