package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/hts-derivatives/internal/common"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Default models and timeout.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o"
	DefaultTimeout     = 25 * time.Second
)

// Config holds configuration for one provider.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
	// RequestsPerMinute caps call starts; zero means unlimited.
	RequestsPerMinute int
	Strict            bool
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// proxied reports a keyless Gemini config pointed at the hts proxy, which
// holds the real key.
func (c Config) proxied() bool {
	return c.APIKey == "" && c.BaseURL != "" && strings.EqualFold(c.Provider, ProviderGemini)
}

// NewBackend creates the raw backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return newGeminiBackend(ctx, cfg)
	case ProviderOpenAI:
		return newOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}

// NewProvider creates a schema-validating provider for cfg.Provider.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (Provider, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewAdapter(WithRateLimit(backend, cfg.RequestsPerMinute), cfg.Strict, logger), nil
}

// Registry holds the providers available for switching at runtime.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a provider for every config that has credentials or,
// for Gemini, a proxy base URL. Other configs are skipped; an empty registry
// is an error.
func NewRegistry(ctx context.Context, cfgs []Config, logger *slog.Logger) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}
	for _, cfg := range cfgs {
		if cfg.APIKey == "" && !cfg.proxied() {
			continue
		}
		p, err := NewProvider(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
		}
		r.providers[p.Name()] = p
	}
	if len(r.providers) == 0 {
		return nil, fmt.Errorf("%w: no LLM provider has an API key (set GEMINI_API_KEY or OPENAI_API_KEY)", common.ErrMissingConfig)
	}
	return r, nil
}

// NewRegistryFrom wraps already constructed providers.
func NewRegistryFrom(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names lists registered providers in a stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the provider name after current, wrapping around.
func (r *Registry) Next(current string) string {
	names := r.Names()
	if len(names) == 0 {
		return ""
	}
	for i, name := range names {
		if name == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}
