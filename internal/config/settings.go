package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/proxy"
	"github.com/spf13/viper"
)

// Default paths, expanded with ExpandPath.
const (
	DefaultDatabasePath = "$HOME/.local/share/hts/hts.db"
	DefaultCertDir      = "$HOME/.config/hts/certs"
)

// Settings is the resolved application configuration.
type Settings struct {
	DatabasePath     string
	Provider         string
	Passcode         string
	// CertDir holds the proxy's self-signed certificate when ProxyTLS is set.
	CertDir          string
	TLSHosts         []string
	Proxy            proxy.Config
	LLM              []llm.Config
	BatchConcurrency int
	ProxyTLS         bool
}

// Load resolves settings from v. It follows this precedence:
// 1. Viper configuration (from config file or HTS_ env vars)
// 2. Direct environment variables (GEMINI_API_KEY, OPENAI_API_KEY)
// 3. Default values
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DatabasePath:     v.GetString("database.path"),
		Provider:         strings.ToLower(v.GetString("llm.provider")),
		Passcode:         v.GetString("admin.passcode"),
		BatchConcurrency: v.GetInt("batch.concurrency"),
	}

	if s.DatabasePath == "" {
		s.DatabasePath = DefaultDatabasePath
	}
	s.DatabasePath = ExpandPath(s.DatabasePath)

	if s.Provider == "" {
		s.Provider = llm.ProviderGemini
	}
	if s.Provider != llm.ProviderGemini && s.Provider != llm.ProviderOpenAI {
		return nil, fmt.Errorf("%w: llm.provider must be gemini or openai, got %q", common.ErrInvalidConfig, s.Provider)
	}
	if s.BatchConcurrency <= 0 {
		s.BatchConcurrency = 1
	}

	timeout := v.GetDuration("llm.timeout")
	if timeout < 0 {
		return nil, fmt.Errorf("%w: llm.timeout must not be negative", common.ErrInvalidConfig)
	}
	if timeout == 0 {
		timeout = llm.DefaultTimeout
	}
	rpm := v.GetInt("llm.requests_per_minute")
	if rpm < 0 {
		return nil, fmt.Errorf("%w: llm.requests_per_minute must not be negative", common.ErrInvalidConfig)
	}
	strict := v.GetBool("llm.strict")

	geminiKey := firstNonEmpty(v.GetString("llm.gemini_api_key"), os.Getenv("GEMINI_API_KEY"))
	s.LLM = []llm.Config{
		{
			Provider:          llm.ProviderGemini,
			APIKey:            geminiKey,
			Model:             firstNonEmpty(v.GetString("llm.gemini_model"), llm.DefaultGeminiModel),
			BaseURL:           v.GetString("llm.gemini_base_url"),
			Timeout:           timeout,
			RequestsPerMinute: rpm,
			Strict:            strict,
		},
		{
			Provider:          llm.ProviderOpenAI,
			APIKey:            firstNonEmpty(v.GetString("llm.openai_api_key"), os.Getenv("OPENAI_API_KEY")),
			Model:             firstNonEmpty(v.GetString("llm.openai_model"), llm.DefaultOpenAIModel),
			BaseURL:           v.GetString("llm.openai_base_url"),
			Timeout:           timeout,
			RequestsPerMinute: rpm,
			Strict:            strict,
		},
	}

	proxyTimeout := v.GetDuration("proxy.timeout")
	if proxyTimeout <= 0 {
		proxyTimeout = proxy.DefaultTimeout
	}
	s.Proxy = proxy.Config{
		Addr:     firstNonEmpty(v.GetString("proxy.addr"), proxy.DefaultAddr),
		APIKey:   geminiKey,
		Model:    firstNonEmpty(v.GetString("proxy.model"), proxy.DefaultModel),
		Upstream: firstNonEmpty(v.GetString("proxy.upstream"), proxy.DefaultUpstream),
		Timeout:  proxyTimeout,
	}
	s.ProxyTLS = v.GetBool("proxy.tls")
	s.CertDir = ExpandPath(firstNonEmpty(v.GetString("proxy.cert_dir"), DefaultCertDir))
	s.TLSHosts = v.GetStringSlice("proxy.tls_hosts")

	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
