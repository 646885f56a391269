// Package proxy serves a Gemini generateContent endpoint that holds the API
// key server-side. Clients point the GenAI SDK (or plain HTTP) at the proxy
// and never see the key.
package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"

	// DefaultUpstream is the Gemini API host.
	DefaultUpstream = "https://generativelanguage.googleapis.com"

	// DefaultModel is used when the request path does not name a model.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout bounds each upstream call.
	DefaultTimeout = 25 * time.Second

	// MaxRequestBodySize allows inline PDFs of roughly 20MB after base64.
	MaxRequestBodySize = 32 << 20
)

// modelPath extracts the model from SDK-style paths such as
// /v1beta/models/gemini-2.5-flash:generateContent.
var modelPath = regexp.MustCompile(`/models/([A-Za-z0-9._-]+):generateContent$`)

// Config configures a Server.
type Config struct {
	// Client is used for upstream calls; tests inject one.
	Client      *http.Client
	// Certificate, when set, makes ListenAndServe serve HTTPS.
	Certificate *tls.Certificate
	Addr        string
	APIKey      string
	Model       string
	Upstream    string
	Timeout     time.Duration
}

// Server forwards generateContent requests to Gemini.
type Server struct {
	client *http.Client
	logger *slog.Logger
	server *http.Server
	cfg    Config
}

// New creates a Server, filling defaults for unset fields. A missing API key
// is not an error here; every request then fails with 500 until one is set.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Upstream == "" {
		cfg.Upstream = DefaultUpstream
	}
	cfg.Upstream = strings.TrimRight(cfg.Upstream, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Server{cfg: cfg, client: client, logger: logger}
}

// Handler returns the proxy handler wrapped in recovery and request logging.
// It accepts every path.
func (s *Server) Handler() http.Handler {
	return chain(
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)(http.HandlerFunc(s.handleGenerate))
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.cfg.Certificate != nil {
		s.server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.cfg.Certificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Proxy listening", "addr", s.cfg.Addr, "model", s.cfg.Model, "upstream", s.cfg.Upstream, "tls", s.server.TLSConfig != nil)
		if s.server.TLSConfig != nil {
			errCh <- s.server.ListenAndServeTLS("", "")
			return
		}
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("proxy server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Proxy shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("proxy shutdown failed: %w", err)
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Only POST allowed", nil)
		return
	}

	if s.cfg.APIKey == "" {
		s.logger.Error("Proxy has no upstream API key", "env", "GEMINI_API_KEY")
		writeError(w, http.StatusInternalServerError, "Server configuration error: GEMINI_API_KEY is not set", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", MaxRequestBodySize), nil)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body", nil)
		return
	}

	if msg := validateBody(body); msg != "" {
		writeError(w, http.StatusBadRequest, msg, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.cfg.Upstream, s.model(r.URL.Path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build upstream request", nil)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("Upstream request timed out", "timeout", s.cfg.Timeout)
			writeError(w, http.StatusGatewayTimeout, "Upstream request timed out", nil)
			return
		}
		s.logger.Error("Upstream request failed", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to reach upstream", err.Error())
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "Upstream request timed out", nil)
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to read upstream response", err.Error())
		return
	}

	if resp.StatusCode >= http.StatusBadRequest {
		s.logger.Warn("Upstream returned an error", "status", resp.StatusCode)
		writeError(w, resp.StatusCode, "Upstream error", upstreamDetails(respBody))
		return
	}

	if !json.Valid(respBody) {
		writeError(w, http.StatusBadGateway, "Upstream returned invalid JSON", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(respBody)
}

// model picks the model named in an SDK-style path, else the configured one.
func (s *Server) model(path string) string {
	if m := modelPath.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return s.cfg.Model
}

// validateBody returns a client-facing message when body is not a JSON
// object with a contents field.
func validateBody(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "Request body must be a JSON object"
	}
	contents, ok := fields["contents"]
	if !ok || string(contents) == "null" {
		return "Request body must include contents"
	}
	return ""
}

// upstreamDetails passes JSON error bodies through as JSON, anything else as
// a string.
func upstreamDetails(body []byte) any {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return strings.TrimSpace(string(body))
}

type errorResponse struct {
	Details any    `json:"details,omitempty"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Details: details})
}
