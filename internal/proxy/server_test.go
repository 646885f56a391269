package proxy

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/hts-derivatives/internal/certs"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{"contents":[{"role":"user","parts":[{"text":"Look up 9903.85.08"}]}]}`

type upstreamCall struct {
	Path   string
	APIKey string
	Body   string
}

// fakeUpstream answers every call with status and body and records requests.
func fakeUpstream(t *testing.T, status int, body string) (*httptest.Server, chan upstreamCall) {
	t.Helper()
	calls := make(chan upstreamCall, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		calls <- upstreamCall{Path: r.URL.Path, APIKey: r.Header.Get("x-goog-api-key"), Body: string(raw)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func newProxy(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(New(cfg, nil).Handler())
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body)) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestProxy_ForwardsSuccess(t *testing.T) {
	reply := `{"candidates":[{"content":{"role":"model","parts":[{"text":"{}"}]}}]}`
	upstream, calls := fakeUpstream(t, http.StatusOK, reply)
	proxy := newProxy(t, Config{APIKey: "server-key", Upstream: upstream.URL})

	status, body := post(t, proxy.URL+"/api/generate", validBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "candidates")

	call := <-calls
	assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", call.Path)
	assert.Equal(t, "server-key", call.APIKey)
	assert.JSONEq(t, validBody, call.Body)
}

func TestProxy_ModelFromPath(t *testing.T) {
	upstream, calls := fakeUpstream(t, http.StatusOK, `{}`)
	proxy := newProxy(t, Config{APIKey: "server-key", Upstream: upstream.URL})

	status, _ := post(t, proxy.URL+"/v1beta/models/gemini-2.5-pro:generateContent", validBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", (<-calls).Path)
}

func TestProxy_RejectsRequests(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		apiKey     string
		wantStatus int
		wantError  string
	}{
		{name: "GET", method: http.MethodGet, apiKey: "k", wantStatus: http.StatusMethodNotAllowed, wantError: "Only POST allowed"},
		{name: "PUT", method: http.MethodPut, body: validBody, apiKey: "k", wantStatus: http.StatusMethodNotAllowed, wantError: "Only POST allowed"},
		{name: "missing key", method: http.MethodPost, body: validBody, wantStatus: http.StatusInternalServerError, wantError: "GEMINI_API_KEY"},
		{name: "not json", method: http.MethodPost, body: "hello", apiKey: "k", wantStatus: http.StatusBadRequest, wantError: "JSON object"},
		{name: "json array", method: http.MethodPost, body: "[]", apiKey: "k", wantStatus: http.StatusBadRequest, wantError: "JSON object"},
		{name: "no contents", method: http.MethodPost, body: `{"generationConfig":{}}`, apiKey: "k", wantStatus: http.StatusBadRequest, wantError: "contents"},
		{name: "null contents", method: http.MethodPost, body: `{"contents":null}`, apiKey: "k", wantStatus: http.StatusBadRequest, wantError: "contents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream, calls := fakeUpstream(t, http.StatusOK, `{}`)
			proxy := newProxy(t, Config{APIKey: tt.apiKey, Upstream: upstream.URL})

			req, err := http.NewRequestWithContext(context.Background(), tt.method, proxy.URL, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, body.Error, tt.wantError)
			assert.Empty(t, calls, "upstream must not be called")
		})
	}
}

func TestProxy_UpstreamErrors(t *testing.T) {
	t.Run("json error body is forwarded", func(t *testing.T) {
		upstreamErr := `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`
		upstream, _ := fakeUpstream(t, http.StatusTooManyRequests, upstreamErr)
		proxy := newProxy(t, Config{APIKey: "k", Upstream: upstream.URL})

		status, body := post(t, proxy.URL, validBody)
		assert.Equal(t, http.StatusTooManyRequests, status)
		assert.Equal(t, "Upstream error", body["error"])
		details, ok := body["details"].(map[string]any)
		require.True(t, ok, "details kept as JSON")
		assert.Equal(t, "RESOURCE_EXHAUSTED", details["error"].(map[string]any)["status"])
	})

	t.Run("text error body is forwarded", func(t *testing.T) {
		upstream, _ := fakeUpstream(t, http.StatusServiceUnavailable, "overloaded\n")
		proxy := newProxy(t, Config{APIKey: "k", Upstream: upstream.URL})

		status, body := post(t, proxy.URL, validBody)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "overloaded", body["details"])
	})

	t.Run("invalid json on success", func(t *testing.T) {
		upstream, _ := fakeUpstream(t, http.StatusOK, "<html>oops</html>")
		proxy := newProxy(t, Config{APIKey: "k", Upstream: upstream.URL})

		status, body := post(t, proxy.URL, validBody)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, body["error"], "invalid JSON")
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()
		proxy := newProxy(t, Config{APIKey: "k", Upstream: deadURL})

		status, body := post(t, proxy.URL, validBody)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "Failed to reach upstream", body["error"])
	})
}

func TestProxy_Timeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(upstream.Close)
	proxy := newProxy(t, Config{APIKey: "k", Upstream: upstream.URL, Timeout: 50 * time.Millisecond})

	status, body := post(t, proxy.URL, validBody)
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Contains(t, body["error"], "timed out")
}

func TestProxy_ServesGenAIClient(t *testing.T) {
	provision := `{"found":true,"code":"9903.85.08","metalType":"Aluminum","description":"Derivative aluminum articles"}`
	reply, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": provision}}},
			"finishReason": "STOP",
		}},
	})
	require.NoError(t, err)

	upstream, calls := fakeUpstream(t, http.StatusOK, string(reply))
	proxy := newProxy(t, Config{APIKey: "server-key", Upstream: upstream.URL})

	provider, err := llm.NewProvider(context.Background(), llm.Config{
		Provider: llm.ProviderGemini,
		APIKey:   "placeholder",
		BaseURL:  proxy.URL,
	}, nil)
	require.NoError(t, err)

	result, err := provider.LookupProvision(context.Background(), []prompt.Segment{prompt.Text("Look up 9903.85.08")})
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "9903.85.08", result.Code)

	call := <-calls
	assert.Equal(t, "server-key", call.APIKey, "the client key never reaches upstream")
	assert.Contains(t, call.Body, "responseSchema")
}

func TestProxy_KeylessClientRegistry(t *testing.T) {
	reply, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": `{"headings":[]}`}}},
			"finishReason": "STOP",
		}},
	})
	require.NoError(t, err)

	upstream, calls := fakeUpstream(t, http.StatusOK, string(reply))
	proxy := newProxy(t, Config{APIKey: "server-key", Upstream: upstream.URL})

	reg, err := llm.NewRegistry(context.Background(), []llm.Config{
		{Provider: llm.ProviderGemini, BaseURL: proxy.URL},
		{Provider: llm.ProviderOpenAI},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{llm.ProviderGemini}, reg.Names())

	provider, ok := reg.Get(llm.ProviderGemini)
	require.True(t, ok)
	headings, err := provider.ExtractHeadings(context.Background(), []prompt.Segment{prompt.Text("List the headings")})
	require.NoError(t, err)
	assert.Empty(t, headings)

	call := <-calls
	assert.Equal(t, "server-key", call.APIKey)
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{Upstream: "https://example.test/"}, nil)
	assert.Equal(t, DefaultAddr, s.cfg.Addr)
	assert.Equal(t, DefaultModel, s.cfg.Model)
	assert.Equal(t, DefaultTimeout, s.cfg.Timeout)
	assert.Equal(t, "https://example.test", s.cfg.Upstream)
	assert.Equal(t, "gemini-2.0-flash", s.model("/v1beta/models/gemini-2.0-flash:generateContent"))
	assert.Equal(t, DefaultModel, s.model("/api/generate"))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", APIKey: "k"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestListenAndServe_TLS(t *testing.T) {
	manager := certs.NewFileManager(t.TempDir())
	cert, err := manager.GetOrCreateCertificate()
	require.NoError(t, err)

	addr := freeAddr(t)
	s := New(Config{Addr: addr, Certificate: &cert}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	pool := x509.NewCertPool()
	pem, err := os.ReadFile(manager.CertFile())
	require.NoError(t, err)
	require.True(t, pool.AppendCertsFromPEM(pem))
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}}

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = client.Get("https://" + addr + "/api/generate")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
