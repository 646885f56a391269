package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// testEnv isolates HOME, the database and provider keys for one test.
type testEnv struct {
	t  *testing.T
	db string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return &testEnv{t: t, db: filepath.Join(dir, "hts.db")}
}

func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	viper.Reset()
	cfgFile = ""

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.db, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, out)
	return out
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	assert.Contains(t, env.mustRun("version"), "hts version dev")
}

func TestDocCommands(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "doc", "paste", "Heading 7604 covers aluminum bars")
	require.ErrorIs(t, err, common.ErrAdminRequired)

	_, err = env.run("", "doc", "paste", "--passcode", "999", "Heading 7604")
	require.ErrorIs(t, err, common.ErrInvalidPasscode)

	out := env.mustRun("doc", "paste", "--passcode", "332", "Heading 7604 covers aluminum bars")
	assert.Contains(t, out, "Loaded Pasted Text Content")

	out = env.mustRun("doc", "show")
	assert.Contains(t, out, "Pasted Text Content")
	assert.Contains(t, out, "Headings not scanned yet")

	out, err = env.run("Annex I text from stdin", "doc", "paste", "--passcode", "332", "--name", "Annex I", "-")
	require.NoError(t, err, out)
	assert.Contains(t, env.mustRun("doc", "show"), "Annex I")

	env.mustRun("doc", "clear", "--passcode", "332")
	assert.Contains(t, env.mustRun("doc", "show"), "No reference document loaded")
}

func TestDocLoad(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	text := filepath.Join(dir, "annex.txt")
	require.NoError(t, os.WriteFile(text, []byte("Heading 7604: aluminum bars"), 0o600))
	out := env.mustRun("doc", "load", "--passcode", "332", text)
	assert.Contains(t, out, "Loaded annex.txt")

	image := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	_, err := env.run("", "doc", "load", "--passcode", "332", image)
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Please upload a valid PDF file")
}

func TestEntriesCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("entries", "add", "--passcode", "332",
		"--code", "7604.10", "--category", "Aluminum bars", "--rule", "All bars and rods", "--metal", "aluminum")
	id := uuidPattern.FindString(out)
	require.NotEmpty(t, id, out)

	_, err := env.run("", "entries", "add", "--passcode", "332",
		"--code", "76O4", "--category", "Bad", "--rule", "Bad", "--metal", "steel")
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "code", verr.Field)

	out = env.mustRun("entries", "list")
	assert.Contains(t, out, "7604.10")
	assert.Contains(t, out, id[:8])

	env.mustRun("entries", "update", "--passcode", "332", id[:8], "--category", "Aluminum rods")
	assert.Contains(t, env.mustRun("entries", "list"), "Aluminum rods")

	exported := env.mustRun("entries", "export")
	assert.Contains(t, exported, "entries:")
	assert.Contains(t, exported, id)

	yaml := "entries:\n  - code: \"7306\"\n    category: Steel tubes\n    description: All of 7306\n    metalType: Steel\n"
	out, err = env.run(yaml, "entries", "import", "--passcode", "332", "--replace", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 1 entries")

	out = env.mustRun("entries", "list")
	assert.Contains(t, out, "Steel tubes")
	assert.NotContains(t, out, "Aluminum rods")

	newID := uuidPattern.FindString(env.mustRun("entries", "export"))
	require.NotEmpty(t, newID)
	env.mustRun("entries", "delete", "--passcode", "332", "--yes", newID)
	assert.Contains(t, env.mustRun("entries", "list"), "No manual entries")
}

func TestCheck_NotReady(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "check", "7604.10")
	require.ErrorIs(t, err, common.ErrNotReady)
	assert.Contains(t, err.Error(), "load a reference document or add manual entries first")

	_, err = env.run("", "lookup", "7604.10")
	require.ErrorIs(t, err, common.ErrNotReady)
	assert.Contains(t, err.Error(), "load a reference document first")
}

func TestCheck_NoProvider(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("doc", "paste", "--passcode", "332", "Heading 7604")

	_, err := env.run("", "check", "7604.10")
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func fakeGemini(t *testing.T, text string) *httptest.Server {
	t.Helper()
	reply, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": "STOP",
		}},
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheck_WithGemini(t *testing.T) {
	env := newTestEnv(t)
	server := fakeGemini(t, `{"found":true,"matches":[{"derivativeCategory":"Aluminum bars","metalType":"Aluminum","matchDetail":"Manual rule","confidence":"High"}],"reasoning":"Covered by a manual rule"}`)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("HTS_LLM_GEMINI_BASE_URL", server.URL)

	env.mustRun("entries", "add", "--passcode", "332",
		"--code", "7604.10", "--category", "Aluminum bars", "--rule", "All bars", "--metal", "aluminum")

	out := env.mustRun("check", "7604.10")
	assert.Contains(t, out, "HTS Code 7604.10 - Derivative Match Found")
	assert.Contains(t, out, "Covered by a manual rule")

	out = env.mustRun("check", "--json", "7604.10")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded), out)
	assert.Equal(t, true, decoded["found"])

	out = env.mustRun("provider")
	assert.Contains(t, out, "gemini")
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	server := fakeGemini(t, `{"found":false,"matches":[],"reasoning":"Not listed"}`)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("HTS_LLM_GEMINI_BASE_URL", server.URL)

	out, err := env.run("# none\n\n", "batch", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "No codes to check")

	env.mustRun("doc", "paste", "--passcode", "332", "Heading 7604")
	out, err = env.run("7604.10\n8471.30, 76O4\n", "batch", "--concurrency", "2", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "8471.30")
	assert.Contains(t, out, "0 derivative, 2 clear, 1 failed")
}

func TestThemeToggle(t *testing.T) {
	env := newTestEnv(t)
	assert.Contains(t, env.mustRun("theme"), "Theme set to dark")
	assert.Contains(t, env.mustRun("theme"), "Theme set to light")
}

func TestProvider_Unknown(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	_, err := env.run("", "provider", "anthropic")
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "provider", verr.Field)
}

func TestMigrateStatus(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("migrate")

	out := env.mustRun("migrate", "--status")
	assert.Contains(t, out, "Current version: 2")
	assert.Contains(t, out, "Latest version: 2")
}

func TestInvalidLogLevel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("", "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
