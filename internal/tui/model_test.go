package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/testutil"
	tuitesting "github.com/Veraticus/hts-derivatives/internal/tui/testing"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foundJSON = `{"found":true,"matches":[{"derivativeCategory":"Aluminum bars","metalType":"Aluminum","matchDetail":"Listed under 7604.10","confidence":"High"}],"reasoning":"Heading 7604 is listed"}`

const referenceText = "Heading 7604: aluminum bars and rods are derivative articles."

func newTestController(t *testing.T, stub *llm.StubBackend) *app.Controller {
	t.Helper()
	stub.ProvName = llm.ProviderGemini
	return testutil.SetupTestDB(t, testutil.TestDBOptions{}).Controller(stub)
}

func referenceController(t *testing.T, stub *llm.StubBackend) *app.Controller {
	t.Helper()
	stub.ProvName = llm.ProviderGemini
	db := testutil.SetupTestDB(t, testutil.TestDBOptions{Reference: testutil.TextReference(referenceText)})
	return db.Controller(stub)
}

func noTicks(msg tea.Msg) bool {
	_, tick := msg.(spinner.TickMsg)
	return !tick
}

// drive applies msg and feeds every resulting message back into the model.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	for _, out := range tuitesting.RunCmd(cmd, noTicks) {
		next, _ = next.Update(out)
	}
	result, ok := next.(Model)
	require.True(t, ok)
	return result
}

func typeText(m Model, text string) Model {
	return tuitesting.NewInputSequence().Type(text).Apply(m).(Model)
}

func TestModel_InputAcceptsDigitsAndDots(t *testing.T) {
	m := NewModel(context.Background(), newTestController(t, llm.NewStubBackend()))

	m = typeText(m, "76x04.1z0")
	assert.Equal(t, "7604.10", m.input.Value())

	m = tuitesting.NewInputSequence(tuitesting.KeyBackspace()).Apply(m).(Model)
	assert.Equal(t, "7604.1", m.input.Value())
}

func TestModel_SearchNotReady(t *testing.T) {
	stub := llm.NewStubBackend()
	m := NewModel(context.Background(), newTestController(t, stub))

	m = typeText(m, "7604.10")
	next, cmd := m.Update(tuitesting.KeyEnter())
	m = next.(Model)

	assert.Nil(t, cmd)
	assert.False(t, m.searching)
	assert.Contains(t, tuitesting.View(m), "Load a reference document or add manual entries first")
	assert.Contains(t, tuitesting.View(m), "No reference document or manual entries loaded")
	assert.Empty(t, stub.Calls())

	m = drive(t, m, tuitesting.KeyTab())
	m = drive(t, m, tuitesting.KeyEnter())
	assert.Contains(t, tuitesting.View(m), "Load a reference document first")
}

func TestModel_EmptyEnterIsNoop(t *testing.T) {
	m := NewModel(context.Background(), referenceController(t, llm.NewStubBackend()))

	_, cmd := m.Update(tuitesting.KeyEnter())
	assert.Nil(t, cmd)
}

func TestModel_ComplianceSearch(t *testing.T) {
	stub := llm.NewStubBackend().Respond(llm.AnalysisSchema, foundJSON)
	ctrl := referenceController(t, stub)
	m := NewModel(context.Background(), ctrl)

	m = typeText(m, "7604.10")
	next, cmd := m.Update(tuitesting.KeyEnter())
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.searching)
	assert.Contains(t, tuitesting.View(m), "Checking 7604.10...")

	for _, msg := range tuitesting.RunCmd(cmd, noTicks) {
		next, _ = m.Update(msg)
		m = next.(Model)
	}

	assert.False(t, m.searching)
	view := tuitesting.View(m)
	assert.True(t, tuitesting.ContainsInOrder(view,
		"HTS Derivative Checker",
		"HTS Code 7604.10 - Derivative Match Found",
		"Aluminum bars",
		"Recent:",
		"7604.10 ●",
	), view)
	assert.Len(t, stub.Calls(), 1)
}

func TestModel_SearchFailureShowsBanner(t *testing.T) {
	stub := llm.NewStubBackend()
	stub.Err = errors.New("quota exceeded")
	ctrl := referenceController(t, stub)
	m := NewModel(context.Background(), ctrl)

	m = typeText(m, "7604.10")
	m = drive(t, m, tuitesting.KeyEnter())

	view := tuitesting.View(m)
	assert.Contains(t, view, "quota exceeded")
	assert.Contains(t, view, "Press r to retry")

	stub.Err = nil
	stub.Respond(llm.AnalysisSchema, foundJSON)
	m = drive(t, m, tuitesting.KeyPress("r"))
	view = tuitesting.View(m)
	assert.NotContains(t, view, "quota exceeded")
	assert.Contains(t, view, "Derivative Match Found")

	assert.Len(t, stub.Calls(), 2)
}

func TestModel_RetryWithoutQuery(t *testing.T) {
	m := NewModel(context.Background(), newTestController(t, llm.NewStubBackend()))

	next, cmd := m.Update(tuitesting.KeyPress("r"))
	assert.Nil(t, cmd)
	assert.Contains(t, tuitesting.View(next), "Nothing to retry yet")
}

func TestModel_ToggleMode(t *testing.T) {
	ctrl := newTestController(t, llm.NewStubBackend())
	m := NewModel(context.Background(), ctrl)
	assert.Contains(t, tuitesting.View(m), "Compliance Check")

	m = drive(t, m, tuitesting.KeyPress("m"))
	assert.Equal(t, app.ModeLookup, ctrl.Snapshot().SearchMode)
	assert.Contains(t, tuitesting.View(m), "Provision Lookup")

	m = drive(t, m, tuitesting.KeyTab())
	assert.Equal(t, app.ModeCompliance, ctrl.Snapshot().SearchMode)
}

func TestModel_AdminLogin(t *testing.T) {
	ctrl := newTestController(t, llm.NewStubBackend())
	m := NewModel(context.Background(), ctrl)

	m = drive(t, m, tuitesting.KeyPress("a"))
	assert.Equal(t, StatePasscode, m.state)
	assert.Contains(t, tuitesting.View(m), "Admin passcode")

	m = typeText(m, "999")
	m = drive(t, m, tuitesting.KeyEnter())
	assert.Equal(t, StatePasscode, m.state)
	assert.Contains(t, tuitesting.View(m), "Incorrect passcode")
	assert.False(t, ctrl.Snapshot().Authenticated)

	m = typeText(m, app.DefaultPasscode)
	m = drive(t, m, tuitesting.KeyEnter())
	assert.Equal(t, StateSearch, m.state)
	assert.True(t, ctrl.Snapshot().Authenticated)
	assert.Contains(t, tuitesting.View(m), "ADMIN")
	assert.Contains(t, tuitesting.View(m), "Admin mode unlocked")

	m = drive(t, m, tuitesting.KeyPress("a"))
	assert.False(t, ctrl.Snapshot().Authenticated)
	assert.Contains(t, tuitesting.View(m), "Admin mode locked")
}

func TestModel_PasscodeEscCancels(t *testing.T) {
	m := NewModel(context.Background(), newTestController(t, llm.NewStubBackend()))

	m = drive(t, m, tuitesting.KeyPress("a"))
	m = drive(t, m, tuitesting.KeyEsc())
	assert.Equal(t, StateSearch, m.state)

	// Digits typed after cancelling go to the search box again.
	m = typeText(m, "72")
	assert.Equal(t, "72", m.input.Value())
}

func TestModel_ScanHeadings(t *testing.T) {
	stub := llm.NewStubBackend().Respond(llm.HeadingsSchema, `{"headings":[{"heading":"7604","description":"Aluminum bars","details":"Bars, rods and profiles"}]}`)
	ctrl := referenceController(t, stub)
	m := NewModel(context.Background(), ctrl)

	m = drive(t, m, tuitesting.KeyPress("s"))
	assert.Contains(t, tuitesting.View(m), "Admin login required")
	assert.Empty(t, stub.Calls())

	require.NoError(t, ctrl.Login(app.DefaultPasscode))
	m = drive(t, m, tuitesting.KeyPress("s"))
	assert.False(t, m.scanning)
	assert.Contains(t, tuitesting.View(m), "Found 1 headings")

	m = drive(t, m, tuitesting.KeyPress("d"))
	view := tuitesting.View(m)
	assert.Contains(t, view, "Reference Document")
	assert.Contains(t, view, "7604")
}

func TestModel_Details(t *testing.T) {
	ctrl := newTestController(t, llm.NewStubBackend())
	require.NoError(t, ctrl.Login(app.DefaultPasscode))
	_, err := ctrl.AddEntry(context.Background(), "7616.99", "Other aluminum articles", "All of 7616.99", model.MetalAluminum)
	require.NoError(t, err)
	m := NewModel(context.Background(), ctrl)

	assert.NotContains(t, tuitesting.View(m), "Other aluminum articles")
	m = drive(t, m, tuitesting.KeyPress("d"))
	assert.Contains(t, tuitesting.View(m), "Other aluminum articles")
}

func TestModel_ThemeAndProvider(t *testing.T) {
	ctrl := newTestController(t, llm.NewStubBackend())
	m := NewModel(context.Background(), ctrl)
	assert.False(t, m.theme.Dark)

	m = drive(t, m, tuitesting.KeyPress("t"))
	assert.True(t, m.theme.Dark)
	assert.Equal(t, app.ThemeDark, ctrl.Snapshot().Theme)

	m = drive(t, m, tuitesting.KeyPress("p"))
	assert.Contains(t, tuitesting.View(m), "Provider: gemini")
}

func TestModel_Help(t *testing.T) {
	m := NewModel(context.Background(), newTestController(t, llm.NewStubBackend()))

	m = drive(t, m, tuitesting.KeyPress("?"))
	assert.Equal(t, StateHelp, m.state)
	assert.Contains(t, tuitesting.View(m), "scan headings")

	m = drive(t, m, tuitesting.KeyEsc())
	assert.Equal(t, StateSearch, m.state)
}

func TestModel_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{tuitesting.KeyPress("q"), tuitesting.KeyEsc(), tuitesting.KeyCtrlC()} {
		m := NewModel(context.Background(), newTestController(t, llm.NewStubBackend()))
		next, cmd := m.Update(msg)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, next.View())
	}
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(context.Background(), newTestController(t, llm.NewStubBackend()), WithSize(40, 10))
	assert.Equal(t, 40, m.width)

	m = drive(t, m, tuitesting.WindowSize(120, 40))
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
	assert.Equal(t, 116, m.contentWidth())
}
