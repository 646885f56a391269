// Package testutil provides test helpers shared across packages: seeded
// in-memory databases and controllers wired to a stub LLM backend.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	Reference *model.ReferenceContext
	Prefs     map[string]string
	Entries   []model.ManualEntry
}

// SetupTestDB creates a new in-memory test database seeded from opts.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.TestDBOptions{
//		Reference: testutil.TextReference("Heading 7604 ..."),
//	})
func SetupTestDB(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	if opts.Reference != nil {
		if err := store.SaveReference(ctx, opts.Reference); err != nil {
			t.Fatalf("failed to seed reference: %v", err)
		}
	}
	for i := range opts.Entries {
		if err := store.SaveEntry(ctx, &opts.Entries[i]); err != nil {
			t.Fatalf("failed to seed entry %q: %v", opts.Entries[i].Code, err)
		}
	}
	for name, value := range opts.Prefs {
		if err := store.SetPreference(ctx, name, value); err != nil {
			t.Fatalf("failed to seed preference %q: %v", name, err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// Controller builds a controller over the database with one provider per
// backend. The first backend's provider is the configured default.
func (db *TestDB) Controller(backends ...llm.Backend) *app.Controller {
	db.t.Helper()

	providers := make([]llm.Provider, 0, len(backends))
	for _, b := range backends {
		providers = append(providers, llm.NewAdapter(b, false, nil))
	}
	var defaultProvider string
	if len(backends) > 0 {
		defaultProvider = backends[0].Name()
	}

	ctrl, err := app.NewController(context.Background(), app.Options{
		Store:    db.Storage,
		Registry: llm.NewRegistryFrom(providers...),
		Provider: defaultProvider,
	})
	if err != nil {
		db.t.Fatalf("failed to create controller: %v", err)
	}
	return ctrl
}

// TextReference returns a pasted-text reference holding content.
func TextReference(content string) *model.ReferenceContext {
	return &model.ReferenceContext{
		Kind:    model.ReferenceText,
		Content: content,
		Name:    app.PastedTextName,
	}
}

// GeminiStub returns a stub backend that reports itself as the Gemini provider.
func GeminiStub() *llm.StubBackend {
	stub := llm.NewStubBackend()
	stub.ProvName = llm.ProviderGemini
	return stub
}
