package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_Seeds(t *testing.T) {
	db := SetupTestDB(t, TestDBOptions{
		Reference: TextReference("Heading 7604"),
		Entries:   []model.ManualEntry{model.NewManualEntry("7306", "Steel tubes", "All of 7306", model.MetalSteel)},
		Prefs:     map[string]string{storage.PrefTheme: string(app.ThemeDark)},
	})

	ctrl := db.Controller(GeminiStub())
	s := ctrl.Snapshot()
	require.NotNil(t, s.Reference)
	assert.Equal(t, "Heading 7604", s.Reference.Content)
	require.Len(t, s.Entries, 1)
	assert.Equal(t, "7306", s.Entries[0].Code)
	assert.Equal(t, app.ThemeDark, s.Theme)
	assert.Equal(t, llm.ProviderGemini, s.Provider)
}

func TestSetupTestDB_Empty(t *testing.T) {
	db := SetupTestDB(t, TestDBOptions{})
	ref, err := db.Storage.LoadReference(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ref)
	assert.False(t, db.Controller().Ready())
}
