package app

import (
	"context"

	"github.com/Veraticus/hts-derivatives/internal/model"
)

// Store persists the reference document, manual entries and preferences.
// *storage.SQLiteStorage implements it.
type Store interface {
	LoadReference(ctx context.Context) (*model.ReferenceContext, error)
	SaveReference(ctx context.Context, ref *model.ReferenceContext) error
	ClearReference(ctx context.Context) error

	ListEntries(ctx context.Context) ([]model.ManualEntry, error)
	SaveEntry(ctx context.Context, entry *model.ManualEntry) error
	DeleteEntry(ctx context.Context, id string) error
	ReplaceEntries(ctx context.Context, entries []model.ManualEntry) error

	GetPreference(ctx context.Context, name string) (string, bool, error)
	SetPreference(ctx context.Context, name, value string) error
}
