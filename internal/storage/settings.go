package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
)

// Settings keys.
const (
	keyActiveContext = "activeContext"
	keyPrefPrefix    = "pref."
)

// Preference names.
const (
	PrefTheme    = "theme"
	PrefProvider = "provider"
)

func (s *SQLiteStorage) getSetting(ctx context.Context, q queryable, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStorage) putSetting(ctx context.Context, q queryable, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	return err
}

// LoadReference returns the persisted reference document, or nil when none
// has been saved.
func (s *SQLiteStorage) LoadReference(ctx context.Context) (*model.ReferenceContext, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	raw, ok, err := s.getSetting(ctx, s.db, keyActiveContext)
	if err != nil {
		return nil, &common.StoreError{Op: "load reference", Err: err}
	}
	if !ok {
		return nil, nil
	}

	var ref model.ReferenceContext
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return nil, &common.StoreError{Op: "decode reference", Err: err}
	}
	return &ref, nil
}

// SaveReference replaces the persisted reference document.
func (s *SQLiteStorage) SaveReference(ctx context.Context, ref *model.ReferenceContext) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReference(ref); err != nil {
		return err
	}

	raw, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to marshal reference: %w", err)
	}
	if err := s.putSetting(ctx, s.db, keyActiveContext, string(raw)); err != nil {
		return &common.StoreError{Op: "save reference", Err: err}
	}
	return nil
}

// ClearReference removes the persisted reference document. Clearing when
// nothing is stored is not an error.
func (s *SQLiteStorage) ClearReference(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, keyActiveContext); err != nil {
		return &common.StoreError{Op: "clear reference", Err: err}
	}
	return nil
}

// GetPreference returns a stored preference and whether it was set.
func (s *SQLiteStorage) GetPreference(ctx context.Context, name string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	if err := validateString(name, "name"); err != nil {
		return "", false, err
	}

	value, ok, err := s.getSetting(ctx, s.db, keyPrefPrefix+name)
	if err != nil {
		return "", false, &common.StoreError{Op: "get preference", Err: err}
	}
	return value, ok, nil
}

// SetPreference stores a preference.
func (s *SQLiteStorage) SetPreference(ctx context.Context, name, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := s.putSetting(ctx, s.db, keyPrefPrefix+name, value); err != nil {
		return &common.StoreError{Op: "set preference", Err: err}
	}
	return nil
}
