package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
)

// ListEntries returns all manual entries in insertion order.
func (s *SQLiteStorage) ListEntries(ctx context.Context) ([]model.ManualEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	entries, err := s.listEntriesTx(ctx, s.db)
	if err != nil {
		return nil, &common.StoreError{Op: "list entries", Err: err}
	}
	return entries, nil
}

func (s *SQLiteStorage) listEntriesTx(ctx context.Context, q queryable) ([]model.ManualEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, code, category, description, metal_type
		FROM entries
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []model.ManualEntry{}
	for rows.Next() {
		var e model.ManualEntry
		var metal string
		if err := rows.Scan(&e.ID, &e.Code, &e.Category, &e.Description, &metal); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.MetalType = model.MetalType(metal)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveEntry inserts a new entry at the end of the list or updates an
// existing one in place. Updating keeps the entry's position.
func (s *SQLiteStorage) SaveEntry(ctx context.Context, entry *model.ManualEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &common.StoreError{Op: "save entry", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveEntryTx(ctx, tx, entry); err != nil {
		return &common.StoreError{Op: "save entry", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &common.StoreError{Op: "save entry", Err: err}
	}
	return nil
}

func (s *SQLiteStorage) saveEntryTx(ctx context.Context, tx *sql.Tx, entry *model.ManualEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, seq, code, category, description, metal_type)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entries), ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			category = excluded.category,
			description = excluded.description,
			metal_type = excluded.metal_type,
			updated_at = CURRENT_TIMESTAMP
	`, entry.ID, entry.Code, entry.Category, entry.Description, string(entry.MetalType))
	return err
}

// DeleteEntry removes an entry by ID.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return &common.StoreError{Op: "delete entry", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return &common.StoreError{Op: "delete entry", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ReplaceEntries swaps the whole entry list in one transaction.
func (s *SQLiteStorage) ReplaceEntries(ctx context.Context, entries []model.ManualEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range entries {
		if err := validateEntry(&entries[i]); err != nil {
			return fmt.Errorf("entry at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &common.StoreError{Op: "replace entries", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return &common.StoreError{Op: "replace entries", Err: err}
	}
	for i := range entries {
		if err := s.saveEntryTx(ctx, tx, &entries[i]); err != nil {
			return &common.StoreError{Op: "replace entries", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &common.StoreError{Op: "replace entries", Err: err}
	}
	return nil
}
