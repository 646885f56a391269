// Package storage provides the local store: the active reference document,
// manual entries and user preferences, kept in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidEntry = errors.New("invalid manual entry")
	ErrInvalidRef   = errors.New("invalid reference document")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntry checks an entry is complete before it is written.
func validateEntry(entry *model.ManualEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if err := validateString(entry.ID, "id"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if err := model.ValidateManualEntry(*entry); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return nil
}

// validateReference checks a reference document has something to send.
func validateReference(ref *model.ReferenceContext) error {
	if ref == nil {
		return fmt.Errorf("%w: reference", ErrNilParameter)
	}
	if err := validateString(ref.Content, "content"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRef, err)
	}
	switch ref.Kind {
	case model.ReferenceText, model.ReferenceFile:
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidRef, ref.Kind)
	}
}
