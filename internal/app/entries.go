package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"gopkg.in/yaml.v3"
)

// entryFile is the YAML layout used by import and export.
type entryFile struct {
	Entries []model.ManualEntry `yaml:"entries"`
}

// Entries returns a copy of the manual entries in display order.
func (c *Controller) Entries() []model.ManualEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ManualEntry{}, c.state.Entries...)
}

// AddEntry validates and appends a new manual entry.
func (c *Controller) AddEntry(ctx context.Context, code, category, description string, metal model.MetalType) (model.ManualEntry, error) {
	if err := c.requireAdmin(); err != nil {
		return model.ManualEntry{}, err
	}

	entry := model.NewManualEntry(code, category, description, metal)
	if err := model.ValidateManualEntry(entry); err != nil {
		return model.ManualEntry{}, err
	}

	if err := c.store.SaveEntry(ctx, &entry); err != nil {
		c.logger.Warn("Failed to save manual entry", "id", entry.ID, "error", err)
	}

	c.mu.Lock()
	c.state.Entries = append(c.state.Entries, entry)
	c.mu.Unlock()

	c.logger.Info("Added manual entry", "id", entry.ID, "code", entry.Code)
	return entry, nil
}

// UpdateEntry replaces an existing entry in place, keeping its position.
func (c *Controller) UpdateEntry(ctx context.Context, entry model.ManualEntry) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}

	entry.Code = strings.TrimSpace(entry.Code)
	entry.Category = strings.TrimSpace(entry.Category)
	entry.Description = strings.TrimSpace(entry.Description)
	if err := model.ValidateManualEntry(entry); err != nil {
		return err
	}

	c.mu.Lock()
	idx := c.indexLocked(entry.ID)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("entry %s: %w", entry.ID, common.ErrNotFound)
	}
	c.state.Entries[idx] = entry
	c.mu.Unlock()

	if err := c.store.SaveEntry(ctx, &entry); err != nil {
		c.logger.Warn("Failed to save manual entry", "id", entry.ID, "error", err)
	}
	return nil
}

// DeleteEntry removes an entry by ID.
func (c *Controller) DeleteEntry(ctx context.Context, id string) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}

	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	c.state.Entries = append(c.state.Entries[:idx:idx], c.state.Entries[idx+1:]...)
	c.mu.Unlock()

	if err := c.store.DeleteEntry(ctx, id); err != nil {
		c.logger.Warn("Failed to delete manual entry", "id", id, "error", err)
	}
	return nil
}

// FindEntry resolves an entry by full ID or unique ID prefix.
func (c *Controller) FindEntry(idOrPrefix string) (model.ManualEntry, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	c.mu.Lock()
	defer c.mu.Unlock()

	var found []model.ManualEntry
	for _, e := range c.state.Entries {
		if e.ID == idOrPrefix {
			return e, nil
		}
		if idOrPrefix != "" && strings.HasPrefix(e.ID, idOrPrefix) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return model.ManualEntry{}, fmt.Errorf("entry %s: %w", idOrPrefix, common.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return model.ManualEntry{}, &common.ValidationError{Field: "id", Message: fmt.Sprintf("prefix %q matches %d entries", idOrPrefix, len(found))}
	}
}

func (c *Controller) indexLocked(id string) int {
	for i, e := range c.state.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ExportEntries writes all entries as YAML.
func (c *Controller) ExportEntries(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entryFile{Entries: c.Entries()}); err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}
	return enc.Close()
}

// ImportEntries reads YAML entries. Every entry is validated before anything
// changes; entries without an ID get a new one. With replace set the import
// becomes the whole list, otherwise it is appended. Either way a repeated ID
// updates the earlier entry in place. It returns the number of entries
// imported.
func (c *Controller) ImportEntries(ctx context.Context, r io.Reader, replace bool) (int, error) {
	if err := c.requireAdmin(); err != nil {
		return 0, err
	}

	var file entryFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return 0, &common.ValidationError{Field: "file", Message: "invalid entries file: " + err.Error()}
	}

	imported := make([]model.ManualEntry, 0, len(file.Entries))
	for i, e := range file.Entries {
		id := strings.TrimSpace(e.ID)
		e = model.NewManualEntry(e.Code, e.Category, e.Description, e.MetalType)
		if id != "" {
			e.ID = id
		}
		if err := model.ValidateManualEntry(e); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i+1, err)
		}
		imported = append(imported, e)
	}

	if replace {
		imported = dedupeEntries(imported)
		if err := c.store.ReplaceEntries(ctx, imported); err != nil {
			c.logger.Warn("Failed to replace stored entries", "error", err)
		}
		c.mu.Lock()
		c.state.Entries = append([]model.ManualEntry{}, imported...)
		c.mu.Unlock()
		return len(imported), nil
	}

	for i := range imported {
		e := imported[i]
		if err := c.store.SaveEntry(ctx, &e); err != nil {
			c.logger.Warn("Failed to save imported entry", "id", e.ID, "error", err)
		}
		c.mu.Lock()
		if idx := c.indexLocked(e.ID); idx >= 0 {
			c.state.Entries[idx] = e
		} else {
			c.state.Entries = append(c.state.Entries, e)
		}
		c.mu.Unlock()
	}
	return len(imported), nil
}

// dedupeEntries collapses repeated IDs: the last entry wins and keeps the
// position of the first, as the store's upsert does.
func dedupeEntries(entries []model.ManualEntry) []model.ManualEntry {
	seen := make(map[string]int, len(entries))
	out := make([]model.ManualEntry, 0, len(entries))
	for _, e := range entries {
		if i, ok := seen[e.ID]; ok {
			out[i] = e
			continue
		}
		seen[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}
