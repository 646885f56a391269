package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
)

// PastedTextName names references that came from pasted text.
const PastedTextName = "Pasted Text Content"

// MIME types accepted by LoadDocument.
const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
)

// detectMIME prefers the extension and falls back to content sniffing.
func detectMIME(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

// LoadDocument reads a PDF (sent to the provider as binary) or a plain text
// file (sent as text) and makes it the active reference.
func (c *Controller) LoadDocument(ctx context.Context, path string) (*model.ReferenceContext, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) == 0 {
		return nil, &common.ValidationError{Field: "file", Message: "document is empty"}
	}

	name := filepath.Base(path)
	var ref *model.ReferenceContext
	switch mt := detectMIME(path, data); mt {
	case mimePDF:
		ref = &model.ReferenceContext{
			Kind:     model.ReferenceFile,
			Content:  base64.StdEncoding.EncodeToString(data),
			MIMEType: mimePDF,
			Name:     name,
		}
	case mimeText:
		ref = &model.ReferenceContext{
			Kind:    model.ReferenceText,
			Content: string(data),
			Name:    name,
		}
	default:
		return nil, &common.ValidationError{Field: "file", Message: fmt.Sprintf("Please upload a valid PDF file (got %s)", mt)}
	}

	c.setReference(ctx, ref)
	c.logger.Info("Loaded reference document", "name", name, "type", ref.Kind, "bytes", len(data))
	return ref.Clone(), nil
}

// PasteText makes text the active reference. Blank text is rejected.
func (c *Controller) PasteText(ctx context.Context, name, text string) (*model.ReferenceContext, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, &common.ValidationError{Field: "text", Message: "reference text is required"}
	}
	if strings.TrimSpace(name) == "" {
		name = PastedTextName
	}

	ref := &model.ReferenceContext{Kind: model.ReferenceText, Content: text, Name: strings.TrimSpace(name)}
	c.setReference(ctx, ref)
	return ref.Clone(), nil
}

// ClearDocument removes the active reference.
func (c *Controller) ClearDocument(ctx context.Context) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}

	c.mu.Lock()
	c.state.Reference = nil
	c.mu.Unlock()

	if err := c.store.ClearReference(ctx); err != nil {
		c.logger.Warn("Failed to clear stored reference", "error", err)
	}
	return nil
}

// setReference replaces the reference in memory, then persists it.
func (c *Controller) setReference(ctx context.Context, ref *model.ReferenceContext) {
	c.mu.Lock()
	c.state.Reference = ref.Clone()
	c.mu.Unlock()

	if err := c.store.SaveReference(ctx, ref); err != nil {
		c.logger.Warn("Failed to save reference document", "error", err)
	}
}

// ScanHeadings asks the provider for the headings in the reference document,
// attaches them to it and persists the result. It runs independently of
// Search; a second scan while one is running returns common.ErrBusy.
func (c *Controller) ScanHeadings(ctx context.Context) ([]model.HeadingInfo, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state.Reference == nil {
		c.mu.Unlock()
		return nil, common.ErrNotReady
	}
	if c.state.Scanning {
		c.mu.Unlock()
		return nil, common.ErrBusy
	}
	c.state.Scanning = true
	ref := c.state.Reference.Clone()
	provider, err := c.providerLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Scanning = false
		c.mu.Unlock()
	}()

	if err != nil {
		return nil, err
	}

	headings, err := ScanHeadings(ctx, provider, ref)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	current := c.state.Reference
	// The reference may have been replaced while the scan ran.
	if current == nil || current.Content != ref.Content || current.Name != ref.Name {
		c.mu.Unlock()
		c.logger.Info("Reference changed during heading scan; discarding result")
		return headings, nil
	}
	current.ExtractedHeadings = append([]model.HeadingInfo{}, headings...)
	updated := current.Clone()
	c.mu.Unlock()

	if err := c.store.SaveReference(ctx, updated); err != nil {
		c.logger.Warn("Failed to save extracted headings", "error", err)
	}
	c.logger.Info("Scanned document headings", "count", len(headings))
	return headings, nil
}
