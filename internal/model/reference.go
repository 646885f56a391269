package model

import (
	"strconv"
	"strings"
)

// ReferenceKind says whether a reference document was pasted or uploaded.
type ReferenceKind string

// Reference kinds.
const (
	ReferenceText ReferenceKind = "text"
	ReferenceFile ReferenceKind = "file"
)

// HeadingInfo describes a 4-digit HTS heading found in a reference document.
type HeadingInfo struct {
	Heading     string `json:"heading"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

// ReferenceContext is the single active reference document.
// Content holds raw text for ReferenceText and a base64 payload for ReferenceFile.
type ReferenceContext struct {
	Kind              ReferenceKind `json:"type"`
	Content           string        `json:"content"`
	MIMEType          string        `json:"mimeType,omitempty"`
	Name              string        `json:"name"`
	ExtractedHeadings []HeadingInfo `json:"extractedHeadings"`
}

// IsInline reports whether the reference should be sent as binary data.
func (r *ReferenceContext) IsInline() bool {
	return r != nil && r.Kind == ReferenceFile && r.MIMEType != ""
}

// Clone returns a deep copy so callers can hand it to a backend call while
// the original keeps changing.
func (r *ReferenceContext) Clone() *ReferenceContext {
	if r == nil {
		return nil
	}
	c := *r
	if r.ExtractedHeadings != nil {
		c.ExtractedHeadings = append([]HeadingInfo{}, r.ExtractedHeadings...)
	}
	return &c
}

// Summary is a short human description used in listings.
func (r *ReferenceContext) Summary() string {
	if r == nil {
		return "none"
	}
	if r.Kind == ReferenceFile {
		return r.Name + " (" + r.MIMEType + ")"
	}
	words := len(strings.Fields(r.Content))
	if words == 1 {
		return r.Name + " (1 word)"
	}
	return r.Name + " (" + strconv.Itoa(words) + " words)"
}
