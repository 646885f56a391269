// Package prompt assembles the ordered context segments sent to an LLM
// backend. Manual rules come first, then the reference document, then the
// task instructions; backends read that order as priority.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/model"
)

// ErrNoReference is returned for tasks that can only be grounded in a
// reference document when none is loaded.
var ErrNoReference = errors.New("no reference document loaded")

// SegmentKind distinguishes text from inline binary content.
type SegmentKind int

// Segment kinds.
const (
	SegmentText SegmentKind = iota
	SegmentInline
)

func (k SegmentKind) String() string {
	if k == SegmentInline {
		return "inline"
	}
	return "text"
}

// Segment is one piece of provider-agnostic request content.
// Text segments use Text; inline segments use MIMEType and Data (base64).
type Segment struct {
	Text     string
	MIMEType string
	Data     string
	Kind     SegmentKind
}

// Text builds a text segment.
func Text(s string) Segment {
	return Segment{Kind: SegmentText, Text: s}
}

// Inline builds a binary segment from a base64 payload.
func Inline(mimeType, base64Payload string) Segment {
	return Segment{Kind: SegmentInline, MIMEType: mimeType, Data: base64Payload}
}

const (
	manualRulesHeader = "MANUAL OVERRIDE / SUPPLEMENTARY RULES:\n" +
		"The following are specific user-defined rules that MUST be checked. " +
		"If the HTS code matches any of these, it is a guaranteed match.\n\n"
	documentMarker = "REFERENCE DOCUMENT CONTENT:\n\n"
	noDataSource   = "No external reference document provided. " +
		"Please rely strictly on the Manual Override Rules provided above, if any."
)

// BuildSegments orders everything the backend is given for a task.
// Lookup and headings tasks return ErrNoReference when ref is nil.
func BuildSegments(ref *model.ReferenceContext, entries []model.ManualEntry, task Task) ([]Segment, error) {
	if task == nil {
		return nil, fmt.Errorf("prompt: nil task")
	}

	var segments []Segment

	if task.UsesManualRules() && len(entries) > 0 {
		segments = append(segments, Text(manualRulesText(entries)))
	}

	switch {
	case ref != nil:
		segments = append(segments, referenceSegments(ref, task.DocumentCaption())...)
	case !task.UsesManualRules():
		return nil, ErrNoReference
	default:
		segments = append(segments, Text(noDataSource))
	}

	return append(segments, Text(task.Instructions())), nil
}

func manualRulesText(entries []model.ManualEntry) string {
	var b strings.Builder
	b.WriteString(manualRulesHeader)
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "- Code/Range: %s\n  Category: %s\n  Metal: %s\n  Rule: %s",
			e.Code, e.Category, e.MetalType, e.Description)
	}
	b.WriteString("\n\n")
	return b.String()
}

func referenceSegments(ref *model.ReferenceContext, caption string) []Segment {
	if ref.IsInline() {
		return []Segment{
			Inline(ref.MIMEType, ref.Content),
			Text(caption),
		}
	}
	return []Segment{Text(documentMarker + ref.Content + "\n\n")}
}
