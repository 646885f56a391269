package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
)

// Wire structs use pointers so a missing required field can be told apart
// from a zero value. Type mismatches are reported by encoding/json.

type analysisWire struct {
	Found     *bool        `json:"found"`
	Matches   *[]matchWire `json:"matches"`
	Reasoning *string      `json:"reasoning"`
}

type matchWire struct {
	DerivativeCategory *string `json:"derivativeCategory"`
	MetalType          *string `json:"metalType"`
	MatchDetail        *string `json:"matchDetail"`
	Confidence         *string `json:"confidence"`
}

type provisionWire struct {
	Found       *bool   `json:"found"`
	Code        *string `json:"code"`
	MetalType   *string `json:"metalType"`
	Description *string `json:"description"`
}

type headingsWire struct {
	Headings *[]headingWire `json:"headings"`
}

type headingWire struct {
	Heading     *string `json:"heading"`
	Description *string `json:"description"`
	Details     *string `json:"details"`
}

// cleanMarkdownWrapper strips a ```json fence some models wrap around JSON.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```JSON")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// decoder turns raw backend bodies into domain values.
type decoder struct {
	provider string
	strict   bool
}

func (d decoder) protocolErr(format string, args ...any) error {
	return &common.BackendProtocolError{Provider: d.provider, Message: fmt.Sprintf(format, args...)}
}

func (d decoder) unmarshal(raw []byte, v any) error {
	body := cleanMarkdownWrapper(string(raw))
	if body == "" {
		return &common.BackendProtocolError{Provider: d.provider, Message: "empty response body", Err: common.ErrEmptyResponse}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return &common.BackendProtocolError{Provider: d.provider, Message: "response is not valid JSON for the schema", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &common.BackendProtocolError{Provider: d.provider, Message: "response has trailing data after the JSON value"}
	}
	return nil
}

func (d decoder) analysis(raw []byte) (model.AnalysisResult, error) {
	var w analysisWire
	if err := d.unmarshal(raw, &w); err != nil {
		return model.AnalysisResult{}, err
	}
	if w.Found == nil {
		return model.AnalysisResult{}, d.protocolErr("missing required field %q", "found")
	}
	if w.Matches == nil {
		return model.AnalysisResult{}, d.protocolErr("missing required field %q", "matches")
	}
	if w.Reasoning == nil {
		return model.AnalysisResult{}, d.protocolErr("missing required field %q", "reasoning")
	}

	result := model.AnalysisResult{
		Found:     *w.Found,
		Reasoning: *w.Reasoning,
		Matches:   make([]model.DerivativeMatch, 0, len(*w.Matches)),
	}
	for i, m := range *w.Matches {
		switch {
		case m.DerivativeCategory == nil:
			return model.AnalysisResult{}, d.protocolErr("matches[%d]: missing required field %q", i, "derivativeCategory")
		case m.MetalType == nil:
			return model.AnalysisResult{}, d.protocolErr("matches[%d]: missing required field %q", i, "metalType")
		case m.MatchDetail == nil:
			return model.AnalysisResult{}, d.protocolErr("matches[%d]: missing required field %q", i, "matchDetail")
		case m.Confidence == nil:
			return model.AnalysisResult{}, d.protocolErr("matches[%d]: missing required field %q", i, "confidence")
		}
		match := model.DerivativeMatch{
			DerivativeCategory: *m.DerivativeCategory,
			MetalType:          model.MetalType(*m.MetalType),
			MatchDetail:        *m.MatchDetail,
			Confidence:         model.Confidence(*m.Confidence),
		}
		if d.strict {
			if !match.MetalType.IsValid() {
				return model.AnalysisResult{}, d.protocolErr("matches[%d]: metalType %q is not a declared value", i, match.MetalType)
			}
			if !match.Confidence.IsValid() {
				return model.AnalysisResult{}, d.protocolErr("matches[%d]: confidence %q is not a declared value", i, match.Confidence)
			}
		}
		result.Matches = append(result.Matches, match)
	}

	if d.strict && !result.Found && len(result.Matches) > 0 {
		return model.AnalysisResult{}, d.protocolErr("found is false but %d matches were returned", len(result.Matches))
	}
	return result, nil
}

func (d decoder) provision(raw []byte) (model.ProvisionResult, error) {
	var w provisionWire
	if err := d.unmarshal(raw, &w); err != nil {
		return model.ProvisionResult{}, err
	}
	for _, f := range []struct {
		name    string
		present bool
	}{
		{"found", w.Found != nil},
		{"code", w.Code != nil},
		{"metalType", w.MetalType != nil},
		{"description", w.Description != nil},
	} {
		if !f.present {
			return model.ProvisionResult{}, d.protocolErr("missing required field %q", f.name)
		}
	}
	return model.ProvisionResult{
		Found:       *w.Found,
		Code:        *w.Code,
		MetalType:   *w.MetalType,
		Description: *w.Description,
	}, nil
}

func (d decoder) headings(raw []byte) ([]model.HeadingInfo, error) {
	var w headingsWire
	if err := d.unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if w.Headings == nil {
		return nil, d.protocolErr("missing required field %q", "headings")
	}

	out := make([]model.HeadingInfo, 0, len(*w.Headings))
	for i, h := range *w.Headings {
		if h.Heading == nil || h.Description == nil {
			return nil, d.protocolErr("headings[%d]: missing heading or description", i)
		}
		info := model.HeadingInfo{Heading: *h.Heading, Description: *h.Description}
		if h.Details != nil {
			info.Details = *h.Details
		}
		out = append(out, info)
	}
	return out, nil
}
