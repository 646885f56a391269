// Package model defines the core domain types for derivative tariff checks.
package model

import "sort"

// MetalType identifies which metal tariff program a rule or match belongs to.
type MetalType string

// Metal types. Unknown is only produced by the backend, never entered by hand.
const (
	MetalAluminum MetalType = "Aluminum"
	MetalSteel    MetalType = "Steel"
	MetalBoth     MetalType = "Both"
	MetalUnknown  MetalType = "Unknown"
)

// IsValid reports whether m is one of the declared metal types.
func (m MetalType) IsValid() bool {
	switch m {
	case MetalAluminum, MetalSteel, MetalBoth, MetalUnknown:
		return true
	default:
		return false
	}
}

// Confidence is the backend-assigned certainty tier for a match.
type Confidence string

// Confidence tiers.
const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// IsValid reports whether c is one of the declared tiers.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// DerivativeMatch is a single derivative category an HTS code falls under.
type DerivativeMatch struct {
	DerivativeCategory string     `json:"derivativeCategory" yaml:"derivativeCategory"`
	MetalType          MetalType  `json:"metalType" yaml:"metalType"`
	MatchDetail        string     `json:"matchDetail" yaml:"matchDetail"`
	Confidence         Confidence `json:"confidence" yaml:"confidence"`
}

// AnalysisResult is the answer to a compliance check.
// Found=false is expected to come with no matches; Found=true may come with
// none (valid code, no derivative) or several.
type AnalysisResult struct {
	Reasoning string            `json:"reasoning" yaml:"reasoning"`
	Matches   []DerivativeMatch `json:"matches" yaml:"matches"`
	Found     bool              `json:"found" yaml:"found"`
}

// ProvisionResult is the answer to a provision lookup.
type ProvisionResult struct {
	Code        string `json:"code" yaml:"code"`
	MetalType   string `json:"metalType" yaml:"metalType"`
	Description string `json:"description" yaml:"description"`
	Found       bool   `json:"found" yaml:"found"`
}

// NoReferenceDescription is returned for lookups with no document loaded.
const NoReferenceDescription = "No reference document loaded to search."

// NotFoundProvision is the lookup result used when there is nothing to search.
func NotFoundProvision(code string) ProvisionResult {
	return ProvisionResult{
		Found:       false,
		Code:        code,
		MetalType:   string(MetalUnknown),
		Description: NoReferenceDescription,
	}
}

// HistoryItem records a past compliance check.
type HistoryItem struct {
	Code  string `json:"code"`
	Found bool   `json:"found"`
}

var confidenceRank = map[Confidence]int{
	ConfidenceHigh:   3,
	ConfidenceMedium: 2,
	ConfidenceLow:    1,
}

// SortedMatches returns the matches ordered by confidence (High first), then
// by category name. The result's own slice is left untouched.
func (r AnalysisResult) SortedMatches() []DerivativeMatch {
	out := append([]DerivativeMatch{}, r.Matches...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := confidenceRank[out[i].Confidence], confidenceRank[out[j].Confidence]
		if ri != rj {
			return ri > rj
		}
		return out[i].DerivativeCategory < out[j].DerivativeCategory
	})
	return out
}

// Verdict classifies a result into the three ways it is presented.
type Verdict int

// Verdicts.
const (
	VerdictNotDerivative Verdict = iota
	VerdictValidNoMatch
	VerdictDerivative
)

// Verdict reports how the result should be presented.
func (r AnalysisResult) Verdict() Verdict {
	switch {
	case !r.Found:
		return VerdictNotDerivative
	case len(r.Matches) == 0:
		return VerdictValidNoMatch
	default:
		return VerdictDerivative
	}
}
