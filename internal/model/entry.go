package model

import (
	"regexp"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/google/uuid"
)

// ManualEntry is a user-authored override rule. Any code matching an entry is
// treated as a guaranteed derivative match.
type ManualEntry struct {
	ID          string    `json:"id" yaml:"id,omitempty"`
	Code        string    `json:"code" yaml:"code"`
	Category    string    `json:"category" yaml:"category"`
	Description string    `json:"description" yaml:"description"`
	MetalType   MetalType `json:"metalType" yaml:"metalType"`
}

// htsCodePattern accepts digits and dots, optionally as a dash range.
var htsCodePattern = regexp.MustCompile(`^[\d.]+(?:\s*-\s*[\d.]+)?$`)

// NewManualEntry builds an entry with a fresh ID. It does not validate.
func NewManualEntry(code, category, description string, metal MetalType) ManualEntry {
	return ManualEntry{
		ID:          uuid.NewString(),
		Code:        strings.TrimSpace(code),
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
		MetalType:   metal,
	}
}

// ValidateHTSCode checks the manual-entry code format: "7604.10" and
// "7604.10-7606.90" pass, "abc" and "" do not.
func ValidateHTSCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return &common.ValidationError{Field: "code", Message: "HTS Code is required"}
	}
	if !htsCodePattern.MatchString(code) {
		return &common.ValidationError{Field: "code", Message: "Invalid format (digits/dots only, e.g. 7604.10)"}
	}
	return nil
}

// ValidateManualEntry checks every field of an entry and returns the first
// failure as a *common.ValidationError.
func ValidateManualEntry(e ManualEntry) error {
	if err := ValidateHTSCode(e.Code); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return &common.ValidationError{Field: "category", Message: "Category name is required"}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &common.ValidationError{Field: "description", Message: "Rule detail is required"}
	}
	switch e.MetalType {
	case MetalAluminum, MetalSteel, MetalBoth:
	default:
		return &common.ValidationError{Field: "metalType", Message: "must be Aluminum, Steel or Both"}
	}
	return nil
}

// ParseMetalType maps user input to a metal type, case-insensitively.
func ParseMetalType(s string) (MetalType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aluminum", "aluminium", "al":
		return MetalAluminum, nil
	case "steel", "st":
		return MetalSteel, nil
	case "both":
		return MetalBoth, nil
	default:
		return "", &common.ValidationError{Field: "metalType", Message: "must be Aluminum, Steel or Both"}
	}
}

// NormalizeQuery keeps only the characters a search box accepts.
func NormalizeQuery(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}
