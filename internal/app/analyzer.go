package app

import (
	"context"
	"errors"

	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
)

// Classify asks the provider whether code falls under any derivative rule in
// the reference document or the manual entries.
func Classify(ctx context.Context, p llm.Provider, ref *model.ReferenceContext, entries []model.ManualEntry, code string) (model.AnalysisResult, error) {
	segments, err := prompt.BuildSegments(ref, entries, prompt.ClassifyTask{Code: code})
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return p.ClassifyCode(ctx, segments)
}

// Lookup asks the provider for the text of a provision. Without a reference
// document it answers not-found locally and never calls the provider.
func Lookup(ctx context.Context, p llm.Provider, ref *model.ReferenceContext, code string) (model.ProvisionResult, error) {
	segments, err := prompt.BuildSegments(ref, nil, prompt.LookupTask{Code: code})
	if errors.Is(err, prompt.ErrNoReference) {
		return model.NotFoundProvision(code), nil
	}
	if err != nil {
		return model.ProvisionResult{}, err
	}
	return p.LookupProvision(ctx, segments)
}

// ScanHeadings lists the headings of the reference document. It returns an
// empty list when there is no reference.
func ScanHeadings(ctx context.Context, p llm.Provider, ref *model.ReferenceContext) ([]model.HeadingInfo, error) {
	segments, err := prompt.BuildSegments(ref, nil, prompt.HeadingsTask{})
	if errors.Is(err, prompt.ErrNoReference) {
		return []model.HeadingInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	return p.ExtractHeadings(ctx, segments)
}
