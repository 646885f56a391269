package llm

import (
	"context"
	"log/slog"

	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
)

// Backend sends segments plus a response schema to one LLM provider and
// returns the raw JSON body. Implementations decode with temperature pinned
// to zero and classify failures as common.BackendTransportError or
// common.BackendProtocolError.
type Backend interface {
	Name() string
	Generate(ctx context.Context, segments []prompt.Segment, schema Schema) ([]byte, error)
}

// Provider is the capability set every LLM backend offers the application.
type Provider interface {
	Name() string
	ClassifyCode(ctx context.Context, segments []prompt.Segment) (model.AnalysisResult, error)
	LookupProvision(ctx context.Context, segments []prompt.Segment) (model.ProvisionResult, error)
	ExtractHeadings(ctx context.Context, segments []prompt.Segment) ([]model.HeadingInfo, error)
}

// Adapter implements Provider on top of a Backend by pairing each operation
// with its schema and a typed decode step.
type Adapter struct {
	backend Backend
	logger  *slog.Logger
	decode  decoder
}

// NewAdapter wraps a backend. Strict enables semantic checks on responses
// beyond shape validation.
func NewAdapter(backend Backend, strict bool, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		backend: backend,
		logger:  logger.With("provider", backend.Name()),
		decode:  decoder{provider: backend.Name(), strict: strict},
	}
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return a.backend.Name()
}

// ClassifyCode asks whether the code in the task segment is a derivative.
func (a *Adapter) ClassifyCode(ctx context.Context, segments []prompt.Segment) (model.AnalysisResult, error) {
	raw, err := a.backend.Generate(ctx, segments, AnalysisSchema)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	result, err := a.decode.analysis(raw)
	if err != nil {
		a.logger.Warn("Rejected analysis response", "error", err)
		return model.AnalysisResult{}, err
	}
	a.logger.Debug("Classified code", "found", result.Found, "matches", len(result.Matches))
	return result, nil
}

// LookupProvision asks for the text of a provision or heading.
func (a *Adapter) LookupProvision(ctx context.Context, segments []prompt.Segment) (model.ProvisionResult, error) {
	raw, err := a.backend.Generate(ctx, segments, ProvisionSchema)
	if err != nil {
		return model.ProvisionResult{}, err
	}
	result, err := a.decode.provision(raw)
	if err != nil {
		a.logger.Warn("Rejected provision response", "error", err)
		return model.ProvisionResult{}, err
	}
	return result, nil
}

// ExtractHeadings lists the headings a document covers. Any failure degrades
// to an empty list; the returned error is always nil.
func (a *Adapter) ExtractHeadings(ctx context.Context, segments []prompt.Segment) ([]model.HeadingInfo, error) {
	raw, err := a.backend.Generate(ctx, segments, HeadingsSchema)
	if err != nil {
		a.logger.Warn("Heading extraction failed", "error", err)
		return []model.HeadingInfo{}, nil
	}
	headings, err := a.decode.headings(raw)
	if err != nil {
		a.logger.Warn("Rejected headings response", "error", err)
		return []model.HeadingInfo{}, nil
	}
	return headings, nil
}
