package llm

import (
	"context"
	"sync"

	"github.com/Veraticus/hts-derivatives/internal/prompt"
)

// StubCall records one Generate invocation.
type StubCall struct {
	Schema   string
	Segments []prompt.Segment
}

// StubBackend is a scripted Backend for tests. Responses are keyed by schema
// name; Err, when set, is returned for every call.
type StubBackend struct {
	Responses map[string]string
	Err       error
	ProvName  string
	calls     []StubCall
	mu        sync.Mutex
}

// NewStubBackend returns a stub named "stub" with no canned responses.
func NewStubBackend() *StubBackend {
	return &StubBackend{Responses: make(map[string]string), ProvName: "stub"}
}

// Respond sets the raw body returned for a schema.
func (s *StubBackend) Respond(schema Schema, body string) *StubBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses[schema.Name] = body
	return s
}

// Name implements Backend.
func (s *StubBackend) Name() string {
	return s.ProvName
}

// Generate implements Backend.
func (s *StubBackend) Generate(ctx context.Context, segments []prompt.Segment, schema Schema) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, StubCall{
		Schema:   schema.Name,
		Segments: append([]prompt.Segment(nil), segments...),
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return []byte(s.Responses[schema.Name]), nil
}

// Calls returns a copy of every recorded call.
func (s *StubBackend) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubCall(nil), s.calls...)
}

// LastCall returns the most recent call, if any.
func (s *StubBackend) LastCall() (StubCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return StubCall{}, false
	}
	return s.calls[len(s.calls)-1], true
}
