package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
	"google.golang.org/genai"
)

// proxyPlaceholderKey is sent when the proxy supplies the real key; the SDK
// refuses to build a client without one.
const proxyPlaceholderKey = "hts-proxy"

// geminiBackend implements Backend with the Google GenAI SDK.
type geminiBackend struct {
	client *genai.Client
	model  string
}

// newGeminiBackend creates a Gemini backend. A BaseURL routes requests
// through the hts proxy, which supplies the real API key upstream.
func newGeminiBackend(ctx context.Context, cfg Config) (Backend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" && cfg.BaseURL != "" {
		apiKey = proxyPlaceholderKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required (or set a proxy base URL)", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: cfg.timeout(),
		},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &geminiBackend{client: client, model: model}, nil
}

func (b *geminiBackend) Name() string { return ProviderGemini }

// Generate sends the segments as a single user turn with a response schema.
func (b *geminiBackend) Generate(ctx context.Context, segments []prompt.Segment, schema Schema) ([]byte, error) {
	parts, err := geminiParts(segments)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.GenAI(),
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return nil, geminiTransportError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, &common.BackendProtocolError{Provider: ProviderGemini, Message: "No response from Gemini.", Err: common.ErrEmptyResponse}
	}
	return []byte(text), nil
}

func geminiParts(segments []prompt.Segment) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(segments))
	for i, s := range segments {
		switch s.Kind {
		case prompt.SegmentInline:
			data, err := base64.StdEncoding.DecodeString(s.Data)
			if err != nil {
				return nil, fmt.Errorf("segment %d: invalid base64 payload: %w", i, err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, s.MIMEType))
		default:
			parts = append(parts, genai.NewPartFromText(s.Text))
		}
	}
	return parts, nil
}

func geminiTransportError(err error) error {
	transportErr := &common.BackendTransportError{Provider: ProviderGemini, Message: err.Error(), Err: err}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		transportErr.StatusCode = apiErr.Code
		transportErr.Message = apiErr.Message
	case errors.As(err, &apiErrPtr):
		transportErr.StatusCode = apiErrPtr.Code
		transportErr.Message = apiErrPtr.Message
	}

	if isTimeout(err) || transportErr.StatusCode == http.StatusGatewayTimeout {
		transportErr.Timeout = true
	}
	return transportErr
}
