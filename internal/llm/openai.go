package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
)

const openAISystemPrompt = "You are a Trade Compliance Expert. You MUST respond with ONLY a valid JSON object matching the provided schema. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON."

// openAIBackend implements Backend for the OpenAI Chat Completions API.
type openAIBackend struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
}

// newOpenAIBackend creates a new OpenAI API backend.
func newOpenAIBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &openAIBackend{
		apiKey:    cfg.APIKey,
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: cfg.timeout(),
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (c *openAIBackend) Name() string { return ProviderOpenAI }

// openAIResponse represents the OpenAI API response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Created int64 `json:"created"`
}

// openAIErrorBody is the error envelope returned with non-2xx statuses.
type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// contentParts maps segments to chat content parts. PDFs go as file parts,
// images as image_url parts, anything else inline is rejected.
func contentParts(segments []prompt.Segment) ([]map[string]any, error) {
	parts := make([]map[string]any, 0, len(segments))
	for i, s := range segments {
		if s.Kind != prompt.SegmentInline {
			parts = append(parts, map[string]any{"type": "text", "text": s.Text})
			continue
		}

		dataURL := "data:" + s.MIMEType + ";base64," + s.Data
		switch {
		case s.MIMEType == "application/pdf":
			parts = append(parts, map[string]any{
				"type": "file",
				"file": map[string]any{
					"filename":  "reference.pdf",
					"file_data": dataURL,
				},
			})
		case strings.HasPrefix(s.MIMEType, "image/"):
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": dataURL},
			})
		default:
			return nil, fmt.Errorf("segment %d: OpenAI cannot accept inline %s content", i, s.MIMEType)
		}
	}
	return parts, nil
}

// Generate sends one chat completion request with a strict JSON schema.
func (c *openAIBackend) Generate(ctx context.Context, segments []prompt.Segment, schema Schema) ([]byte, error) {
	parts, err := contentParts(segments)
	if err != nil {
		return nil, err
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": openAISystemPrompt,
			},
			{
				"role":    "user",
				"content": parts,
			},
		},
		"temperature": 0,
		"max_tokens":  c.maxTokens,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schema.Name,
				"strict": true,
				"schema": schema.JSONSchema(),
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.BackendTransportError{
			Provider: ProviderOpenAI,
			Message:  err.Error(),
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.BackendTransportError{Provider: ProviderOpenAI, Message: "failed to read response", Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		var envelope openAIErrorBody
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return nil, &common.BackendTransportError{
			Provider:   ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Timeout:    resp.StatusCode == http.StatusGatewayTimeout,
		}
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &common.BackendProtocolError{Provider: ProviderOpenAI, Message: "failed to parse response", Err: err}
	}

	if len(response.Choices) == 0 {
		return nil, &common.BackendProtocolError{Provider: ProviderOpenAI, Message: "no completion choices returned", Err: common.ErrEmptyResponse}
	}

	msg := response.Choices[0].Message
	if msg.Refusal != nil && *msg.Refusal != "" {
		return nil, &common.BackendProtocolError{Provider: ProviderOpenAI, Message: "model refused: " + *msg.Refusal}
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, &common.BackendProtocolError{Provider: ProviderOpenAI, Message: "No response from OpenAI.", Err: common.ErrEmptyResponse}
	}

	return []byte(msg.Content), nil
}

// isTimeout reports whether err came from a deadline rather than a refusal.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
