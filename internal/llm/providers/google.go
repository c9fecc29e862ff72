package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ahrav/go-coach/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-coach/internal/llm/errors"
)

// GoogleAdapter implements Adapter for Google Gemini models using the
// generateContent API with API key authentication.
type GoogleAdapter struct {
	config configuration.ProviderConfig
	apiKey string
}

// NewGoogleAdapter creates a Gemini adapter. An empty endpoint falls back to
// the public generative language API.
func NewGoogleAdapter(cfg configuration.ProviderConfig) *GoogleAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = configuration.DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &GoogleAdapter{config: cfg, apiKey: cfg.ResolveAPIKey()}
}

// Name returns the provider name.
func (a *GoogleAdapter) Name() string { return ProviderGoogle }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

// Build constructs a generateContent request.
func (a *GoogleAdapter) Build(ctx context.Context, req *Request) (*http.Request, error) {
	if a.apiKey == "" {
		return nil, llmerrors.ErrMissingAPIKey
	}
	model := req.Model
	if model == "" {
		model = a.config.Model
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.JSON {
		body.GenerationConfig.ResponseMIMEType = "application/json"
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.config.Endpoint, url.PathEscape(model), url.QueryEscape(a.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Parse extracts the first candidate's text from a Gemini response.
func (a *GoogleAdapter) Parse(httpResp *http.Response) (*Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseGoogleError(httpResp, body)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", llmerrors.ErrInvalidResponse, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, llmerrors.ErrEmptyResponse
	}

	var content strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		content.WriteString(p.Text)
	}

	requestID := httpResp.Header.Get("x-goog-request-id")
	if requestID == "" {
		requestID = httpResp.Header.Get("x-request-id")
	}

	return &Response{
		Content:      content.String(),
		FinishReason: mapGoogleFinishReason(resp.Candidates[0].FinishReason),
		RequestID:    requestID,
		Usage: Usage{
			PromptTokens:     int64(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int64(resp.UsageMetadata.TotalTokenCount),
		},
	}, nil
}

// mapGoogleFinishReason converts a Gemini finishReason to a FinishReason.
func mapGoogleFinishReason(reason string) FinishReason {
	switch strings.ToUpper(reason) {
	case "MAX_TOKENS":
		return FinishLength
	case "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT", "RECITATION":
		return FinishContentFilter
	default:
		return FinishStop
	}
}

// parseGoogleError converts a Gemini error response to a ProviderError.
func parseGoogleError(httpResp *http.Response, body []byte) error {
	statusCode := httpResp.StatusCode
	retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))

	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &llmerrors.ProviderError{
			Provider:   ProviderGoogle,
			StatusCode: statusCode,
			Message:    errResp.Error.Message,
			Code:       errResp.Error.Status,
			Type:       classifyErrorType(statusCode, errResp.Error.Status),
			RetryAfter: retryAfter,
		}
	}

	return &llmerrors.ProviderError{
		Provider:   ProviderGoogle,
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
		Type:       classifyErrorType(statusCode, ""),
		RetryAfter: retryAfter,
	}
}
