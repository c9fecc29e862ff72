// Package providers translates model calls into provider HTTP requests and
// back. Only Google Gemini is supported.
package providers

import (
	"context"
	"net/http"
)

// ProviderGoogle is the canonical name of the Gemini provider.
const ProviderGoogle = "google"

// Adapter abstracts provider-specific HTTP communication.
type Adapter interface {
	// Build constructs the provider HTTP request for req.
	Build(ctx context.Context, req *Request) (*http.Request, error)

	// Parse extracts the model output from the provider's HTTP response.
	Parse(httpResp *http.Response) (*Response, error)

	// Name returns the canonical provider identifier.
	Name() string
}

// Request is a provider-neutral single-turn model call.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
	// JSON asks the provider to constrain output to a JSON document.
	JSON bool
}

// FinishReason describes why generation stopped.
type FinishReason string

// Finish reasons.
const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage is normalized token accounting.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Response is the normalized model output.
type Response struct {
	Content      string
	FinishReason FinishReason
	RequestID    string
	Usage        Usage
}
