// Package errors defines the failure kinds raised by calls to the external
// inference service and helpers that classify them for the conversation loop
// and the evaluation workflow.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes inference failures for retry classification and
// user-facing reporting.
//
//nolint:godot // linter incorrectly flags properly capitalized comment
type ErrorType string

const (
	// ErrorTypeTimeout indicates the call exceeded its deadline (retryable).
	// Kept distinct from ErrorTypeDecode so a slow model is never reported as a bad payload.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates the provider rejected the call for quota pacing (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates provider service unavailable (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeDecode indicates the provider answered but the payload could not be parsed.
	ErrorTypeDecode ErrorType = "decode_failed"

	// ErrorTypeValidation indicates input validation failed (business error).
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeAuth indicates authentication failed (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeQuota indicates account quota exceeded (non-retryable).
	ErrorTypeQuota ErrorType = "quota_exceeded"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common inference errors for consistent error handling.
var (
	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates the provider rejected a call for pacing.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidResponse indicates the provider returned an invalid response.
	ErrInvalidResponse = errors.New("invalid provider response")

	// ErrEmptyResponse indicates the provider returned no candidate text.
	ErrEmptyResponse = errors.New("empty provider response")

	// ErrMissingAPIKey indicates no credential was configured for the provider.
	ErrMissingAPIKey = errors.New("provider API key not configured")
)

// Collaborator names the external capability a call was made to.
type Collaborator string

// Collaborators consumed by the conversation core.
const (
	CollaboratorResponder Collaborator = "responder"
	CollaboratorExtractor Collaborator = "extractor"
	CollaboratorGenerator Collaborator = "generator"
)

// ExternalCallError wraps any failure raised by a responder, extractor or
// generator call. The conversation loop catches it at the turn boundary and
// reports it as recoverable; the evaluation activities hand it to
// ClassifyLLMError to pick Temporal retry semantics.
//
// Type is decided once, when the error is built, so every consumer sees the
// same classification:
//   - a context deadline is ErrorTypeTimeout, never a decode failure;
//   - a ProviderError keeps the type the adapter derived from the provider's
//     status and error code;
//   - a DecodeError is ErrorTypeDecode.
type ExternalCallError struct {
	Collaborator Collaborator `json:"collaborator"`
	Type         ErrorType    `json:"type"`
	Cause        error        `json:"-"`
}

// NewExternalCallError classifies cause and tags it with the collaborator.
// A nil cause yields nil. A cause that already is an ExternalCallError is
// returned unchanged so the innermost collaborator keeps the blame.
func NewExternalCallError(c Collaborator, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *ExternalCallError
	if errors.As(cause, &existing) {
		return cause
	}
	typ := ErrorTypeUnknown
	if wf := ClassifyLLMError(cause); wf != nil {
		typ = wf.Type
	}
	return &ExternalCallError{Collaborator: c, Type: typ, Cause: cause}
}

// Error returns the collaborator, classification and cause.
func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s call failed [%s]: %v", e.Collaborator, e.Type, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *ExternalCallError) Unwrap() error { return e.Cause }

// IsTimeout reports whether the call failed because it ran out of time.
func (e *ExternalCallError) IsTimeout() bool { return e.Type == ErrorTypeTimeout }

// ProviderError captures structured error responses from the inference
// provider. The adapter fills Type from the provider's own status string
// (RESOURCE_EXHAUSTED, PERMISSION_DENIED, ...) when one is present and from
// the HTTP status otherwise. RetryAfter carries the Retry-After header so a
// Temporal retry policy or an operator can see how long to back off.
type ProviderError struct {
	Provider   string    `json:"provider"`    // Provider name
	StatusCode int       `json:"status_code"` // HTTP status code
	Message    string    `json:"message"`     // Error message
	Code       string    `json:"code"`        // Provider error code
	Type       ErrorType `json:"type"`        // Classified error type
	RetryAfter int       `json:"retry_after"` // Retry-After header value in seconds
}

// Error returns formatted provider error with status code context.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable determines if the provider error warrants a retry attempt.
//
//nolint:godot // linter incorrectly flags properly capitalized comment
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the provider's Retry-After guidance.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// ClassifyStatus maps an HTTP status to an ErrorType. It is the fallback
// when a provider error body carries no recognizable status string.
func ClassifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case statusCode == http.StatusUnauthorized:
		return ErrorTypeAuth
	case statusCode == http.StatusForbidden:
		return ErrorTypeQuota
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case statusCode >= http.StatusInternalServerError:
		return ErrorTypeProvider
	default:
		return ErrorTypeUnknown
	}
}

// DecodeError indicates the provider answered but its payload could not be
// parsed into the expected shape, even after JSON repair when repair is
// enabled. It is retryable in the evaluation workflow, since a resampled
// answer usually parses.
type DecodeError struct {
	What  string // what was being decoded, e.g. "coach reply"
	Cause error
}

// Error returns the decode target and cause.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Cause }

// IsTimeout reports whether err was caused by a deadline, whether from the
// context, the HTTP client or a classified external call.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ext *ExternalCallError
	if errors.As(err, &ext) {
		return ext.IsTimeout()
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type == ErrorTypeTimeout
	}
	type timeout interface{ Timeout() bool }
	var t timeout
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}

// IsRetryableError determines if an error warrants a retry attempt.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if wf := ClassifyLLMError(err); wf != nil {
		return wf.ShouldRetry()
	}
	return false
}
