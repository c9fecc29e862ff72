package errors

import (
	"context"
	"errors"
	"strings"
)

// ClassifyLLMError transforms inference errors into WorkflowError with retry guidance.
// Examines error types, HTTP status codes, and message patterns to determine
// appropriate error classification, retry behavior, and structured context.
func ClassifyLLMError(err error) *WorkflowError {
	if err == nil {
		return nil
	}

	// Check for strongly-typed errors first.
	if workflowErr := classifyTypedErrors(err); workflowErr != nil {
		return workflowErr
	}

	// Check for sentinel errors using errors.Is.
	if workflowErr := classifySentinelErrors(err); workflowErr != nil {
		return workflowErr
	}

	// Fallback to string pattern matching for untyped errors.
	return classifyStringPatternErrors(err)
}

// classifyTypedErrors handles strongly-typed error classification.
func classifyTypedErrors(err error) *WorkflowError {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr
	}

	var extErr *ExternalCallError
	if errors.As(err, &extErr) {
		wf := &WorkflowError{
			Type:         extErr.Type,
			Collaborator: extErr.Collaborator,
			Message:      extErr.Error(),
			Code:         "EXTERNAL_CALL",
			Retryable:    retryableType(extErr.Type),
			Cause:        err,
		}
		var providerErr *ProviderError
		if errors.As(extErr.Cause, &providerErr) {
			wf.Code = providerErr.Code
			wf.Retryable = providerErr.IsRetryable()
			wf.Details = map[string]any{
				"provider":    providerErr.Provider,
				"status_code": providerErr.StatusCode,
			}
		}
		return wf
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return &WorkflowError{
			Type:      providerErr.Type,
			Message:   providerErr.Message,
			Code:      providerErr.Code,
			Retryable: providerErr.IsRetryable(),
			Details: map[string]any{
				"provider":    providerErr.Provider,
				"status_code": providerErr.StatusCode,
			},
			Cause: err,
		}
	}

	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return &WorkflowError{
			Type:      ErrorTypeDecode,
			Message:   decErr.Error(),
			Code:      "DECODE",
			Retryable: true, // a resampled answer usually parses
			Details:   map[string]any{"target": decErr.What},
			Cause:     err,
		}
	}

	return nil
}

// classifySentinelErrors handles sentinel error classification.
func classifySentinelErrors(err error) *WorkflowError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &WorkflowError{
			Type:      ErrorTypeTimeout,
			Message:   err.Error(),
			Code:      "TIMEOUT",
			Retryable: true,
			Cause:     err,
		}
	case errors.Is(err, ErrRateLimitExceeded):
		return &WorkflowError{
			Type:      ErrorTypeRateLimit,
			Message:   err.Error(),
			Code:      "RATE_LIMIT",
			Retryable: true,
			Cause:     err,
		}
	case errors.Is(err, ErrProviderUnavailable):
		return &WorkflowError{
			Type:      ErrorTypeProvider,
			Message:   err.Error(),
			Code:      "PROVIDER_UNAVAILABLE",
			Retryable: true,
			Cause:     err,
		}
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrEmptyResponse):
		return &WorkflowError{
			Type:      ErrorTypeDecode,
			Message:   err.Error(),
			Code:      "INVALID_RESPONSE",
			Retryable: true,
			Cause:     err,
		}
	case errors.Is(err, ErrMissingAPIKey):
		return &WorkflowError{
			Type:      ErrorTypeAuth,
			Message:   err.Error(),
			Code:      "MISSING_API_KEY",
			Retryable: false,
			Cause:     err,
		}
	}

	if IsTimeout(err) {
		return &WorkflowError{
			Type:      ErrorTypeTimeout,
			Message:   err.Error(),
			Code:      "TIMEOUT",
			Retryable: true,
			Cause:     err,
		}
	}

	return nil
}

// classifyStringPatternErrors handles untyped error classification.
func classifyStringPatternErrors(err error) *WorkflowError {
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "rate limit"):
		return &WorkflowError{
			Type:      ErrorTypeRateLimit,
			Message:   "Rate limit exceeded",
			Code:      "RATE_LIMIT",
			Retryable: true,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		return &WorkflowError{
			Type:      ErrorTypeTimeout,
			Message:   "Request timeout",
			Code:      "TIMEOUT",
			Retryable: true,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	case strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "authentication"):
		return &WorkflowError{
			Type:      ErrorTypeAuth,
			Message:   "Authentication failed",
			Code:      "AUTH_FAILED",
			Retryable: false,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	case strings.Contains(errMsg, "quota"):
		return &WorkflowError{
			Type:      ErrorTypeQuota,
			Message:   "Quota exceeded",
			Code:      "QUOTA_EXCEEDED",
			Retryable: false,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	case strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection"):
		return &WorkflowError{
			Type:      ErrorTypeNetwork,
			Message:   "Network error",
			Code:      "NETWORK_ERROR",
			Retryable: true,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	default:
		return &WorkflowError{
			Type:      ErrorTypeUnknown,
			Message:   "Unknown error",
			Code:      "UNKNOWN",
			Retryable: false,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	}
}

func retryableType(t ErrorType) bool {
	switch t {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider, ErrorTypeDecode:
		return true
	default:
		return false
	}
}
