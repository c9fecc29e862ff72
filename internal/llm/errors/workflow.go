package errors

import (
	"fmt"
	"strings"
)

// WorkflowError is a collaborator failure translated for the evaluation
// workflow: what kind of failure it was, who raised it, and whether a retry
// could help.
type WorkflowError struct {
	Type         ErrorType      `json:"type"`
	Collaborator Collaborator   `json:"collaborator,omitempty"`
	Message      string         `json:"message"`
	Code         string         `json:"code"` // provider error code, if any
	Retryable    bool           `json:"retryable"`
	Details      map[string]any `json:"details"`
	Cause        error          `json:"-"`
}

func (e *WorkflowError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	if e.Collaborator != "" {
		b.WriteString(string(e.Collaborator))
		b.WriteByte('/')
	}
	b.WriteString(string(e.Type))
	if e.Code != "" {
		b.WriteByte(':')
		b.WriteString(e.Code)
	}
	b.WriteString("] ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *WorkflowError) Unwrap() error { return e.Cause }

// Tag names the failure for Temporal application errors, e.g.
// "extractor.timeout". Without a collaborator it is just the type.
func (e *WorkflowError) Tag() string {
	if e.Collaborator == "" {
		return string(e.Type)
	}
	return fmt.Sprintf("%s.%s", e.Collaborator, e.Type)
}

// ShouldRetry returns the recommendation recorded at classification time,
// which may differ from the type default (a provider can mark a 5xx final).
func (e *WorkflowError) ShouldRetry() bool { return e.Retryable }

// IsRetryable is the type default: timeouts, pacing, network and
// unparseable answers retry; auth and quota failures do not.
func (e *WorkflowError) IsRetryable() bool { return retryableType(e.Type) }
