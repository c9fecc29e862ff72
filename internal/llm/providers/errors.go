package providers

import (
	"net/http"
	"strconv"
	"strings"

	llmerrors "github.com/ahrav/go-coach/internal/llm/errors"
)

// classifyErrorType determines the ErrorType from the HTTP status and the
// provider's status code string. The provider code wins when it is specific.
func classifyErrorType(statusCode int, errorCode string) llmerrors.ErrorType {
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "exhausted"),
		strings.Contains(lowerCode, "rate"),
		strings.Contains(lowerCode, "limit"):
		return llmerrors.ErrorTypeRateLimit
	case strings.Contains(lowerCode, "deadline"), strings.Contains(lowerCode, "timeout"):
		return llmerrors.ErrorTypeTimeout
	case strings.Contains(lowerCode, "unauthenticated"), strings.Contains(lowerCode, "auth"):
		return llmerrors.ErrorTypeAuth
	case strings.Contains(lowerCode, "permission"), strings.Contains(lowerCode, "quota"):
		return llmerrors.ErrorTypeQuota
	case strings.Contains(lowerCode, "unavailable"):
		return llmerrors.ErrorTypeProvider
	case strings.Contains(lowerCode, "invalid_argument"):
		return llmerrors.ErrorTypeValidation
	}

	if statusCode == http.StatusOK {
		return llmerrors.ErrorTypeUnknown
	}
	return llmerrors.ClassifyStatus(statusCode)
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
