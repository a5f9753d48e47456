package omnisearch

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError.Is. Use errors.Is() to check.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("service unavailable")
	ErrProviderError    = errors.New("embedding provider error")
	ErrTimeout          = errors.New("timeout")
	ErrInternal         = errors.New("internal server error")
	errUnexpectedStatus = errors.New("unexpected status")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("omnisearch: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("omnisearch: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is maps error codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	return errorForCode(e.Code, e.StatusCode) == target
}

func errorForCode(code string, status int) error {
	switch code {
	case "bad_request", "validation_failed", "unknown_action":
		return ErrInvalidRequest
	case "unauthorized":
		return ErrUnauthorized
	case "document_not_found", "source_missing":
		return ErrNotFound
	case "provider_unavailable", "search_unavailable", "store_unavailable":
		return ErrUnavailable
	case "embedding_provider_error":
		return ErrProviderError
	case "timeout":
		return ErrTimeout
	case "internal_error":
		return ErrInternal
	}
	if status >= 500 {
		return ErrInternal
	}
	return errUnexpectedStatus
}
