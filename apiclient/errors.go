package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// APIError is a non-2xx response. Client errors (4xx) are never retried.
type APIError struct {
	Status    int
	Reason    string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("Server Error: %d %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("API Error: %d %s", e.Status, e.Reason)
}

func newAPIError(resp *http.Response) *APIError {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Status:    resp.StatusCode,
		Reason:    reason,
		Retryable: resp.StatusCode < 400 || resp.StatusCode >= 500,
	}
}

// IsRetryable reports whether err should trigger another attempt. Anything
// that is not an APIError (transport failures, timeouts) is retryable unless
// the caller's context ended.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var buildErr *buildError
	if errors.As(err, &buildErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return true
}

// buildError means the request could not even be constructed.
type buildError struct {
	err error
}

func (e *buildError) Error() string { return "build request: " + e.err.Error() }

func (e *buildError) Unwrap() error { return e.err }
