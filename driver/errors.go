package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Notes API and token endpoint error types
var (
	ErrUnauthorized          = errors.New("notes API rejected the bearer credential")
	ErrNotFound              = errors.New("note not found on server")
	ErrBadRequest            = errors.New("notes API rejected the request")
	ErrRateLimited           = errors.New("rate limit exceeded")
	ErrTemporaryFailure      = errors.New("temporary server failure")
	ErrCredentialUnavailable = errors.New("no credential available after refresh")

	ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired")
	ErrTokenRevoked        = errors.New("refresh token has been revoked")
)

// APIError is a non-2xx response of the notes API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	TraceID    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("notes API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notes API error %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorEnvelope is the server's {"error":{...}} body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		TraceID string `json:"traceId"`
	} `json:"error"`
}

// newAPIError decodes body when it is an error envelope and picks the sentinel for status.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Err: sentinelForStatus(status)}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.TraceID = envelope.Error.TraceID
	}
	return apiErr
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= http.StatusInternalServerError:
		return ErrTemporaryFailure
	default:
		return nil
	}
}

// IsAuthError reports whether err means the caller must sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrCredentialUnavailable) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrTokenRevoked)
}
