// Package provider holds error types shared by the capability provider
// packages (stt, llm, tts). Each provider wraps its failures here so the
// fallback manager can treat timeouts and API rejections uniformly.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when a required API key is missing.
	ErrNoAPIKey = errors.New("provider: API key required")

	// ErrUnavailable is returned when a provider cannot be reached.
	ErrUnavailable = errors.New("provider: unavailable")

	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("provider: call timed out")

	// ErrMalformedResponse is returned when a provider replies with a
	// body the client cannot interpret.
	ErrMalformedResponse = errors.New("provider: malformed response")
)

// APIError represents an error response from a provider API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code from the API (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Error wraps an error with provider context.
type Error struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with provider context.
// Deadline errors are normalized to ErrTimeout so callers can match them.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &Error{Provider: provider, Err: err}
}

// ParseHTTPError reads a failed HTTP response body and builds an APIError.
// It understands the common {"error": {"message", "code"}} envelope and
// falls back to the raw body text.
func ParseHTTPError(name string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		code = envelope.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   name,
	}
}
