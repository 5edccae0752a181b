package musicapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"music-player-go/circuitbreaker"
)

// ErrCircuitOpen is returned without contacting the server while the breaker is open.
var ErrCircuitOpen = circuitbreaker.ErrCircuitOpen

// ErrLoginRequired means the server redirected an authenticated endpoint to its login page.
var ErrLoginRequired = errors.New("login required")

// APIError is a non-2xx answer from the music server.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsServerFailure decides which errors trip the circuit breaker:
// transport failures and 5xx do, client errors and cancellations do not.
func IsServerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// StatusCode extracts the HTTP status of an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
