// Package apierr holds the error kinds shared by the remote API clients.
package apierr

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response does not have the expected
// shape, including reply text that breaks the emotion protocol.
var ErrMalformedResponse = errors.New("malformed response")

// RequestError is a transport failure or a non-success status from a remote API.
// Status is 0 when no HTTP response was received.
type RequestError struct {
	Service string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: request failed: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Service, e.Status, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports an HTTP 429.
func (e *RequestError) IsRateLimited() bool {
	return e.Status == 429
}

// IsUnauthorized reports an HTTP 401 or 403, usually a bad API key.
func (e *RequestError) IsUnauthorized() bool {
	return e.Status == 401 || e.Status == 403
}

// Transport wraps an error that happened before any response arrived.
func Transport(service string, err error) error {
	return &RequestError{Service: service, Message: err.Error(), Err: err}
}

// Malformed wraps ErrMalformedResponse with service context.
func Malformed(service, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", service, ErrMalformedResponse, fmt.Sprintf(format, args...))
}
