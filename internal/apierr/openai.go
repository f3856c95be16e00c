package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	openai "github.com/openai/openai-go/v3"
)

// FromOpenAI maps an openai-go error onto the shared error kinds: API status
// errors and transport failures become *RequestError, anything else (the SDK
// failing to decode a response) becomes ErrMalformedResponse.
func FromOpenAI(service string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &RequestError{Service: service, Status: apiErr.StatusCode, Message: msg, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transport(service, err)
	}

	return fmt.Errorf("%s: %w: %w", service, ErrMalformedResponse, err)
}
