package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"google.golang.org/api/googleapi"
)

// FromGoogle is the googleapi counterpart of FromOpenAI.
func FromGoogle(service string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" {
			msg = http.StatusText(gErr.Code)
		}
		return &RequestError{Service: service, Status: gErr.Code, Message: msg, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transport(service, err)
	}

	return fmt.Errorf("%s: %w: %w", service, ErrMalformedResponse, err)
}
