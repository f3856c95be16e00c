package apierr

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestRequestError(t *testing.T) {
	var err error = &RequestError{Service: "chat", Status: 429, Message: "slow down"}

	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if !re.IsRateLimited() || re.IsUnauthorized() {
		t.Errorf("unexpected classification for %d", re.Status)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("status missing from %q", err.Error())
	}
}

func TestTransportUnwraps(t *testing.T) {
	err := Transport("stt", context.DeadlineExceeded)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected transport error to unwrap to the cause")
	}
	var re *RequestError
	if !errors.As(err, &re) || re.Status != 0 {
		t.Errorf("expected status 0, got %+v", re)
	}
}

func TestMalformed(t *testing.T) {
	err := Malformed("tts", "missing %s", "audioContent")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatal("expected ErrMalformedResponse")
	}
	if !strings.Contains(err.Error(), "missing audioContent") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFromGoogle(t *testing.T) {
	err := FromGoogle("tts", &googleapi.Error{Code: 403, Message: "API key not valid"})

	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if re.Status != 403 || !re.IsUnauthorized() || re.Message != "API key not valid" {
		t.Errorf("unexpected error %+v", re)
	}

	err = FromGoogle("tts", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("refused")})
	if !errors.As(err, &re) || re.Status != 0 {
		t.Errorf("expected transport error, got %v", err)
	}

	err = FromGoogle("tts", errors.New("invalid character"))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}
