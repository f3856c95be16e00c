package stt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"emovox/internal/apierr"
)

func newTestTranscriber(t *testing.T, handler http.HandlerFunc) *Transcriber {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	return NewTranscriber(api, Options{}, nil)
}

func TestTranscribe(t *testing.T) {
	wav := []byte("RIFF....WAVEfmt fake audio payload")

	tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not a multipart request: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("model"); got != DefaultModel {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != DefaultLanguage {
			t.Errorf("language = %q", got)
		}

		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Filename != "audio.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		body, _ := io.ReadAll(f)
		if !bytes.Equal(body, wav) {
			t.Errorf("uploaded %d bytes, want %d", len(body), len(wav))
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": " こんにちは "}`)
	})

	text, err := tr.Transcribe(context.Background(), wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "こんにちは" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeStatusError(t *testing.T) {
	tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"message": "Invalid file format.", "type": "invalid_request_error", "param": null, "code": null}}`)
	})

	_, err := tr.Transcribe(context.Background(), []byte("RIFF"))

	var re *apierr.RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *apierr.RequestError, got %v", err)
	}
	if re.Status != http.StatusBadRequest || re.Service != "stt" {
		t.Errorf("unexpected error %+v", re)
	}
}

func TestTranscribeMalformed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"not json", "application/json", `<html>oops</html>`},
		{"plain text", "text/plain", `こんにちは`},
		{"empty object", "application/json", `{}`},
		{"wrong field", "application/json", `{"transcript": "hi"}`},
		{"null text", "application/json", `{"text": null}`},
		{"array", "application/json", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				io.WriteString(w, tt.body)
			})

			text, err := tr.Transcribe(context.Background(), []byte("RIFF"))
			if !errors.Is(err, apierr.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got text=%q err=%v", text, err)
			}
		})
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": ""}`)
	})

	text, err := tr.Transcribe(context.Background(), []byte("RIFF"))
	if err != nil || text != "" {
		t.Fatalf("expected empty text without error, got %q, %v", text, err)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty audio")
	})

	if _, err := tr.Transcribe(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}
