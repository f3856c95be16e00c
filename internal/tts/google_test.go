package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"emovox/internal/apierr"
	"emovox/pkg/audioconv"
)

type synthRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig map[string]any `json:"audioConfig"`
}

func newTestSynthesizer(t *testing.T, handler http.HandlerFunc) *Synthesizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSynthesizer(context.Background(), Config{
		APIKey:     "test-key",
		Endpoint:   srv.URL + "/",
		HTTPClient: srv.Client(),
	}, nil)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	return s
}

func audioResponse(w http.ResponseWriter, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"audioContent": %q}`, base64.StdEncoding.EncodeToString(raw))
}

func TestSynthesize(t *testing.T) {
	wav := audioconv.EncodeWav(audioconv.Buffer{
		SampleRate: 16000,
		Channels:   1,
		Samples:    []float32{0, 0.5, -1},
	})

	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(apiKeyHeader); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req synthRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Input.Text != "にゃー" {
			t.Errorf("text = %q", req.Input.Text)
		}
		if req.Voice.LanguageCode != DefaultLanguage || req.Voice.Name != DefaultVoice {
			t.Errorf("voice = %+v", req.Voice)
		}
		ac := req.AudioConfig
		if ac["audioEncoding"] != "LINEAR16" {
			t.Errorf("audioEncoding = %v", ac["audioEncoding"])
		}
		if pitch, ok := ac["pitch"]; !ok || pitch != float64(0) {
			t.Errorf("pitch must be sent as 0, got %v (present=%v)", pitch, ok)
		}
		if ac["speakingRate"] != float64(1) {
			t.Errorf("speakingRate = %v", ac["speakingRate"])
		}
		if ac["sampleRateHertz"] != float64(16000) {
			t.Errorf("sampleRateHertz = %v", ac["sampleRateHertz"])
		}

		audioResponse(w, wav)
	})

	buf, err := s.Synthesize(context.Background(), "にゃー")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.SampleRate != 16000 || buf.Channels != 1 {
		t.Errorf("format = %d Hz x %d", buf.SampleRate, buf.Channels)
	}

	want := []float32{0, 16384.0 / 32768.0, -32767.0 / 32768.0}
	if len(buf.Samples) != len(want) {
		t.Fatalf("expected %d samples (header stripped), got %d", len(want), len(buf.Samples))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, buf.Samples[i], want[i])
		}
	}
}

func TestSynthesizeRawPCM(t *testing.T) {
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		audioResponse(w, []byte{0x00, 0x40, 0x00, 0xc0})
	})

	buf, err := s.Synthesize(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf.Samples) != 2 || buf.Samples[0] != 0.5 || buf.Samples[1] != -0.5 {
		t.Errorf("unexpected samples %v", buf.Samples)
	}
}

func TestSynthesizeStatusError(t *testing.T) {
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error": {"code": 403, "message": "API key not valid.", "status": "PERMISSION_DENIED"}}`)
	})

	_, err := s.Synthesize(context.Background(), "x")

	var re *apierr.RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *apierr.RequestError, got %v", err)
	}
	if re.Service != "tts" || re.Status != http.StatusForbidden || !re.IsUnauthorized() {
		t.Errorf("unexpected error %+v", re)
	}
}

func TestSynthesizeDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad base64", `{"audioContent": "***not base64***"}`},
		{"odd length", fmt.Sprintf(`{"audioContent": %q}`, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			})

			_, err := s.Synthesize(context.Background(), "x")
			if !errors.Is(err, audioconv.ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	s := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	})

	_, err := s.Synthesize(context.Background(), "x")
	if !errors.Is(err, apierr.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestNewSynthesizerRequiresKey(t *testing.T) {
	if _, err := NewSynthesizer(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}
