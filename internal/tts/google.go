// Package tts turns reply text into PCM audio with Google Cloud Text-to-Speech.
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"emovox/internal/apierr"
	"emovox/pkg/audioconv"
)

const (
	DefaultLanguage   = "ja-JP"
	DefaultVoice      = "ja-JP-Neural2-B"
	DefaultSampleRate = 16000

	encodingLinear16 = "LINEAR16"
	apiKeyHeader     = "X-Goog-Api-Key"
)

type Config struct {
	APIKey       string
	LanguageCode string
	Voice        string
	SampleRate   int
	SpeakingRate float64
	Pitch        float64

	// Endpoint overrides the API base URL, e.g. for tests.
	Endpoint string
	// HTTPClient carries proxy and timeout settings. The API key is added on top.
	HTTPClient *http.Client
}

type Synthesizer struct {
	svc *texttospeech.Service
	cfg Config
	log *log.Logger
}

// keyTransport adds the API key to every request. The key option of the
// client library is ignored once a custom HTTP client is supplied.
type keyTransport struct {
	key  string
	base http.RoundTripper
}

func (t keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(apiKeyHeader, t.key)
	return t.base.RoundTrip(req)
}

func NewSynthesizer(ctx context.Context, cfg Config, logger *log.Logger) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tts: api key is required")
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultLanguage
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.SpeakingRate == 0 {
		cfg.SpeakingRate = 1
	}
	if logger == nil {
		logger = log.Default()
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	client := &http.Client{
		Transport: keyTransport{key: cfg.APIKey, base: rt},
		Timeout:   base.Timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: create service: %w", err)
	}

	return &Synthesizer{
		svc: svc,
		cfg: cfg,
		log: logger.With("component", "tts"),
	}, nil
}

// Synthesize requests LINEAR16 audio for text and decodes it into a mono buffer
// at the configured sample rate.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (audioconv.Buffer, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: s.cfg.LanguageCode,
			Name:         s.cfg.Voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   encodingLinear16,
			SpeakingRate:    s.cfg.SpeakingRate,
			Pitch:           s.cfg.Pitch,
			SampleRateHertz: int64(s.cfg.SampleRate),
			// Pitch 0 is a meaningful value and must not be omitted.
			ForceSendFields: []string{"Pitch"},
		},
	}

	resp, err := s.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return audioconv.Buffer{}, apierr.FromGoogle("tts", err)
	}
	if resp.AudioContent == "" {
		return audioconv.Buffer{}, apierr.Malformed("tts", "empty audioContent")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return audioconv.Buffer{}, fmt.Errorf("tts: audioContent: %w: %v", audioconv.ErrDecode, err)
	}

	buf, err := audioconv.DecodePcm16(audioconv.PCMPayload(raw), s.cfg.SampleRate, 1)
	if err != nil {
		return audioconv.Buffer{}, fmt.Errorf("tts: %w", err)
	}

	s.log.Debug("Synthesized", "chars", len(text), "duration", buf.Duration())

	return buf, nil
}
