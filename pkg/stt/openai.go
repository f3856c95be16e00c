package stt

import (
	"bytes"
	"context"
	"errors"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"emovox/internal/apierr"
)

const (
	DefaultModel    = "whisper-1"
	DefaultLanguage = "ja"

	uploadName = "audio.wav"
)

type Options struct {
	Model    string // e.g. "whisper-1"
	Language string // ISO-639-1 hint, e.g. "ja", "en"
}

// Transcriber uploads WAV audio to the OpenAI transcription endpoint.
type Transcriber struct {
	api  openai.Client
	opts Options
	log  *log.Logger
}

func NewTranscriber(api openai.Client, opts Options, logger *log.Logger) *Transcriber {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Transcriber{
		api:  api,
		opts: opts,
		log:  logger.With("component", "stt"),
	}
}

// Transcribe sends a WAV file as multipart form data and returns the text.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", errors.New("stt: no audio provided")
	}

	res, err := t.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(wav), uploadName, "audio/wav"),
		Model:    openai.AudioModel(t.opts.Model),
		Language: openai.String(t.opts.Language),
	})
	if err != nil {
		return "", apierr.FromOpenAI("stt", err)
	}
	if !res.JSON.Text.Valid() {
		return "", apierr.Malformed("stt", "missing text field")
	}

	text := strings.TrimSpace(res.Text)
	t.log.Debug("Transcribed", "bytes", len(wav), "chars", len(text))

	return text, nil
}
