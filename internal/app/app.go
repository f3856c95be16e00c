// Package app wires the configured clients into a ready round-trip pipeline.
package app

import (
	"context"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"emovox/internal/chat"
	"emovox/internal/config"
	"emovox/internal/metrics"
	"emovox/internal/present"
	"emovox/internal/proxy"
	"emovox/internal/tts"
	"emovox/internal/vox"
	"emovox/pkg/stt"
)

type App struct {
	Chat    *chat.Client
	Vox     *vox.Vox
	Metrics *metrics.Metrics

	bus *present.Bus
}

// Build creates the remote clients and the orchestrator. player may be nil,
// in which case replies are only presented.
func Build(ctx context.Context, cfg *config.Config, player vox.Player, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	httpClient, err := proxy.NewClient(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if cfg.Proxy != "" {
		logger.Debug("Using proxy", "addr", cfg.Proxy)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAI.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	api := openai.NewClient(opts...)

	chatClient := chat.NewClient(api, chat.Config{
		Model:        cfg.OpenAI.ChatModel,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
	}, logger)

	transcriber := stt.NewTranscriber(api, stt.Options{
		Model:    cfg.OpenAI.STTModel,
		Language: cfg.OpenAI.Language,
	}, logger)

	synth, err := tts.NewSynthesizer(ctx, tts.Config{
		APIKey:       cfg.Google.APIKey,
		LanguageCode: cfg.Google.LanguageCode,
		Voice:        cfg.Google.Voice,
		SampleRate:   cfg.Audio.SampleRate,
		SpeakingRate: cfg.Google.SpeakingRate,
		Pitch:        cfg.Google.Pitch,
		Endpoint:     cfg.Google.Endpoint,
		HTTPClient:   httpClient,
	}, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Chat: chatClient, Metrics: metrics.New()}

	presenters := present.Multi{present.NewLog(logger)}
	if cfg.Bus.URL != "" {
		a.bus = present.NewBus(cfg.Bus.URL, logger)
		presenters = append(presenters, a.bus)
	}

	a.Vox = vox.New(vox.Deps{
		Transcriber: transcriber,
		Completer:   chatClient,
		Synthesizer: synth,
		Player:      player,
		Presenter:   presenters,
		Metrics:     a.Metrics,
	}, logger)

	return a, nil
}

func (a *App) Close() error {
	if a.bus == nil {
		return nil
	}
	return a.bus.Close()
}
