// Package vox runs the voice round trip: transcribe the user, ask the chat
// model, parse the emotion-tagged reply, synthesize it and hand the results to
// the presentation layer and the speaker.
package vox

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"emovox/internal/chat"
	"emovox/internal/emotion"
	"emovox/internal/metrics"
	"emovox/internal/present"
	"emovox/pkg/audioconv"
)

var (
	// ErrBusy is returned when a round trip is started while another is running.
	ErrBusy = errors.New("round trip already in progress")
	// ErrEmptyTranscript is returned when there is no user text to send.
	ErrEmptyTranscript = errors.New("empty transcript")
)

type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

type Completer interface {
	RequestCompletion(ctx context.Context, userText string) (chat.Turn, error)
	History() *chat.History
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audioconv.Buffer, error)
}

type Player interface {
	Play(ctx context.Context, buf audioconv.Buffer) error
}

// Deps are the collaborators of a Vox. Player, Presenter and Metrics may be nil.
type Deps struct {
	Transcriber Transcriber
	Completer   Completer
	Synthesizer Synthesizer
	Player      Player
	Presenter   present.Presenter
	Metrics     *metrics.Metrics
}

// Result describes a completed round trip.
type Result struct {
	ID       string
	UserText string
	Reply    emotion.Reply
	Dominant emotion.Dominant
	Audio    audioconv.Buffer
}

type Vox struct {
	deps Deps
	busy atomic.Bool
	log  *log.Logger
}

func New(deps Deps, logger *log.Logger) *Vox {
	if logger == nil {
		logger = log.Default()
	}
	return &Vox{deps: deps, log: logger.With("component", "vox")}
}

// Busy reports whether a round trip is running.
func (v *Vox) Busy() bool {
	return v.busy.Load()
}

// HandleRecording runs a full round trip for captured audio.
func (v *Vox) HandleRecording(ctx context.Context, buf audioconv.Buffer) (*Result, error) {
	return v.run(ctx, func(ctx context.Context, id string) (string, error) {
		wav := audioconv.EncodeWav(buf)

		start := time.Now()
		text, err := v.deps.Transcriber.Transcribe(ctx, wav)
		v.deps.Metrics.ObserveStage(metrics.StageTranscribe, start, err)
		if err != nil {
			return "", fmt.Errorf("transcribe: %w", err)
		}

		v.log.Info("Transcribed", "id", id, "audio", buf.Duration(), "text", text)
		return text, nil
	})
}

// HandleText runs a round trip for typed input, skipping transcription.
func (v *Vox) HandleText(ctx context.Context, text string) (*Result, error) {
	return v.run(ctx, func(context.Context, string) (string, error) {
		return text, nil
	})
}

func (v *Vox) run(ctx context.Context, input func(ctx context.Context, id string) (string, error)) (*Result, error) {
	if !v.busy.CompareAndSwap(false, true) {
		v.deps.Metrics.RoundTrip(metrics.OutcomeBusy)
		return nil, ErrBusy
	}
	defer v.busy.Store(false)

	v.deps.Metrics.SetInFlight(true)
	defer v.deps.Metrics.SetInFlight(false)

	id := uuid.NewString()
	started := time.Now()

	text, err := input(ctx, id)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyTranscript
	}
	var res *Result
	if err == nil {
		res, err = v.respond(ctx, id, text)
	}

	switch {
	case errors.Is(err, ErrEmptyTranscript):
		v.deps.Metrics.RoundTrip(metrics.OutcomeEmpty)
		v.log.Warn("Nothing to send", "id", id)
	case err != nil:
		v.deps.Metrics.RoundTrip(metrics.OutcomeFailed)
		v.log.Error("Round trip failed", "id", id, "err", err)
	default:
		v.deps.Metrics.RoundTrip(metrics.OutcomeOK)
		v.log.Info("Round trip done", "id", id, "took", time.Since(started))
	}

	return res, err
}

func (v *Vox) respond(ctx context.Context, id, text string) (*Result, error) {
	v.present(ctx, present.UserEvent(id, text))

	start := time.Now()
	turn, err := v.deps.Completer.RequestCompletion(ctx, text)
	v.deps.Metrics.ObserveStage(metrics.StageComplete, start, err)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	start = time.Now()
	reply, err := emotion.Parse(turn.Content)
	v.deps.Metrics.ObserveStage(metrics.StageParse, start, err)
	if err != nil {
		v.log.Debug("Unparseable reply", "id", id, "content", turn.Content)
		return nil, fmt.Errorf("parse: %w", err)
	}

	dominant := reply.Dominant()
	v.deps.Metrics.Reply(dominant.String(), v.deps.Completer.History().Len())

	start = time.Now()
	audio, err := v.deps.Synthesizer.Synthesize(ctx, reply.Text)
	v.deps.Metrics.ObserveStage(metrics.StageSynthesize, start, err)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	res := &Result{
		ID:       id,
		UserText: text,
		Reply:    reply,
		Dominant: dominant,
		Audio:    audio,
	}

	v.present(ctx, present.ReplyEvent(id, reply))

	if v.deps.Player != nil {
		start = time.Now()
		err = v.deps.Player.Play(ctx, audio)
		v.deps.Metrics.ObserveStage(metrics.StagePlay, start, err)
		if err != nil {
			return nil, fmt.Errorf("play: %w", err)
		}
	}

	return res, nil
}

// present failures are logged only: the round trip itself succeeded.
func (v *Vox) present(ctx context.Context, ev present.Event) {
	if v.deps.Presenter == nil {
		return
	}
	if err := v.deps.Presenter.Present(ctx, ev); err != nil {
		v.log.Warn("Presentation failed", "id", ev.ID, "kind", ev.Kind, "err", err)
	}
}
