// Package present forwards round-trip results to whatever shows them: the log
// and an avatar renderer listening on a websocket bus.
package present

import (
	"context"
	"errors"
	log "log/slog"

	"emovox/internal/emotion"
)

type Kind string

const (
	KindUser  Kind = "user"
	KindReply Kind = "reply"
)

// Event is one thing to show. Vector is only set for replies.
type Event struct {
	Kind    Kind
	ID      string
	Text    string
	Vector  *emotion.Vector
	Emotion emotion.Dominant
}

// UserEvent carries the transcribed or typed user text.
func UserEvent(id, text string) Event {
	return Event{Kind: KindUser, ID: id, Text: text}
}

// ReplyEvent carries the dialogue text and the dominant emotion of a reply.
func ReplyEvent(id string, r emotion.Reply) Event {
	v := r.Vector
	return Event{Kind: KindReply, ID: id, Text: r.Text, Vector: &v, Emotion: r.Dominant()}
}

type Presenter interface {
	Present(ctx context.Context, ev Event) error
}

// Log writes events to a slog logger.
type Log struct {
	log *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{log: logger.With("component", "present")}
}

func (l *Log) Present(ctx context.Context, ev Event) error {
	switch {
	case ev.Kind == KindReply && ev.Vector != nil:
		l.log.InfoContext(ctx, "Reply", "id", ev.ID, "emotion", ev.Emotion.String(), "vector", *ev.Vector, "text", ev.Text)
	case ev.Kind == KindReply:
		l.log.InfoContext(ctx, "Reply", "id", ev.ID, "emotion", ev.Emotion.String(), "text", ev.Text)
	default:
		l.log.InfoContext(ctx, "User", "id", ev.ID, "text", ev.Text)
	}
	return nil
}

// Multi hands every event to all presenters, even after one fails.
type Multi []Presenter

func (m Multi) Present(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
