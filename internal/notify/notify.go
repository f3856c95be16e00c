// Package notify tells the user what the assistant is doing: an audible cue
// when recording starts and desktop notifications through notify-send.
package notify

import (
	"context"
	"errors"
	log "log/slog"
	"os/exec"

	"emovox/internal/apierr"
)

const appName = "emovox"

type FilePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

type Notifier struct {
	player  FilePlayer
	cuePath string
	desktop bool
	log     *log.Logger

	// send delivers a desktop notification.
	send func(ctx context.Context, summary, body string) error
}

// New returns a Notifier. An empty cuePath or nil player disables the cue.
func New(player FilePlayer, cuePath string, desktop bool, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{
		player:  player,
		cuePath: cuePath,
		desktop: desktop,
		log:     logger.With("component", "notify"),
		send:    notifySend,
	}
}

// RecordingStarted plays the cue and blocks until it has finished, so the cue
// does not end up in the recording.
func (n *Notifier) RecordingStarted(ctx context.Context) {
	if n.player != nil && n.cuePath != "" {
		if err := n.player.PlayFile(ctx, n.cuePath); err != nil {
			n.log.Warn("Cue failed", "path", n.cuePath, "err", err)
		}
	}
	n.notify(ctx, "Listening", "Recording started")
}

// Failed reports a round-trip error. Rejected keys and rate limits get their
// own summary.
func (n *Notifier) Failed(ctx context.Context, err error) {
	summary := "Round trip failed"
	var re *apierr.RequestError
	if errors.As(err, &re) {
		switch {
		case re.IsUnauthorized():
			summary = "API key rejected by " + re.Service
		case re.IsRateLimited():
			summary = "Rate limited by " + re.Service
		}
	}
	n.notify(ctx, summary, err.Error())
}

func (n *Notifier) notify(ctx context.Context, summary, body string) {
	if !n.desktop {
		return
	}
	if err := n.send(ctx, summary, body); err != nil {
		n.log.Debug("Desktop notification failed", "err", err)
	}
}

func notifySend(ctx context.Context, summary, body string) error {
	return exec.CommandContext(ctx, "notify-send", "--app-name", appName, summary, body).Run()
}
