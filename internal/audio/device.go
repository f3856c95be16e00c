// Package audio captures microphone input and plays synthesized replies.
package audio

import (
	"fmt"
	"time"

	"emovox/pkg/audioconv"
)

// Device is a capture device that records one bounded session at a time.
type Device interface {
	// Begin opens a capture session that records at most limit of audio.
	Begin(limit time.Duration) error
	// End closes the session and returns what was captured.
	End() (audioconv.Buffer, error)
	// Discard closes the session and drops the captured audio.
	Discard() error
}

// DeviceError reports a capture device failure.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
