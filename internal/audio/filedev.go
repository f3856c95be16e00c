package audio

import (
	"context"
	"errors"
	"time"

	"emovox/pkg/audioconv"
)

// FileDevice plays the part of a microphone by serving a pre-recorded file.
// The file is decoded on Begin so that a missing or broken file surfaces as a
// device failure, the same way an unavailable microphone would.
type FileDevice struct {
	Path       string
	SampleRate int

	buf  audioconv.Buffer
	want int
	open bool
}

func NewFileDevice(path string, sampleRate int) *FileDevice {
	if sampleRate <= 0 {
		sampleRate = audioconv.DefaultSampleRate
	}
	return &FileDevice{Path: path, SampleRate: sampleRate}
}

func (d *FileDevice) Begin(limit time.Duration) error {
	if d.open {
		return errors.New("file device: session already open")
	}

	d.want = int(float64(d.SampleRate) * limit.Seconds())
	buf, err := audioconv.LoadFile(context.Background(), d.Path, audioconv.Options{
		SampleRate: d.SampleRate,
		MaxSamples: d.want,
	})
	if err != nil {
		return err
	}

	d.buf = buf
	d.open = true
	return nil
}

func (d *FileDevice) End() (audioconv.Buffer, error) {
	if !d.open {
		return audioconv.Buffer{}, errors.New("file device: no open session")
	}
	d.open = false

	buf := d.buf
	buf.Samples = padSilence(buf.Samples, d.want)
	d.buf = audioconv.Buffer{}
	return buf, nil
}

func (d *FileDevice) Discard() error {
	d.open = false
	d.buf = audioconv.Buffer{}
	return nil
}
