package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"emovox/pkg/audioconv"
)

const (
	speakerRate     = beep.SampleRate(44100)
	resampleQuality = 4
	duckFactor      = 0.3
	duckFade        = 300 * time.Millisecond
)

// Player plays buffers through the default output with faiface/beep. Other
// streams are ducked while a reply is playing when a Ducker is set.
type Player struct {
	ducker *Ducker
	log    *log.Logger

	initOnce sync.Once
	initErr  error
	mu       sync.Mutex
}

func NewPlayer(ducker *Ducker, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{ducker: ducker, log: logger.With("component", "player")}
}

func (p *Player) init() error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return p.initErr
}

// Play blocks until the buffer has been played or ctx is done.
func (p *Player) Play(ctx context.Context, buf audioconv.Buffer) error {
	if len(buf.Samples) == 0 {
		return nil
	}

	if p.ducker != nil {
		if err := p.ducker.DuckOthers(ctx, duckFactor, duckFade); err != nil {
			p.log.Warn("Ducking failed", "err", err)
		}
		defer func() {
			if err := p.ducker.UnduckOthers(context.Background(), duckFade); err != nil {
				p.log.Warn("Unducking failed", "err", err)
			}
		}()
	}

	return p.play(ctx, &bufferStreamer{buf: buf}, beep.SampleRate(buf.SampleRate))
}

// PlayFile plays an mp3 file, used for the recording cue.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	return p.play(ctx, streamer, format.SampleRate)
}

func (p *Player) play(ctx context.Context, s beep.Streamer, rate beep.SampleRate) error {
	if err := p.init(); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	// One sound at a time.
	p.mu.Lock()
	defer p.mu.Unlock()

	if rate != speakerRate {
		s = beep.Resample(resampleQuality, rate, speakerRate, s)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// bufferStreamer feeds interleaved samples to both speaker channels.
type bufferStreamer struct {
	buf audioconv.Buffer
	pos int // frame index
}

func (s *bufferStreamer) Stream(out [][2]float64) (int, bool) {
	ch := s.buf.Channels
	if ch <= 0 {
		ch = 1
	}
	frames := len(s.buf.Samples) / ch

	n := 0
	for n < len(out) && s.pos < frames {
		i := s.pos * ch
		left := float64(s.buf.Samples[i])
		right := left
		if ch > 1 {
			right = float64(s.buf.Samples[i+1])
		}
		out[n][0], out[n][1] = left, right
		n++
		s.pos++
	}

	return n, n > 0
}

func (s *bufferStreamer) Err() error {
	return nil
}
