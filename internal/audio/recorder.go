package audio

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"emovox/pkg/audioconv"
)

const frameSize = 1024

// Recorder captures the default input device through PortAudio. The captured
// clip always spans the full limit: whatever was not recorded is silence.
type Recorder struct {
	sampleRate int

	mu      sync.Mutex
	stream  *portaudio.Stream
	samples []float32
	want    int
	stop    chan struct{}
	done    chan error
}

func NewRecorder(sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = audioconv.DefaultSampleRate
	}
	return &Recorder{sampleRate: sampleRate}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

func (r *Recorder) Begin(limit time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return errors.New("recorder: session already open")
	}

	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(
		1, // in
		0, // no out
		float64(r.sampleRate),
		len(buf),
		buf,
	)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}

	r.stream = stream
	r.want = int(float64(r.sampleRate) * limit.Seconds())
	r.samples = make([]float32, 0, r.want)
	r.stop = make(chan struct{})
	r.done = make(chan error, 1)

	go r.capture(buf, r.stop, r.done)

	return nil
}

func (r *Recorder) capture(buf []float32, stop <-chan struct{}, done chan<- error) {
	for {
		select {
		case <-stop:
			done <- nil
			return
		default:
		}

		if err := r.stream.Read(); err != nil {
			done <- err
			return
		}

		r.mu.Lock()
		room := r.want - len(r.samples)
		if room > len(buf) {
			room = len(buf)
		}
		r.samples = append(r.samples, buf[:room]...)
		full := len(r.samples) >= r.want
		r.mu.Unlock()

		if full {
			done <- nil
			return
		}
	}
}

// finish stops the capture goroutine and releases the stream.
func (r *Recorder) finish() ([]float32, error) {
	r.mu.Lock()
	stream, stop, done := r.stream, r.stop, r.done
	r.mu.Unlock()

	if stream == nil {
		return nil, errors.New("recorder: no open session")
	}

	close(stop)
	err := <-done

	stream.Stop()
	stream.Close()

	r.mu.Lock()
	samples := r.samples
	r.stream, r.samples = nil, nil
	r.mu.Unlock()

	return samples, err
}

func (r *Recorder) End() (audioconv.Buffer, error) {
	samples, err := r.finish()
	if err != nil {
		return audioconv.Buffer{}, err
	}

	return audioconv.Buffer{
		SampleRate: r.sampleRate,
		Channels:   1,
		Samples:    padSilence(samples, r.want),
	}, nil
}

func (r *Recorder) Discard() error {
	_, err := r.finish()
	return err
}

func padSilence(samples []float32, n int) []float32 {
	if len(samples) >= n {
		return samples
	}
	return append(samples, make([]float32, n-len(samples))...)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
