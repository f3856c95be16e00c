package audio

import (
	"testing"

	"emovox/pkg/audioconv"
)

func TestBufferStreamerMono(t *testing.T) {
	s := &bufferStreamer{buf: audioconv.Buffer{SampleRate: 16000, Channels: 1, Samples: []float32{0.5, -0.5, 0.25}}}

	out := make([][2]float64, 2)
	n, ok := s.Stream(out)
	if n != 2 || !ok {
		t.Fatalf("n=%d ok=%v", n, ok)
	}
	if out[0] != [2]float64{0.5, 0.5} || out[1] != [2]float64{-0.5, -0.5} {
		t.Errorf("unexpected frames %v", out)
	}

	n, ok = s.Stream(out)
	if n != 1 || !ok || out[0] != [2]float64{0.25, 0.25} {
		t.Errorf("n=%d ok=%v out=%v", n, ok, out)
	}

	if n, ok = s.Stream(out); n != 0 || ok {
		t.Errorf("expected drained streamer, got n=%d ok=%v", n, ok)
	}
}

func TestBufferStreamerStereo(t *testing.T) {
	s := &bufferStreamer{buf: audioconv.Buffer{SampleRate: 16000, Channels: 2, Samples: []float32{0.1, 0.2, 0.3, 0.4}}}

	out := make([][2]float64, 4)
	n, _ := s.Stream(out)
	if n != 2 {
		t.Fatalf("expected 2 frames, got %d", n)
	}
	if out[1][0] != float64(float32(0.3)) || out[1][1] != float64(float32(0.4)) {
		t.Errorf("unexpected second frame %v", out[1])
	}
}
