package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTestWav(t *testing.T, name string, b Buffer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, EncodeWav(b), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestLoadFileWav(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.25
	}
	path := writeTestWav(t, "in.wav", Buffer{SampleRate: 16000, Channels: 1, Samples: samples})

	buf, err := LoadFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if buf.SampleRate != DefaultSampleRate || buf.Channels != 1 {
		t.Errorf("unexpected format %d Hz x%d", buf.SampleRate, buf.Channels)
	}
	if len(buf.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Samples))
	}
	if d := buf.Samples[100] - 0.25; d > 0.001 || d < -0.001 {
		t.Errorf("sample drifted: %v", buf.Samples[100])
	}
}

func TestLoadFileDownmixAndResample(t *testing.T) {
	// 0.1s of stereo at 16 kHz, left and right cancel out
	samples := make([]float32, 3200)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 0.5
		} else {
			samples[i] = -0.5
		}
	}
	path := writeTestWav(t, "stereo.wav", Buffer{SampleRate: 16000, Channels: 2, Samples: samples})

	buf, err := LoadFile(context.Background(), path, Options{SampleRate: 8000})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if buf.SampleRate != 8000 {
		t.Errorf("expected 8000 Hz, got %d", buf.SampleRate)
	}
	if len(buf.Samples) != 800 {
		t.Errorf("expected 800 samples, got %d", len(buf.Samples))
	}
	for i, s := range buf.Samples {
		if s > 0.001 || s < -0.001 {
			t.Fatalf("sample %d not silent after downmix: %v", i, s)
		}
	}
}

func TestLoadFileMaxSamples(t *testing.T) {
	path := writeTestWav(t, "long.wav", Buffer{SampleRate: 16000, Channels: 1, Samples: make([]float32, 16000)})

	buf, err := LoadFile(context.Background(), path, Options{MaxSamples: 100})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(buf.Samples) != 100 {
		t.Errorf("expected 100 samples, got %d", len(buf.Samples))
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(context.Background(), path, Options{}); err == nil {
		t.Fatal("expected error for unsupported file")
	}
}
