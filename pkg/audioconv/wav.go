package audioconv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const wavHeaderSize = 44

// ErrDecode marks audio payloads that violate a byte-length or encoding invariant.
var ErrDecode = errors.New("audioconv: decode error")

// Buffer is interleaved float PCM in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames (samples per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// EncodeWav wraps the buffer into a canonical 44-byte RIFF/WAVE container with
// 16-bit little-endian samples.
//
// Samples are scaled by 32767 and rounded. Values outside [-1, 1] are not clamped:
// they wrap around like any int16 overflow.
func EncodeWav(b Buffer) []byte {
	out := make([]byte, wavHeaderSize, wavHeaderSize+len(b.Samples)*2)

	le := binary.LittleEndian
	copy(out[0:4], "RIFF")
	// out[4:8] ChunkSize, backfilled below
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1)
	le.PutUint16(out[22:24], uint16(b.Channels))
	le.PutUint32(out[24:28], uint32(b.SampleRate))
	le.PutUint32(out[28:32], uint32(b.SampleRate*b.Channels*2))
	le.PutUint16(out[32:34], uint16(b.Channels*2))
	le.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	// out[40:44] Subchunk2Size, backfilled below

	var s [2]byte
	for _, v := range b.Samples {
		le.PutUint16(s[:], uint16(quantize(v)))
		out = append(out, s[0], s[1])
	}

	le.PutUint32(out[4:8], uint32(len(out)-8))
	le.PutUint32(out[40:44], uint32(len(out)-wavHeaderSize))

	return out
}

func quantize(v float32) int16 {
	return int16(int64(math.Round(float64(v) * 32767)))
}

// DecodePcm16 reads raw little-endian signed 16-bit samples. The divisor is 32768,
// not the 32767 used by EncodeWav.
func DecodePcm16(data []byte, sampleRate, channels int) (Buffer, error) {
	if len(data)%2 != 0 {
		return Buffer{}, fmt.Errorf("%w: odd pcm16 payload length %d", ErrDecode, len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(float64(v) / 32768.0)
	}

	return Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}

// PCMPayload strips a canonical WAV header when present and returns the raw
// sample bytes. Anything else is returned unchanged.
func PCMPayload(data []byte) []byte {
	if len(data) < wavHeaderSize {
		return data
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		return data
	}
	return data[wavHeaderSize:]
}
