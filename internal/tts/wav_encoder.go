package tts

import (
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVEncoder buffers every pushed sample and writes one WAV container on
// Flush, via github.com/go-audio/wav the same library
// internal/audio/container.go uses for WAV decode.
type WAVEncoder struct {
	sampleRate int
	samples    []float64
	closed     bool
}

// NewWAVEncoder creates a WAVEncoder targeting sampleRate: WAV output
// inherits the session's requested sample rate.
func NewWAVEncoder(sampleRate int) *WAVEncoder {
	return &WAVEncoder{sampleRate: sampleRate}
}

// Push accumulates samples; WAV is buffered, so nothing is emitted yet.
func (e *WAVEncoder) Push(samples []float64) ([]byte, error) {
	e.samples = append(e.samples, samples...)
	return nil, nil
}

// Flush writes the full WAV container and closes the encoder. A second
// call is a no-op.
func (e *WAVEncoder) Flush() ([]byte, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true

	ints := make([]int, len(e.samples))
	for i, s := range e.samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		ints[i] = int(s * 32767)
	}

	w := &memWriteSeeker{}
	enc := wav.NewEncoder(w, e.sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: e.sampleRate, NumChannels: 1},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// Close is idempotent and does not discard unflushed audio if Flush was
// never called; callers are expected to Flush before closing.
func (e *WAVEncoder) Close() error {
	e.closed = true
	return nil
}
