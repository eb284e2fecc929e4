package tts

import (
	"context"
	"fmt"

	"github.com/eleven-am/voice-backend/internal/audio"
	"github.com/eleven-am/voice-backend/internal/errs"
)

// NativeSampleRate is the TTS engine's native output rate: 24kHz.
const NativeSampleRate = 24000

// Encoder turns canonical float64 PCM into one of the five response
// formats. Push may return encoded bytes immediately (streaming forms:
// pcm, opus, mp3) or nothing until Flush (buffered forms: wav, flac).
// Close is idempotent.
type Encoder interface {
	Push(samples []float64) ([]byte, error)
	Flush() ([]byte, error)
	Close() error
}

// NewEncoder constructs the Encoder for one of the five response
// formats. sampleRate is the encoder's *output* rate; TTS PCM chunks
// arrive at the engine's native rate (24kHz) and each encoder resamples
// as needed.
func NewEncoder(ctx context.Context, format string, sampleRate int) (Encoder, error) {
	switch format {
	case "pcm":
		return NewPCMEncoder(), nil
	case "wav":
		return NewWAVEncoder(sampleRate), nil
	case "flac":
		return NewFLACEncoder(ctx, sampleRate), nil
	case "opus":
		return NewOpusEncoder()
	case "mp3":
		return NewMP3Encoder(ctx, sampleRate)
	default:
		return nil, errs.NewSynthesis(errs.SynthUnsupportedFormat, fmt.Sprintf("unsupported response format %q", format), nil)
	}
}

// PCMEncoder passes PCM16 through untouched: a streaming encoder with no
// internal framing.
type PCMEncoder struct {
	closed bool
}

// NewPCMEncoder creates a PCMEncoder.
func NewPCMEncoder() *PCMEncoder { return &PCMEncoder{} }

// Push converts float64 samples straight to little-endian PCM16 bytes.
func (e *PCMEncoder) Push(samples []float64) ([]byte, error) {
	return audio.EncodePCM16Mono(samples), nil
}

// Flush is a no-op: PCM has nothing buffered.
func (e *PCMEncoder) Flush() ([]byte, error) { return nil, nil }

// Close is idempotent.
func (e *PCMEncoder) Close() error {
	e.closed = true
	return nil
}
