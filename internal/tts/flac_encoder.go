package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/eleven-am/voice-backend/internal/audio"
)

// flacFFmpegPath is the subprocess binary used for FLAC encode, since no
// Go-native FLAC encoder appears anywhere in the retrieval pack (same
// subprocess-codec pattern as internal/audio's container ffmpeg decode
// path and the teacher's piper.go).
var flacFFmpegPath = "ffmpeg"

// FLACEncoder buffers every pushed sample and shells out to ffmpeg once,
// on Flush, to produce a FLAC container.
type FLACEncoder struct {
	ctx        context.Context
	sampleRate int
	samples    []float64
	closed     bool
}

// NewFLACEncoder creates a FLACEncoder targeting sampleRate.
func NewFLACEncoder(ctx context.Context, sampleRate int) *FLACEncoder {
	return &FLACEncoder{ctx: ctx, sampleRate: sampleRate}
}

// Push accumulates samples; FLAC is buffered, so nothing is emitted yet.
func (e *FLACEncoder) Push(samples []float64) ([]byte, error) {
	e.samples = append(e.samples, samples...)
	return nil, nil
}

// Flush encodes every buffered sample to FLAC in one ffmpeg invocation. A
// second call is a no-op.
func (e *FLACEncoder) Flush() ([]byte, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true

	pcm := audio.EncodePCM16Mono(e.samples)
	cmd := exec.CommandContext(e.ctx, flacFFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le", "-ar", fmt.Sprintf("%d", e.sampleRate), "-ac", "1",
		"-i", "pipe:0",
		"-f", "flac",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(pcm)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg flac encode: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Close is idempotent.
func (e *FLACEncoder) Close() error {
	e.closed = true
	return nil
}
