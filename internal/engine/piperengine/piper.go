// Package piperengine adapts the Piper TTS binary to the engine.TTSEngine
// contract. Grounded on the teacher's
// internal/speech/backends/piper/piper.go (same "--model --output-raw"
// subprocess invocation over bytes.Buffer stdin/stdout), generalized from
// a single buffered io.Reader return into the streaming PCMChunk channel
// engine.TTSEngine requires: the raw PCM16 piper emits is decoded once
// Run() completes, then handed to the caller in fixed-size blocks so
// downstream encoders still see a stream of chunks rather than one giant
// blob.
package piperengine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/eleven-am/voice-backend/internal/audio"
	"github.com/eleven-am/voice-backend/internal/engine"
)

// nativeSampleRate matches the voice model's output rate. The rest of the
// TTS pipeline (internal/tts.NativeSampleRate, opus resampling,
// audio_duration_ms accounting) assumes every engine emits at this rate,
// so the configured Piper voice model must be one of its 24kHz variants.
const nativeSampleRate = 24000

// chunkSamples caps how much PCM is handed to the caller per channel send,
// matching the ~20ms framing used elsewhere in the TTS pipeline at this
// rate.
const chunkSamples = nativeSampleRate * 20 / 1000

// Engine implements engine.TTSEngine against a local Piper binary.
type Engine struct {
	binaryPath string
	modelPath  string
	loaded     bool
}

// New creates a Piper TTS engine bound to a binary and voice model.
func New(binaryPath, modelPath string) *Engine {
	if binaryPath == "" {
		binaryPath = "piper"
	}
	return &Engine{binaryPath: binaryPath, modelPath: modelPath}
}

func (e *Engine) Load(context.Context) error   { e.loaded = true; return nil }
func (e *Engine) Unload(context.Context) error { e.loaded = false; return nil }
func (e *Engine) IsLoaded() bool               { return e.loaded }
func (e *Engine) SampleRate() int              { return nativeSampleRate }

// SynthesizeStream runs the piper binary once on the full chunk of text,
// then streams the resulting PCM back in fixed-size blocks, checking
// cancel/ctx between blocks so a cancellation mid-chunk stops promptly.
func (e *Engine) SynthesizeStream(ctx context.Context, text, voiceID string, speed float64, cancel <-chan struct{}) (<-chan engine.PCMChunk, <-chan error) {
	out := make(chan engine.PCMChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)

		pcm, err := e.run(ctx, text)
		if err != nil {
			errCh <- err
			return
		}

		samples := audio.DecodePCM16Mono(pcm)
		for start := 0; start < len(samples); start += chunkSamples {
			end := start + chunkSamples
			if end > len(samples) {
				end = len(samples)
			}
			select {
			case <-cancel:
				return
			case <-ctx.Done():
				return
			case out <- engine.PCMChunk{Samples: samples[start:end]}:
			}
		}
	}()

	return out, errCh
}

func (e *Engine) run(ctx context.Context, text string) ([]byte, error) {
	args := []string{"--model", e.modelPath, "--output-raw"}
	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	cmd.Stdin = bytes.NewBufferString(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper tts: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
