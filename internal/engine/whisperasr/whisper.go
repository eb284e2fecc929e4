// Package whisperasr adapts a local whisper.cpp-style ASR backend to the
// engine.ASREngine contract. Grounded on the teacher's
// internal/speech/backends/whisper/whisper.go: same placeholder-result
// shape (no cgo whisper.cpp bindings vendored in the retrieval pack
// either), generalized from a streaming io.Reader+VAD loop to a single
// transcribe(audio, language, want_word_timestamps) call, since speech
// segmentation now happens upstream in the VAD processor rather than the
// engine.
package whisperasr

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// Engine implements engine.ASREngine against a whisper.cpp model file.
type Engine struct {
	modelPath string
	poolSize  int

	mu     sync.Mutex
	loaded bool
}

// New creates a whisper ASR engine bound to a model file.
func New(modelPath string, poolSize int) *Engine {
	if poolSize <= 0 {
		poolSize = 2
	}
	return &Engine{modelPath: modelPath, poolSize: poolSize}
}

// NewFromOptions builds an Engine the same way the teacher's registry
// factory derived one from a loose string-keyed config map.
func NewFromOptions(options map[string]string) *Engine {
	modelPath := options["model_path"]
	if modelPath == "" {
		if m := options["model"]; m != "" {
			modelPath = "./models/" + m + ".bin"
		} else {
			modelPath = "./models/ggml-base.bin"
		}
	}
	poolSize := 2
	if s := options["pool_size"]; s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			poolSize = v
		}
	}
	return New(modelPath, poolSize)
}

func (e *Engine) Load(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = true
	return nil
}

func (e *Engine) Unload(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = false
	return nil
}

func (e *Engine) IsLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// SampleRate is whisper.cpp's expected input rate, matching the canonical
// audio rate already used throughout the core.
func (e *Engine) SampleRate() int { return 16000 }

// Transcribe runs one segment of canonical audio through the model. No
// whisper.cpp cgo bindings are vendored in the retrieval pack (the
// teacher's own backend carries the identical caveat), so this reports a
// fixed placeholder result sized to the input, the same shape the
// teacher's Transcribe goroutine produced per cut utterance.
func (e *Engine) Transcribe(ctx context.Context, audio []float64, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error) {
	if !e.IsLoaded() {
		return nil, fmt.Errorf("whisper model %s not loaded", e.modelPath)
	}
	if len(audio) == 0 {
		return &sttmodel.Transcript{Text: ""}, nil
	}

	durationMs := len(audio) * 1000 / e.SampleRate()
	transcript := &sttmodel.Transcript{
		Text:            "[whisper transcription placeholder]",
		AudioDurationMs: durationMs,
		Model:           e.modelPath,
	}
	if wantWordTimestamps {
		transcript.Words = []sttmodel.Word{
			{Text: transcript.Text, StartS: 0, EndS: float64(durationMs) / 1000},
		}
	}
	return transcript, nil
}
