// Package engine implements the engine lifecycle manager: a generic
// refcounted, TTL-evicting pool of heavyweight model instances, shared
// across concurrent sessions, with OOM-triggered fallback and a
// CPU-device fallback transition. The ASR/TTS model interfaces themselves
// are narrow collaborator boundaries — their internals (the neural
// models) are out of scope.
package engine

import (
	"context"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// ASREngine transcribes canonical 16kHz mono audio. Grounded on the
// teacher's internal/speech/engine.ASREngine, generalized from a
// streaming io.Reader/channel shape to a single-shot call returning one
// Transcript for a given audio window, language hint, and word-timestamp
// request.
type ASREngine interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	IsLoaded() bool

	Transcribe(ctx context.Context, audio []float64, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error)

	// SampleRate is the rate the engine expects input audio at. The
	// transcription service passes canonical 16kHz audio unchanged; it does
	// not resample to this rate.
	SampleRate() int
}
