package engine

import "context"

// PCMChunk is one yielded block of synthesized float PCM, at the engine's
// native sample rate.
type PCMChunk struct {
	Samples []float64
}

// TTSEngine synthesizes speech from text. Grounded on the teacher's
// internal/speech/engine.TTSEngine, generalized from an io.Reader return
// into a streaming channel so the synthesizer can forward chunks to an
// encoder as they arrive instead of buffering a whole utterance.
type TTSEngine interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	IsLoaded() bool

	// SynthesizeStream streams PCM chunks for one text chunk. The
	// returned channel is closed when synthesis completes, fails, or
	// cancel fires; errCh carries at most one error.
	SynthesizeStream(ctx context.Context, text, voiceID string, speed float64, cancel <-chan struct{}) (<-chan PCMChunk, <-chan error)

	// SampleRate is the engine's native output rate (the TTS pipeline's
	// native rate is 24kHz).
	SampleRate() int
}
