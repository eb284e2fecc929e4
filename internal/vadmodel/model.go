// Package vadmodel defines the voice-activity-detection collaborator
// boundary: the core never touches a neural VAD model directly, only this
// narrow interface. Grounded on the teacher's
// internal/speech/engine/vad.go VAD/VADConfig split and
// other_examples/c3b9e29a_chriscow-livekit-agents-go VADOptions shape.
package vadmodel

// SpeechSpan is a speech region inside a window, expressed in sample
// indices relative to the start of the audio passed to SpeechTimestamps.
type SpeechSpan struct {
	StartSample int
	EndSample   int
}

// Model is the VAD collaborator interface: given a window of canonical
// 16kHz mono audio, return the speech spans found inside it.
// Implementations may be a Silero ONNX model, an energy heuristic, or a
// remote scorer; the core's VADProcessor only depends on this contract.
type Model interface {
	// SpeechTimestamps scores audio and returns the speech spans detected,
	// in ascending start order. minSpeechMs/padMs are passed through so a
	// model-native implementation can apply its own span-trimming; a naive
	// implementation is free to ignore them and let VADProcessor do the
	// padding itself.
	SpeechTimestamps(audio []float64, threshold float64, minSilenceMs, padMs, minSpeechMs int) []SpeechSpan
}
