package vadmodel

import "math"

// subframeMs is the resolution at which EnergyModel scores a window: each
// subframe gets its own energy score, and contiguous above-threshold
// subframes are merged into one SpeechSpan, the same merge-on-read shape
// VADProcessor applies again across windows.
const subframeMs = 10

// EnergyModel is a simple, dependency-free VAD model: it scores rolling
// RMS energy over canonical 16kHz float audio, normalised into roughly
// [0, 1] so it can be compared against the same threshold a neural model
// would use. Grounded on the teacher's internal/speech/engine/vad.go
// rmsEnergy helper, generalised from a single running isSpeaking flag into
// the SpeechTimestamps span-list contract VADProcessor expects.
type EnergyModel struct {
	sampleRate int
	// scale converts RMS amplitude (already in [0,1] for canonical audio)
	// into a score comparable to a neural model's [0,1] confidence. Typical
	// voiced speech RMS sits well below 1.0, so the score is boosted.
	scale float64
}

// NewEnergyModel creates the default energy-based VAD model for canonical
// 16kHz audio.
func NewEnergyModel() *EnergyModel {
	return &EnergyModel{sampleRate: 16000, scale: 6.0}
}

// SpeechTimestamps implements Model. It scores each subframe, then applies
// MergeActiveRuns so brief dips below threshold (shorter than
// minSilenceMs) don't fragment one utterance into many spans.
func (m *EnergyModel) SpeechTimestamps(audio []float64, threshold float64, minSilenceMs, _, _ int) []SpeechSpan {
	frameSamples := m.sampleRate * subframeMs / 1000
	if frameSamples <= 0 || len(audio) == 0 {
		return nil
	}

	numFrames := (len(audio) + frameSamples - 1) / frameSamples
	active := make([]bool, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * frameSamples
		end := start + frameSamples
		if end > len(audio) {
			end = len(audio)
		}
		active[i] = m.score(audio[start:end]) >= threshold
	}

	frameSpans := MergeActiveRuns(active, float64(subframeMs), minSilenceMs)
	spans := make([]SpeechSpan, len(frameSpans))
	for i, fs := range frameSpans {
		spans[i] = SpeechSpan{
			StartSample: fs.StartSample * frameSamples,
			EndSample:   min(fs.EndSample*frameSamples, len(audio)),
		}
	}
	return spans
}

// score computes a normalised RMS energy score for one subframe.
func (m *EnergyModel) score(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range frame {
		sumSquares += s * s
	}
	rms := math.Sqrt(sumSquares / float64(len(frame)))
	score := rms * m.scale
	if score > 1 {
		score = 1
	}
	return score
}
