package transcription

import (
	"strings"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// chunkResult pairs a chunk's transcript with the chunk's offset (in
// seconds) from the start of the full encoded audio.
type chunkResult struct {
	transcript *sttmodel.Transcript
	offsetS    float64
}

// mergeTranscripts combines per-chunk transcripts into one: text joined
// by single spaces, word/segment times shifted by each chunk's offset,
// durations summed, and eou_probability cleared.
func mergeTranscripts(results []chunkResult) *sttmodel.Transcript {
	var textParts []string
	var words []sttmodel.Word
	var segments []sttmodel.Segment
	var audioDurationMs, processingDurationMs int
	var startMs int
	var endMs int
	var model string
	var audioSeconds float64
	var chars int

	for i, r := range results {
		t := r.transcript
		if trimmed := strings.TrimSpace(t.Text); trimmed != "" {
			textParts = append(textParts, trimmed)
		}

		for _, w := range t.Words {
			words = append(words, sttmodel.Word{
				Text:       w.Text,
				StartS:     w.StartS + r.offsetS,
				EndS:       w.EndS + r.offsetS,
				Confidence: w.Confidence,
			})
		}
		for _, seg := range t.Segments {
			segments = append(segments, sttmodel.Segment{
				Text:   seg.Text,
				StartS: seg.StartS + r.offsetS,
				EndS:   seg.EndS + r.offsetS,
			})
		}

		audioDurationMs += t.AudioDurationMs
		processingDurationMs += t.ProcessingDurationMs
		audioSeconds += t.Usage.AudioSeconds
		chars += t.Usage.Characters

		if i == 0 {
			startMs = t.StartMs
			model = t.Model
		}
		if i == len(results)-1 {
			endMs = t.EndMs + int(r.offsetS*1000)
		}
	}

	return &sttmodel.Transcript{
		Text:                 strings.Join(textParts, " "),
		IsPartial:            false,
		StartMs:              startMs,
		EndMs:                endMs,
		AudioDurationMs:      audioDurationMs,
		ProcessingDurationMs: processingDurationMs,
		Words:                words,
		Segments:             segments,
		Model:                model,
		Usage:                sttmodel.Usage{AudioSeconds: audioSeconds, Characters: chars},
		EOUProbability:       nil,
	}
}
