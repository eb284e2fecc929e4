package transcription

import (
	"testing"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

func TestMergeTranscriptsShiftsOffsetsAndJoinsText(t *testing.T) {
	results := []chunkResult{
		{
			transcript: &sttmodel.Transcript{
				Text:                 " hello world ",
				StartMs:              0,
				EndMs:                300000,
				AudioDurationMs:      300000,
				ProcessingDurationMs: 1000,
				Model:                "whisper",
				Words:                []sttmodel.Word{{Text: "hello", StartS: 0, EndS: 0.5}, {Text: "world", StartS: 0.5, EndS: 1.0}},
			},
			offsetS: 0,
		},
		{
			transcript: &sttmodel.Transcript{
				Text:                 "goodbye",
				StartMs:              0,
				EndMs:                120000,
				AudioDurationMs:      120000,
				ProcessingDurationMs: 400,
				Model:                "whisper",
				Words:                []sttmodel.Word{{Text: "goodbye", StartS: 0, EndS: 0.6}},
			},
			offsetS: 300,
		},
	}

	merged := mergeTranscripts(results)

	if merged.Text != "hello world goodbye" {
		t.Fatalf("Text = %q, want %q", merged.Text, "hello world goodbye")
	}
	if merged.AudioDurationMs != 420000 {
		t.Fatalf("AudioDurationMs = %d, want 420000", merged.AudioDurationMs)
	}
	if merged.ProcessingDurationMs != 1400 {
		t.Fatalf("ProcessingDurationMs = %d, want 1400", merged.ProcessingDurationMs)
	}
	if merged.StartMs != 0 {
		t.Fatalf("StartMs = %d, want 0", merged.StartMs)
	}
	if merged.EndMs != 120000+300*1000 {
		t.Fatalf("EndMs = %d, want %d", merged.EndMs, 120000+300*1000)
	}
	if merged.EOUProbability != nil {
		t.Fatalf("EOUProbability = %v, want nil", merged.EOUProbability)
	}
	if len(merged.Words) != 3 {
		t.Fatalf("len(Words) = %d, want 3", len(merged.Words))
	}

	lastWord := merged.Words[2]
	if lastWord.StartS != 300 || lastWord.EndS != 300.6 {
		t.Fatalf("last word offsets = %v/%v, want 300/300.6", lastWord.StartS, lastWord.EndS)
	}

	for i := 1; i < len(merged.Words); i++ {
		if merged.Words[i].StartS < merged.Words[i-1].StartS {
			t.Fatalf("words out of non-decreasing start order at %d", i)
		}
	}
}

func TestChunkSamplesPartitionsAt300000Ms(t *testing.T) {
	// 12 minutes of audio at 16kHz -> 3 chunks of up to 5 minutes each.
	samples := make([]float64, 12*60*16000)
	chunks := chunkSamples(samples, ChunkDurationMs)

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len(c.samples)
	}
	if total != len(samples) {
		t.Fatalf("chunked sample total = %d, want %d", total, len(samples))
	}
	if chunks[1].offsetS != 300 {
		t.Fatalf("chunks[1].offsetS = %v, want 300", chunks[1].offsetS)
	}
}
