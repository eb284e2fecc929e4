package sttpipeline

import (
	"context"
	"testing"

	"github.com/eleven-am/voice-backend/internal/eou"
	"github.com/eleven-am/voice-backend/internal/partial"
	"github.com/eleven-am/voice-backend/internal/sttmodel"
	"github.com/eleven-am/voice-backend/internal/vad"
	"github.com/eleven-am/voice-backend/internal/vadmodel"
)

// contentModel treats any nonzero sample as speech, at 10ms resolution,
// mirroring the stub used in internal/vad's own tests.
type contentModel struct{}

const contentSubframeSamples = 160

func (contentModel) SpeechTimestamps(audioSamples []float64, threshold float64, minSilenceMs, padMs, minSpeechMs int) []vadmodel.SpeechSpan {
	active := make([]bool, 0, len(audioSamples)/contentSubframeSamples+1)
	for i := 0; i < len(audioSamples); i += contentSubframeSamples {
		end := i + contentSubframeSamples
		if end > len(audioSamples) {
			end = len(audioSamples)
		}
		nonzero := false
		for _, v := range audioSamples[i:end] {
			if v != 0 {
				nonzero = true
				break
			}
		}
		active = append(active, nonzero)
	}
	frameSpans := vadmodel.MergeActiveRuns(active, 10, minSilenceMs)
	spans := make([]vadmodel.SpeechSpan, len(frameSpans))
	for i, fs := range frameSpans {
		end := fs.EndSample * contentSubframeSamples
		if end > len(audioSamples) {
			end = len(audioSamples)
		}
		spans[i] = vadmodel.SpeechSpan{StartSample: fs.StartSample * contentSubframeSamples, EndSample: end}
	}
	return spans
}

// fakeTranscriber returns a fixed transcript, regardless of input, and
// counts calls so tests can assert transcription actually happened.
type fakeTranscriber struct {
	text  string
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []float64, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error) {
	f.calls++
	return &sttmodel.Transcript{Text: f.text}, nil
}

func silentFrame(n int) []float64 { return make([]float64, n) }

func speechFrame(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.9
	}
	return out
}

func newTestPipeline(transcriberText string, partialsEnabled bool) (*Pipeline, *fakeTranscriber) {
	ft := &fakeTranscriber{text: transcriberText}
	vadCfg := vad.DefaultConfig()
	proc := vad.New(vadCfg, contentModel{}, 20*16000)
	partialSvc := partial.New(ft, partial.DefaultConfig())
	scorer := eou.NewScorer(eou.NewHeuristicModel(), 0.5, 6)
	session := NewSession(20_000)

	p := New(proc, ft, partialSvc, scorer, session, Options{Language: "en", PartialsEnabled: partialsEnabled})
	return p, ft
}

const frameSamples = 320 // 20ms at 16kHz

func TestPipelineEmitsStartStopAndFinalTranscript(t *testing.T) {
	p, ft := newTestPipeline("hello there.", false)
	ctx := context.Background()

	var sawStart, sawStop bool
	var final *sttmodel.Transcript

	for i := 0; i < 100; i++ { // 2s silence
		events, err := p.ProcessFrame(ctx, silentFrame(frameSamples))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		for _, e := range events {
			if e.Kind == EventSpeechStarted {
				t.Fatalf("unexpected speech-started during silence at frame %d", i)
			}
		}
	}

	for i := 0; i < 75; i++ { // 1.5s speech
		events, err := p.ProcessFrame(ctx, speechFrame(frameSamples))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		for _, e := range events {
			if e.Kind == EventSpeechStarted {
				sawStart = true
			}
		}
	}
	if !sawStart {
		t.Fatalf("expected a speech-started event")
	}

	for i := 0; i < 60; i++ { // 1.2s silence, enough to close with hangover latency
		events, err := p.ProcessFrame(ctx, silentFrame(frameSamples))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		for _, e := range events {
			switch e.Kind {
			case EventSpeechStopped:
				sawStop = true
			case EventFinal:
				final = e.Transcript
			}
		}
	}

	if !sawStop {
		t.Fatalf("expected a speech-stopped event")
	}
	if final == nil {
		t.Fatalf("expected a final transcript alongside speech-stopped")
	}
	if final.Text != "hello there." {
		t.Fatalf("final.Text = %q, want %q", final.Text, "hello there.")
	}
	if final.EOUProbability == nil {
		t.Fatalf("expected EOUProbability to be set on a final transcript")
	}
	if ft.calls == 0 {
		t.Fatalf("expected the transcriber to be called")
	}
}

func TestPipelineFlushTranscribesRemainingBuffer(t *testing.T) {
	p, ft := newTestPipeline("flushed text", false)
	p.session.AppendFrame(speechFrame(16000)) // 1s buffered

	event, err := p.Flush(context.Background(), 300)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if event == nil {
		t.Fatalf("expected a final event from flush")
	}
	if event.Transcript.Text != "flushed text" {
		t.Fatalf("text = %q, want %q", event.Transcript.Text, "flushed text")
	}
	if ft.calls != 1 {
		t.Fatalf("calls = %d, want 1", ft.calls)
	}
	if p.session.HasBufferedAudio() {
		t.Fatalf("expected session buffer to be cleared after flush")
	}
}

func TestPipelineFlushSuppressesBelowMinAudio(t *testing.T) {
	p, ft := newTestPipeline("short", false)
	p.session.AppendFrame(speechFrame(160)) // 10ms, well under the 300ms gate

	event, err := p.Flush(context.Background(), 300)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if event != nil {
		t.Fatalf("expected flush to be suppressed, got %+v", event)
	}
	if ft.calls != 0 {
		t.Fatalf("expected no transcription call for a suppressed flush, got %d", ft.calls)
	}
}

func TestPipelineFlushNoopWithEmptyBuffer(t *testing.T) {
	p, ft := newTestPipeline("unused", false)

	event, err := p.Flush(context.Background(), 300)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if event != nil {
		t.Fatalf("expected nil event for an empty session buffer, got %+v", event)
	}
	if ft.calls != 0 {
		t.Fatalf("expected no transcription call, got %d", ft.calls)
	}
}

func TestPipelineEmitsPartialsWhileActive(t *testing.T) {
	p, ft := newTestPipeline("partial words here", true)
	ctx := context.Background()

	var sawPartial bool
	for i := 0; i < 120; i++ { // ~2.4s continuous speech, enough for several strides
		events, err := p.ProcessFrame(ctx, speechFrame(frameSamples))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		for _, e := range events {
			if e.Kind == EventPartial {
				sawPartial = true
			}
		}
	}

	if !sawPartial {
		t.Fatalf("expected at least one partial transcript during a long utterance")
	}
	if ft.calls == 0 {
		t.Fatalf("expected the transcriber to be invoked for partials")
	}
}
