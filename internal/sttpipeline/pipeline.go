package sttpipeline

import (
	"context"
	"strings"

	"github.com/eleven-am/voice-backend/internal/eou"
	"github.com/eleven-am/voice-backend/internal/partial"
	"github.com/eleven-am/voice-backend/internal/sttmodel"
	"github.com/eleven-am/voice-backend/internal/vad"
)

// Transcriber is the narrow dependency the pipeline needs for final
// segments; transcription.Service satisfies it. Kept as an interface (the
// same shape partial.Transcriber uses) so tests can stub it without
// standing up an engine.Manager.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float64, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error)
}

// EventKind distinguishes the four outputs the pipeline can produce from
// one ingested frame.
type EventKind int

const (
	EventSpeechStarted EventKind = iota
	EventSpeechStopped
	EventPartial
	EventFinal
)

// Event is one output of a ProcessFrame call; per call at most one
// boundary event and at most one transcript are produced.
type Event struct {
	Kind        EventKind
	TimestampMs int
	Transcript  *sttmodel.Transcript
}

// Options configures one pipeline instance from per-session RPC config.
type Options struct {
	Language           string
	PartialsEnabled    bool
	WantWordTimestamps bool
}

// Pipeline orchestrates VADProcessor, TranscriptionService,
// PartialTranscriptService and the EOU scorer for one STT session.
type Pipeline struct {
	vadProc     *vad.Processor
	transcriber Transcriber
	partialSvc  *partial.Service
	eouScorer   *eou.Scorer
	session     *Session
	opts        Options
}

// New creates a Pipeline. The caller owns vadProc/transcriber/partialSvc
// lifetime; eouScorer may be shared across sessions only if it is itself
// safe for concurrent use (eou.Scorer is) but conversation history is
// normally per-session, so callers typically construct a fresh Scorer per
// session too.
func New(vadProc *vad.Processor, transcriber Transcriber, partialSvc *partial.Service, eouScorer *eou.Scorer, session *Session, opts Options) *Pipeline {
	return &Pipeline{
		vadProc:     vadProc,
		transcriber: transcriber,
		partialSvc:  partialSvc,
		eouScorer:   eouScorer,
		session:     session,
		opts:        opts,
	}
}

// ProcessFrame runs the per-frame VAD/partial/final algorithm and
// returns every event produced, in causal order (SpeechStarted/partials/
// SpeechStopped/final).
func (p *Pipeline) ProcessFrame(ctx context.Context, samples []float64) ([]Event, error) {
	var events []Event

	vadEvent, segment := p.vadProc.Append(samples)

	switch vadEvent.Type {
	case vad.EventSpeechStarted:
		p.session.SetActive(true)
		events = append(events, Event{Kind: EventSpeechStarted, TimestampMs: vadEvent.TimestampMs})
	case vad.EventSpeechStopped:
		p.session.SetActive(false)
		events = append(events, Event{Kind: EventSpeechStopped, TimestampMs: vadEvent.TimestampMs})

		if segment != nil {
			final, err := p.transcribeSegment(ctx, segment.Audio, segment.StartMs, segment.EndMs)
			if err != nil {
				p.session.ResetUtterance()
				return events, err
			}
			if final != nil {
				events = append(events, Event{Kind: EventFinal, Transcript: final})
			}
		}
		p.session.ResetUtterance()
		return events, nil
	}

	if p.session.Active() && p.opts.PartialsEnabled {
		p.session.AppendFrame(samples)

		bufMs := p.session.BufMs()
		text, confirmed, lastPartialMs, ok, err := p.partialSvc.Maybe(ctx, p.session, bufMs, p.session.LastPartialMs(), p.session.ConfirmedWords(), p.opts.Language)
		if err != nil {
			return events, err
		}
		p.session.SetConfirmedWords(confirmed)
		p.session.SetLastPartialMs(lastPartialMs)

		if ok {
			events = append(events, Event{Kind: EventPartial, Transcript: &sttmodel.Transcript{
				Text:      text,
				IsPartial: true,
			}})
		}
	}

	return events, nil
}

// Flush transcribes any remaining buffered session audio as one final
// segment, called on stream termination. minAudioMs gates emission so a
// trailing sliver of audio too short to be meaningful speech is dropped
// instead of transcribed.
func (p *Pipeline) Flush(ctx context.Context, minAudioMs int) (*Event, error) {
	if !p.session.HasBufferedAudio() {
		return nil, nil
	}
	audioSamples := p.session.AllBufferedAudio()
	durationMs := len(audioSamples) * 1000 / 16000
	if durationMs < minAudioMs {
		p.session.ResetUtterance()
		return nil, nil
	}

	final, err := p.transcribeSegment(ctx, audioSamples, 0, durationMs)
	p.session.ResetUtterance()
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, nil
	}
	return &Event{Kind: EventFinal, Transcript: final}, nil
}

// transcribeSegment transcribes one utterance's audio and, if the result
// text is non-empty, attaches start/end timestamps and an EOU probability.
func (p *Pipeline) transcribeSegment(ctx context.Context, samples []float64, startMs, endMs int) (*sttmodel.Transcript, error) {
	transcript, err := p.transcriber.Transcribe(ctx, samples, p.opts.Language, p.opts.WantWordTimestamps)
	if err != nil {
		return nil, err
	}

	transcript.Text = strings.TrimSpace(transcript.Text)
	if transcript.Text == "" {
		return nil, nil
	}

	transcript.IsPartial = false
	transcript.StartMs = startMs
	transcript.EndMs = endMs

	eouProb := p.eouScorer.ScoreFinalUserTranscript(transcript.Text)
	transcript.EOUProbability = &eouProb

	return transcript, nil
}
