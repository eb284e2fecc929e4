// Package vad implements the VADProcessor state machine: a rolling
// voice-activity detector over a ring buffer of canonical audio, emitting
// speech-start/speech-stop events and cut SpeechSegments.
package vad

import (
	"github.com/eleven-am/voice-backend/internal/audio"
	"github.com/eleven-am/voice-backend/internal/vadmodel"
)

// Config holds the numeric thresholds driving the VAD state machine.
type Config struct {
	Threshold            float64
	MinSilenceDurationMs int
	SpeechPadMs          int
	MinSpeechDurationMs  int
	MinAudioDurationMs   int
	MaxUtteranceMs       int
	WindowMs             int
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		Threshold:            0.6,
		MinSilenceDurationMs: 500,
		SpeechPadMs:          100,
		MinSpeechDurationMs:  250,
		MinAudioDurationMs:   300,
		MaxUtteranceMs:       15000,
		WindowMs:             1000,
	}
}

// EventType distinguishes the two boundary events VADProcessor emits.
type EventType int

const (
	EventNone EventType = iota
	EventSpeechStarted
	EventSpeechStopped
)

// Event is the boundary event returned by Append, at most one per call.
type Event struct {
	Type        EventType
	TimestampMs int
}

// Segment is a cut utterance, emitted alongside EventSpeechStopped unless
// its duration fell below MinAudioDurationMs.
type Segment struct {
	Audio   []float64
	StartMs int
	EndMs   int
}

// span is a merged speech region inside the most recent rolling window, in
// samples relative to the window start.
type span struct {
	start, end int
}

// Processor runs the rolling VAD algorithm. It is not safe for concurrent
// use from multiple goroutines; one instance belongs to one STT session's
// single-threaded driver.
type Processor struct {
	cfg   Config
	model vadmodel.Model

	buf *audio.RingBuffer

	// totalSamples counts every sample ever appended this utterance cycle,
	// independent of the ring buffer's saturating fill count, so
	// timestamps stay correct across buffer wraparound during long idle
	// silence between utterances.
	totalSamples int64

	inUtterance bool
	startMs     int
}

// New creates a Processor. capacitySamples should be at least
// (MaxUtteranceMs + SpeechPadMs + a margin) worth of samples at 16kHz.
func New(cfg Config, model vadmodel.Model, capacitySamples int) *Processor {
	return &Processor{
		cfg:   cfg,
		model: model,
		buf:   audio.NewRingBuffer(capacitySamples),
	}
}

func msToSamples(ms int) int {
	return ms * audio.SampleRate / 1000
}

func samplesToMs(n int64) int {
	return int(n * 1000 / audio.SampleRate)
}

// Append feeds one frame of canonical 16kHz mono audio and returns up to
// one event and, on a closing event, one Segment (nil if the closed
// utterance was suppressed for being too short).
func (p *Processor) Append(samples []float64) (Event, *Segment) {
	p.buf.Append(samples)
	p.totalSamples += int64(len(samples))
	bufMs := samplesToMs(p.totalSamples)

	windowSamples := msToSamples(p.cfg.WindowMs)
	window := p.buf.Tail(windowSamples)
	windowStartSample := windowSamples - len(window)

	merged, ok := p.mergeSpans(window)

	if !p.inUtterance {
		if ok {
			spanStartMs := bufMs - p.cfg.WindowMs + samplesToMs(int64(windowStartSample+merged.start))
			p.startMs = spanStartMs
			p.inUtterance = true
			return Event{Type: EventSpeechStarted, TimestampMs: p.startMs}, nil
		}
		return Event{Type: EventNone}, nil
	}

	// InUtterance.
	if !ok {
		return p.close(bufMs), p.cutSegment(bufMs - p.cfg.SpeechPadMs)
	}
	if bufMs >= p.cfg.MaxUtteranceMs {
		return p.close(bufMs), p.cutSegment(bufMs - p.cfg.SpeechPadMs)
	}
	return Event{Type: EventNone}, nil
}

// close resets utterance state and returns the SpeechStopped event.
func (p *Processor) close(bufMs int) Event {
	endMs := bufMs - p.cfg.SpeechPadMs
	p.inUtterance = false
	return Event{Type: EventSpeechStopped, TimestampMs: endMs}
}

// cutSegment slices the utterance audio out of the buffer and resets it.
// Returns nil (segment suppressed, event still fires) when the duration is
// below MinAudioDurationMs.
func (p *Processor) cutSegment(endMs int) *Segment {
	startMs := p.startMs
	if endMs <= startMs {
		p.buf.Clear()
		p.totalSamples = 0
		return nil
	}

	// The buffer's logical index 0 corresponds to bufMs-so-far minus
	// buf.Count() ms ago; translate absolute session ms to the buffer's
	// current logical-index space.
	bufMs := samplesToMs(p.totalSamples)
	bufStartMs := bufMs - samplesToMs(int64(p.buf.Count()))

	sliceStart := msToSamples(startMs - bufStartMs)
	sliceEnd := msToSamples(endMs - bufStartMs)
	segAudio := p.buf.Slice(sliceStart, sliceEnd)

	p.buf.Clear()
	p.totalSamples = 0

	duration := endMs - startMs
	if duration < p.cfg.MinAudioDurationMs {
		return nil
	}

	return &Segment{Audio: segAudio, StartMs: startMs, EndMs: endMs}
}

// mergeSpans collapses the model's speech spans inside window into a
// single {earliest start, latest end} span. A merged span counts as
// "absent" once its end lags more than
// MinSilenceDurationMs behind the window's end: the window retains stale
// speech samples for up to WindowMs after the utterance truly ended, so
// presence is judged by recency, not by mere occurrence anywhere in the
// window.
func (p *Processor) mergeSpans(window []float64) (span, bool) {
	spans := p.model.SpeechTimestamps(window, p.cfg.Threshold, p.cfg.MinSilenceDurationMs, p.cfg.SpeechPadMs, p.cfg.MinSpeechDurationMs)
	if len(spans) == 0 {
		return span{}, false
	}

	merged := span{start: spans[0].StartSample, end: spans[0].EndSample}
	for _, s := range spans[1:] {
		if s.StartSample < merged.start {
			merged.start = s.StartSample
		}
		if s.EndSample > merged.end {
			merged.end = s.EndSample
		}
	}

	hangoverSamples := msToSamples(p.cfg.MinSilenceDurationMs)
	if len(window)-merged.end > hangoverSamples {
		return span{}, false
	}
	return merged, true
}
