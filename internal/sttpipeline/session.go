// Package sttpipeline orchestrates per-session streaming STT behaviour:
// Session holds per-stream mutable state; Pipeline wires VADProcessor,
// TranscriptionService, PartialTranscriptService and the EOU scorer
// together.
package sttpipeline

import (
	"sync"

	"github.com/eleven-am/voice-backend/internal/audio"
)

// Session holds one streaming STT session's mutable state: ring buffer,
// confirmed words, partial cursor and active flag, all guarded by one
// lock. Grounded on the teacher's pkg/dialog/session.go single-mutex,
// copy-on-read accessor pattern.
type Session struct {
	mu sync.RWMutex

	buf          *audio.RingBuffer
	totalSamples int64

	confirmedWords []string
	lastPartialMs  int
	active         bool
}

// NewSession creates a session whose buffer can hold capacityMs of
// canonical audio; callers size capacityMs to at least
// max_utterance_ms + speech_pad_ms + a safety margin.
func NewSession(capacityMs int) *Session {
	capacitySamples := capacityMs * audio.SampleRate / 1000
	return &Session{buf: audio.NewRingBuffer(capacitySamples)}
}

// AppendFrame appends canonical audio to the session buffer.
func (s *Session) AppendFrame(samples []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Append(samples)
	s.totalSamples += int64(len(samples))
}

// BufMs returns the session's buffered milliseconds since the current
// utterance began.
func (s *Session) BufMs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.totalSamples * 1000 / audio.SampleRate)
}

// TailMs returns the last ms milliseconds of buffered audio, implementing
// partial.TailSource.
func (s *Session) TailMs(ms int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := ms * audio.SampleRate / 1000
	return s.buf.Tail(n)
}

// ConfirmedWords returns a copy of the confirmed-words list.
func (s *Session) ConfirmedWords() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.confirmedWords))
	copy(out, s.confirmedWords)
	return out
}

// SetConfirmedWords replaces the confirmed-words list.
func (s *Session) SetConfirmedWords(words []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmedWords = append([]string{}, words...)
}

// LastPartialMs returns the buffered-ms value at the last emitted partial.
func (s *Session) LastPartialMs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPartialMs
}

// SetLastPartialMs updates the last-partial cursor.
func (s *Session) SetLastPartialMs(ms int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPartialMs = ms
}

// Active reports whether the session is inside an utterance.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive updates the active flag.
func (s *Session) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

// ResetUtterance clears the buffer and per-utterance cursors, called when
// an utterance closes (and after a stream-end flush) so confirmed-words
// dedup state doesn't leak
// across utterance boundaries: the append-only/prefix invariant is scoped
// to a single utterance, not the whole session.
func (s *Session) ResetUtterance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Clear()
	s.totalSamples = 0
	s.confirmedWords = nil
	s.lastPartialMs = 0
}

// HasBufferedAudio reports whether the session currently holds any
// buffered audio (used to decide whether a termination-time flush has
// anything to transcribe).
func (s *Session) HasBufferedAudio() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf.Count() > 0
}

// AllBufferedAudio returns every sample currently retained.
func (s *Session) AllBufferedAudio() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf.Tail(s.buf.Count())
}
