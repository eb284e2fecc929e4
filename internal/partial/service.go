// Package partial implements PartialTranscriptService: stride/window-gated
// stabilizing transcription of the live session buffer tail, deduplicated
// against already-confirmed words.
package partial

import (
	"context"
	"strings"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// Transcriber is the narrow dependency this service needs from
// transcription.Service, kept as an interface so tests can stub it
// without spinning up an engine manager.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float64, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error)
}

// Config holds the partial-transcript cadence parameters.
type Config struct {
	WindowMs int
	StrideMs int
}

// DefaultConfig returns the documented default cadence.
func DefaultConfig() Config {
	return Config{WindowMs: 1500, StrideMs: 700}
}

// overlapPadMs is the extra tail padding transcribed beyond WindowMs, to
// give the engine acoustic context before the word boundary it must
// stabilize.
const overlapPadMs = 300

// Service evaluates, on each ingested frame, whether to emit a partial
// transcript over the session's buffered tail.
type Service struct {
	transcriber Transcriber
	cfg         Config
}

// New creates a Service.
func New(transcriber Transcriber, cfg Config) *Service {
	return &Service{transcriber: transcriber, cfg: cfg}
}

// TailSource is the narrow view this service needs of a session's ring
// buffer: a millisecond-addressable tail read.
type TailSource interface {
	// TailMs returns the last n milliseconds of canonical audio.
	TailMs(ms int) []float64
}

// Maybe evaluates the gate and, if it passes, transcribes the tail,
// deduplicates against confirmedWords, and returns the new partial text
// plus the updated confirmed-words list. ok is false when the gate did
// not pass or the deduplicated tail was empty: an empty partial is never
// emitted.
func (s *Service) Maybe(ctx context.Context, source TailSource, bufMs, lastPartialMs int, confirmedWords []string, language string) (text string, newConfirmed []string, newLastPartialMs int, ok bool, err error) {
	if bufMs-lastPartialMs < s.cfg.StrideMs || bufMs < s.cfg.WindowMs {
		return "", confirmedWords, lastPartialMs, false, nil
	}

	tail := source.TailMs(s.cfg.WindowMs + overlapPadMs)
	transcript, err := s.transcriber.Transcribe(ctx, tail, language, false)
	if err != nil {
		return "", confirmedWords, lastPartialMs, false, err
	}

	newWords := strings.Fields(transcript.Text)
	tailWords, updated := DeduplicateWords(newWords, confirmedWords)

	if len(tailWords) == 0 {
		return "", updated, bufMs, false, nil
	}

	return strings.Join(tailWords, " "), updated, bufMs, true, nil
}

// DeduplicateWords finds the largest i (1 <= i <= min(len(confirmed),
// len(new))) such that the last i confirmed words case-insensitively
// equal the first i new words; return the tail new[i:] and the updated
// confirmed list (confirmed + tail). Idempotent: calling it again with
// the returned confirmed list and the same new text returns an empty
// tail.
func DeduplicateWords(newWords, confirmed []string) (tail []string, updatedConfirmed []string) {
	maxI := len(confirmed)
	if len(newWords) < maxI {
		maxI = len(newWords)
	}

	overlap := 0
	for i := maxI; i >= 1; i-- {
		if wordsEqualCI(confirmed[len(confirmed)-i:], newWords[:i]) {
			overlap = i
			break
		}
	}

	tail = append([]string{}, newWords[overlap:]...)
	updatedConfirmed = append(append([]string{}, confirmed...), tail...)
	return tail, updatedConfirmed
}

func wordsEqualCI(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
