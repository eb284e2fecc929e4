// Package transcription implements TranscriptionService: single-utterance
// transcription with OOM retry + fallback, and batch transcription of
// long encoded audio via chunk + merge.
package transcription

import (
	"context"

	"github.com/eleven-am/voice-backend/internal/audio"
	"github.com/eleven-am/voice-backend/internal/engine"
	"github.com/eleven-am/voice-backend/internal/errs"
	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

// ChunkDurationMs is the batch-transcription chunk size.
const ChunkDurationMs = 300_000

// Service drives one (or a configured fallback chain of) ASR engine
// through the manager, retrying OOM failures with fallback up to
// engine.MaxOOMRetries.
type Service struct {
	manager   *engine.Manager[engine.ASREngine]
	primaryID string
}

// New creates a Service bound to a manager and the primary engine id to
// acquire first (the manager's fallback chain takes over on OOM).
func New(manager *engine.Manager[engine.ASREngine], primaryEngineID string) *Service {
	return &Service{manager: manager, primaryID: primaryEngineID}
}

// Transcribe runs up to engine.MaxOOMRetries transcription attempts,
// retrying on OOM. Non-OOM errors propagate immediately as
// *errs.Transcription. When a fallback engine id is configured, OOM
// retries move to it (or to a CPU-resident instance of the same engine,
// whichever TryFallback selects); when no fallback or CPU transition is
// available, the same engine is retried as-is for the remaining
// attempts, since a transient OOM may still clear between attempts. A
// persistent OOM across all attempts surfaces only after the last one.
func (s *Service) Transcribe(ctx context.Context, samples []float64, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error) {
	engineID := s.primaryID

	for attempt := 1; attempt <= engine.MaxOOMRetries; attempt++ {
		w := s.manager.Get(engineID)
		inst, release, err := w.Acquire(ctx)
		if err != nil {
			release()
			return nil, errs.NewTranscription(err)
		}

		transcript, err := inst.Transcribe(ctx, samples, language, wantWordTimestamps)
		release()

		if err == nil {
			return transcript, nil
		}

		if !engine.IsOOMError(err) {
			return nil, errs.NewTranscription(err)
		}

		if attempt == engine.MaxOOMRetries {
			return nil, errs.NewTranscription(err)
		}

		// TryFallback's return only tells us whether the manager advanced
		// to a new engine id or CPU device; either way the manager's
		// internal state may now route the next Get/Acquire to a
		// CPU-resident instance, so the loop always retries regardless of
		// the return value.
		s.manager.TryFallback(ctx, engineID)
		engineID = s.nextEngineID(engineID)
	}

	return nil, errs.NewTranscription(context.DeadlineExceeded)
}

// nextEngineID advances to the next candidate in the configured fallback
// chain (an id outside the chain, such as the primary, advances to the
// chain's first entry), falling back to retrying the same id (covers the
// CPU-device transition case, where the id is unchanged but the device is
// now CPU).
func (s *Service) nextEngineID(current string) string {
	chain := s.manager.FallbackChain()
	for i, id := range chain {
		if id == current {
			if i+1 < len(chain) {
				return chain[i+1]
			}
			return current
		}
	}
	if len(chain) > 0 {
		return chain[0]
	}
	return current
}

// TranscribeEncoded decodes a containerized audio blob and transcribes
// it, partitioning into ChunkDurationMs chunks and merging when more than
// one chunk results.
func (s *Service) TranscribeEncoded(ctx context.Context, data []byte, format, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error) {
	samples, err := audio.DecodeContainer(ctx, data, format)
	if err != nil {
		return nil, err
	}

	chunks := chunkSamples(samples, ChunkDurationMs)
	if len(chunks) == 1 {
		return s.Transcribe(ctx, chunks[0].samples, language, wantWordTimestamps)
	}

	results := make([]chunkResult, 0, len(chunks))
	for _, c := range chunks {
		t, err := s.Transcribe(ctx, c.samples, language, wantWordTimestamps)
		if err != nil {
			return nil, err
		}
		results = append(results, chunkResult{transcript: t, offsetS: c.offsetS})
	}

	return mergeTranscripts(results), nil
}

// audioChunk is one 5-minute (or shorter, for the last one) slice of
// canonical audio plus its offset in seconds from the start.
type audioChunk struct {
	samples []float64
	offsetS float64
}

func chunkSamples(samples []float64, chunkMs int) []audioChunk {
	chunkSamplesN := chunkMs * audio.SampleRate / 1000
	if chunkSamplesN <= 0 || len(samples) == 0 {
		return []audioChunk{{samples: samples, offsetS: 0}}
	}

	var chunks []audioChunk
	for start := 0; start < len(samples); start += chunkSamplesN {
		end := start + chunkSamplesN
		if end > len(samples) {
			end = len(samples)
		}
		chunks = append(chunks, audioChunk{
			samples: samples[start:end],
			offsetS: float64(start) / float64(audio.SampleRate),
		})
	}
	return chunks
}
