package tts

import (
	"context"

	"github.com/eleven-am/voice-backend/internal/engine"
	"github.com/eleven-am/voice-backend/internal/errs"
)

// Synthesizer drives a TTSEngine through the manager, chunk by chunk,
// retrying only the failing chunk on OOM via CPU fallback.
type Synthesizer struct {
	manager   *engine.Manager[engine.TTSEngine]
	primaryID string
}

// MinSpeed and MaxSpeed bound the playback-rate multiplier accepted by
// Synthesize.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// New creates a Synthesizer bound to a manager and its primary engine id.
func New(manager *engine.Manager[engine.TTSEngine], primaryEngineID string) *Synthesizer {
	return &Synthesizer{manager: manager, primaryID: primaryEngineID}
}

// Synthesize chunks text, then synthesizes each chunk in order,
// forwarding PCM frames onto the returned channel as they arrive. The
// returned channel is closed when synthesis completes, fails, or cancel
// fires; errCh carries at most one *errs.Synthesis error. Cancellation is
// checked between chunks and between yielded frames. speed must fall in
// [MinSpeed, MaxSpeed]; a speed of 0 is treated as "unset" and defaults
// to 1.0.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string, speed float64, cancel <-chan struct{}) (<-chan engine.PCMChunk, <-chan error) {
	out := make(chan engine.PCMChunk)
	errCh := make(chan error, 1)

	if speed == 0 {
		speed = 1.0
	}
	if speed < MinSpeed || speed > MaxSpeed {
		close(out)
		errCh <- errs.NewSynthesis(errs.SynthRangeError, "speed out of range [0.5, 2.0]", nil)
		return out, errCh
	}

	chunks := ChunkText(text, MaxChunkChars)
	if len(chunks) == 0 {
		close(out)
		errCh <- errs.NewSynthesis(errs.SynthNoText, "no text to synthesize", nil)
		return out, errCh
	}

	go func() {
		defer close(out)

		for _, chunk := range chunks {
			select {
			case <-cancel:
				return
			case <-ctx.Done():
				return
			default:
			}

			if err := s.synthesizeChunk(ctx, chunk, voiceID, speed, cancel, out); err != nil {
				errCh <- err
				return
			}
		}
	}()

	return out, errCh
}

// synthesizeChunk synthesizes one chunk, retrying on OOM by switching to
// the CPU-resident engine and redoing only this chunk.
func (s *Synthesizer) synthesizeChunk(ctx context.Context, text, voiceID string, speed float64, cancel <-chan struct{}, out chan<- engine.PCMChunk) error {
	engineID := s.primaryID

	for attempt := 0; attempt <= engine.MaxOOMRetries; attempt++ {
		w := s.manager.Get(engineID)
		inst, release, err := w.Acquire(ctx)
		if err != nil {
			release()
			return errs.NewSynthesis(errs.SynthModelUnloaded, "engine unavailable", err)
		}

		chunks, engErrCh := inst.SynthesizeStream(ctx, text, voiceID, speed, cancel)

		var synthErr error
		streamed := false
	drain:
		for {
			select {
			case <-cancel:
				release()
				return nil
			case c, ok := <-chunks:
				if !ok {
					break drain
				}
				streamed = true
				select {
				case out <- c:
				case <-cancel:
					release()
					return nil
				case <-ctx.Done():
					release()
					return nil
				}
			case e := <-engErrCh:
				synthErr = e
			}
		}
		if synthErr == nil {
			select {
			case e := <-engErrCh:
				synthErr = e
			default:
			}
		}
		release()

		if synthErr == nil {
			return nil
		}

		if !engine.IsOOMError(synthErr) || streamed {
			return errs.NewSynthesis(errs.SynthFailed, "synthesis failed", synthErr)
		}

		if attempt == engine.MaxOOMRetries {
			return errs.NewSynthesis(errs.SynthFailed, "synthesis failed after retries", synthErr)
		}
		if !s.manager.TryFallback(ctx, engineID) {
			return errs.NewSynthesis(errs.SynthFailed, "synthesis failed, no fallback available", synthErr)
		}
	}

	return errs.NewSynthesis(errs.SynthGeneric, "exhausted synthesis attempts", nil)
}
