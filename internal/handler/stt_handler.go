package handler

import (
	"context"
	"errors"
	"io"

	"github.com/eleven-am/voice-backend/internal/audio"
	"github.com/eleven-am/voice-backend/internal/errs"
	"github.com/eleven-am/voice-backend/internal/eou"
	"github.com/eleven-am/voice-backend/internal/partial"
	"github.com/eleven-am/voice-backend/internal/sttmodel"
	"github.com/eleven-am/voice-backend/internal/sttpipeline"
	"github.com/eleven-am/voice-backend/internal/vad"
	"github.com/eleven-am/voice-backend/internal/vadmodel"
)

// BatchTranscriber is the narrow dependency needed for the one-shot
// encoded_audio path; transcription.Service satisfies it.
type BatchTranscriber interface {
	TranscribeEncoded(ctx context.Context, data []byte, format, language string, wantWordTimestamps bool) (*sttmodel.Transcript, error)
}

// STTHandlerDeps wires one STT session to the shared engine/model
// collaborators; everything per-session (VAD processor, ring buffer,
// conversation history) is constructed fresh on the config message.
type STTHandlerDeps struct {
	Transcriber      sttpipeline.Transcriber
	BatchTranscriber BatchTranscriber
	VADModel         vadmodel.Model
	EOUModel         eou.Model
	VADConfig        vad.Config
	PartialConfig    partial.Config
	EOUThreshold     float64
	MaxContextTurns  int
}

// sessionCapacityMargin adds headroom beyond max_utterance_ms/speech_pad_ms
// so the ring buffers never silently drop in-flight audio.
const sessionCapacityMargin = 2000

// HandleSTT drives one STT session end to end: config exactly once, then
// any mix of audio/encoded_audio/opus_frame/end_of_stream, forwarding
// VAD/partial/final events as they're produced. Illegal transitions
// report a typed error message but never abort the stream, except on
// client disconnect or ctx cancellation.
func HandleSTT(ctx context.Context, stream STTStream, deps STTHandlerDeps) error {
	var (
		configured  bool
		cfg         STTConfig
		pipeline    *sttpipeline.Pipeline
		opusDecoder *audio.OpusFrameDecoder
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := stream.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return flushRemaining(ctx, pipeline, deps.VADConfig.MinAudioDurationMs, stream)
			}
			return err
		}

		if msg.Kind == KindConfig {
			if configured {
				sendSTTError(stream, &errs.AlreadyConfigured{})
				continue
			}
			cfg = *msg.Config
			pipeline = newSTTPipeline(cfg, deps)
			configured = true
			_ = stream.Send(STTServerMessage{Kind: KindReady})
			continue
		}

		if !configured {
			sendSTTError(stream, &errs.NotConfigured{})
			continue
		}

		switch msg.Kind {
		case KindEndOfStream:
			return flushRemaining(ctx, pipeline, deps.VADConfig.MinAudioDurationMs, stream)

		case KindAudio:
			samples := decodePCMFrame(msg.Audio, cfg.SampleRate)
			if err := processAndForward(ctx, pipeline, samples, stream); err != nil {
				return err
			}

		case KindOpusFrame:
			if opusDecoder == nil {
				opusDecoder = audio.NewOpusFrameDecoder()
			}
			samples, err := opusDecoder.Decode(msg.Opus.Data)
			if err != nil {
				sendSTTError(stream, errs.NewDecode("opus frame", err))
				continue
			}
			if err := processAndForward(ctx, pipeline, samples, stream); err != nil {
				return err
			}

		case KindEncodedAudio:
			transcript, err := deps.BatchTranscriber.TranscribeEncoded(ctx, msg.Encoded.Data, msg.Encoded.Format, cfg.Language, cfg.IncludeWordTimestamps)
			if err != nil {
				sendSTTError(stream, err)
				continue
			}
			if err := stream.Send(STTServerMessage{Kind: KindTranscript, Transcript: transcript}); err != nil {
				return err
			}
		}
	}
}

// newSTTPipeline constructs the per-session VAD processor, partial
// service, EOU scorer and pipeline from the session's config message.
func newSTTPipeline(cfg STTConfig, deps STTHandlerDeps) *sttpipeline.Pipeline {
	vadCfg := deps.VADConfig

	partialCfg := deps.PartialConfig
	if cfg.PartialWindowMs > 0 {
		partialCfg.WindowMs = cfg.PartialWindowMs
	}
	if cfg.PartialStrideMs > 0 {
		partialCfg.StrideMs = cfg.PartialStrideMs
	}

	capacityMs := vadCfg.MaxUtteranceMs + vadCfg.SpeechPadMs + sessionCapacityMargin
	capacitySamples := capacityMs * audio.SampleRate / 1000

	proc := vad.New(vadCfg, deps.VADModel, capacitySamples)
	session := sttpipeline.NewSession(capacityMs)
	scorer := eou.NewScorer(deps.EOUModel, deps.EOUThreshold, deps.MaxContextTurns)
	partialSvc := partial.New(deps.Transcriber, partialCfg)

	return sttpipeline.New(proc, deps.Transcriber, partialSvc, scorer, session, sttpipeline.Options{
		Language:           cfg.Language,
		PartialsEnabled:    cfg.Partials,
		WantWordTimestamps: cfg.IncludeWordTimestamps,
	})
}

// processAndForward feeds one frame through the pipeline and sends every
// resulting event in causal order.
func processAndForward(ctx context.Context, pipeline *sttpipeline.Pipeline, samples []float64, stream STTStream) error {
	events, err := pipeline.ProcessFrame(ctx, samples)
	if err != nil {
		sendSTTError(stream, err)
		return nil
	}
	return forwardEvents(events, stream)
}

// flushRemaining transcribes any buffered tail audio at stream end (spec
// §4.9: "on termination, flush remaining session audio as a final
// transcript") and forwards it if non-empty.
func flushRemaining(ctx context.Context, pipeline *sttpipeline.Pipeline, minAudioMs int, stream STTStream) error {
	if pipeline == nil {
		return nil
	}
	event, err := pipeline.Flush(ctx, minAudioMs)
	if err != nil {
		sendSTTError(stream, err)
		return nil
	}
	if event == nil {
		return nil
	}
	return stream.Send(STTServerMessage{Kind: KindTranscript, Transcript: event.Transcript})
}

func forwardEvents(events []sttpipeline.Event, stream STTStream) error {
	for _, e := range events {
		var out STTServerMessage
		switch e.Kind {
		case sttpipeline.EventSpeechStarted:
			out = STTServerMessage{Kind: KindSpeechStarted, TimestampMs: e.TimestampMs}
		case sttpipeline.EventSpeechStopped:
			out = STTServerMessage{Kind: KindSpeechStopped, TimestampMs: e.TimestampMs}
		case sttpipeline.EventPartial, sttpipeline.EventFinal:
			out = STTServerMessage{Kind: KindTranscript, Transcript: e.Transcript}
		default:
			continue
		}
		if err := stream.Send(out); err != nil {
			return err
		}
	}
	return nil
}

func decodePCMFrame(frame *AudioFrame, sessionDefaultRate int) []float64 {
	rate := frame.SampleRate
	if rate == 0 {
		rate = sessionDefaultRate
	}
	if rate == 0 {
		rate = audio.SampleRate
	}
	pcm := audio.DecodePCM16Mono(frame.PCM16)
	return audio.ToCanonical(pcm, rate)
}

func sendSTTError(stream STTStream, err error) {
	_ = stream.Send(STTServerMessage{Kind: KindSTTError, ErrorMessage: err.Error()})
}
