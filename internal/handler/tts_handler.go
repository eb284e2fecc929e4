package handler

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/eleven-am/voice-backend/internal/errs"
	"github.com/eleven-am/voice-backend/internal/sttmodel"
	"github.com/eleven-am/voice-backend/internal/tts"
)

// TTSHandlerDeps wires one TTS session to the shared synthesizer.
type TTSHandlerDeps struct {
	Synthesizer *tts.Synthesizer
}

// defaultResponseFormat matches the teacher's own default.
const defaultResponseFormat = "pcm"

// HandleTTS drives one TTS session end to end: config first, then any
// number of text messages buffered until end (or stream close), at which
// point the concatenated text is synthesized, pushed through the
// session's response-format encoder, and streamed back as audio messages,
// finishing with a done message carrying usage accounting.
func HandleTTS(ctx context.Context, stream TTSStream, deps TTSHandlerDeps) error {
	var (
		configured bool
		cfg        TTSConfig
		texts      []string
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
				return synthesizeAndRespond(ctx, stream, deps, cfg, texts)
			}
			return err
		}

		if msg.Kind == KindTTSConfig {
			if configured {
				sendTTSError(stream, &errs.AlreadyConfigured{})
				continue
			}
			cfg = *msg.Config
			if cfg.ResponseFormat == "" {
				cfg.ResponseFormat = defaultResponseFormat
			}
			configured = true
			_ = stream.Send(TTSServerMessage{Kind: KindTTSReady, VoiceID: cfg.VoiceID, SampleRate: cfg.SampleRate})
			continue
		}

		if !configured {
			sendTTSError(stream, &errs.NotConfigured{})
			continue
		}

		switch msg.Kind {
		case KindText:
			texts = append(texts, msg.Text)
		case KindEnd:
			return synthesizeAndRespond(ctx, stream, deps, cfg, texts)
		}
	}
}

// synthesizeAndRespond runs the buffered text through the synthesizer and
// the session's chosen encoder, streaming audio messages as frames arrive
// and finishing with a single done message.
func synthesizeAndRespond(ctx context.Context, stream TTSStream, deps TTSHandlerDeps, cfg TTSConfig, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	text := strings.Join(texts, " ")
	startedAt := time.Now()

	enc, err := tts.NewEncoder(ctx, cfg.ResponseFormat, cfg.SampleRate)
	if err != nil {
		sendTTSError(stream, err)
		return nil
	}
	defer enc.Close()

	cancel := make(chan struct{})
	defer close(cancel)

	pcmCh, errCh := deps.Synthesizer.Synthesize(ctx, text, cfg.VoiceID, cfg.Speed, cancel)

	var audioDurationMs, timestampMs int
	nativeRate := tts.NativeSampleRate

	for chunk := range pcmCh {
		audioDurationMs += len(chunk.Samples) * 1000 / nativeRate

		encoded, err := enc.Push(chunk.Samples)
		if err != nil {
			sendTTSError(stream, err)
			return nil
		}
		if len(encoded) == 0 {
			continue
		}
		if err := stream.Send(TTSServerMessage{
			Kind:        KindTTSAudio,
			Data:        encoded,
			Format:      cfg.ResponseFormat,
			TimestampMs: timestampMs,
		}); err != nil {
			return err
		}
		timestampMs = audioDurationMs
	}

	// Synthesize's goroutine never sends to errCh and never closes it on
	// success — out closing first is the success signal, so this read must
	// be non-blocking or a successful synthesis would hang here forever.
	var synthErr error
	select {
	case synthErr = <-errCh:
	default:
	}
	if synthErr != nil {
		sendTTSError(stream, synthErr)
		return nil
	}

	final, err := enc.Flush()
	if err != nil {
		sendTTSError(stream, err)
		return nil
	}
	if len(final) > 0 {
		if err := stream.Send(TTSServerMessage{
			Kind:        KindTTSAudio,
			Data:        final,
			Format:      cfg.ResponseFormat,
			TimestampMs: timestampMs,
		}); err != nil {
			return err
		}
	}

	return stream.Send(TTSServerMessage{
		Kind:                 KindDone,
		AudioDurationMs:      audioDurationMs,
		ProcessingDurationMs: int(time.Since(startedAt).Milliseconds()),
		TextLength:           len(text),
		Usage: &sttmodel.Usage{
			AudioSeconds: float64(audioDurationMs) / 1000,
			Characters:   len(text),
		},
	})
}

func sendTTSError(stream TTSStream, err error) {
	code := errs.SynthGeneric
	var synthErr *errs.Synthesis
	if errors.As(err, &synthErr) {
		code = synthErr.Code
	}
	_ = stream.Send(TTSServerMessage{Kind: KindTTSError, ErrorMessage: err.Error(), ErrorCode: code})
}
