package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"

	sidecarconfig "github.com/eleven-am/voice-backend/config"
	"github.com/eleven-am/voice-backend/internal/audio"
	"github.com/eleven-am/voice-backend/internal/engine"
	"github.com/eleven-am/voice-backend/internal/engine/piperengine"
	"github.com/eleven-am/voice-backend/internal/engine/whisperasr"
	"github.com/eleven-am/voice-backend/internal/eou"
	"github.com/eleven-am/voice-backend/internal/handler"
	"github.com/eleven-am/voice-backend/internal/partial"
	"github.com/eleven-am/voice-backend/internal/transcription"
	"github.com/eleven-am/voice-backend/internal/tts"
	"github.com/eleven-am/voice-backend/internal/vad"
	"github.com/eleven-am/voice-backend/internal/vadmodel"
)

// newCollaborators wires the two engine.* registries (ASR and TTS) plus the batch
// transcription and synthesis services from loaded config. Kept as a
// separate function from main so the wiring itself is testable-shaped,
// mirroring the teacher's practice of keeping main() a thin call site.
func newCollaborators(cfg *sidecarconfig.SidecarConfig) (handler.STTHandlerDeps, handler.TTSHandlerDeps) {
	asrRegistry := engine.NewRegistry[engine.ASREngine]()
	asrRegistry.Register("whisper", func(ctx context.Context, device string) (engine.ASREngine, error) {
		return whisperasr.NewFromOptions(map[string]string{"model_path": cfg.ModelsDir + "/ggml-base.bin"}), nil
	})
	asrManager := engine.NewManager[engine.ASREngine](
		asrRegistry.Factory(),
		time.Duration(cfg.EngineIdleTTLSec)*time.Second,
		nil,
		"cuda",
	)

	ttsRegistry := engine.NewRegistry[engine.TTSEngine]()
	ttsRegistry.Register("piper", func(ctx context.Context, device string) (engine.TTSEngine, error) {
		return piperengine.New(cfg.PiperBinaryPath, cfg.ModelsDir+"/"+cfg.DefaultTTSEngine+".onnx"), nil
	})
	ttsManager := engine.NewManager[engine.TTSEngine](
		ttsRegistry.Factory(),
		time.Duration(cfg.EngineIdleTTLSec)*time.Second,
		nil,
		"cuda",
	)

	transcriber := transcription.New(asrManager, cfg.DefaultASREngine)
	synthesizer := tts.New(ttsManager, cfg.DefaultTTSEngine)

	sttDeps := handler.STTHandlerDeps{
		Transcriber:      transcriber,
		BatchTranscriber: transcriber,
		VADModel:         vadmodel.NewEnergyModel(),
		EOUModel:         eou.NewHeuristicModel(),
		VADConfig: vad.Config{
			Threshold:            cfg.VADThreshold,
			MinSilenceDurationMs: cfg.VADMinSilenceDurMs,
			SpeechPadMs:          cfg.VADSpeechPadMs,
			MinSpeechDurationMs:  cfg.VADMinSpeechDurMs,
			MinAudioDurationMs:   cfg.VADMinAudioDurMs,
			MaxUtteranceMs:       cfg.VADMaxUtteranceMs,
			WindowMs:             cfg.VADWindowMs,
		},
		PartialConfig: partial.Config{
			WindowMs: cfg.PartialWindowMs,
			StrideMs: cfg.PartialStrideMs,
		},
		EOUThreshold:    cfg.EOUThreshold,
		MaxContextTurns: cfg.EOUMaxCtxTurns,
	}

	ttsDeps := handler.TTSHandlerDeps{Synthesizer: synthesizer}

	return sttDeps, ttsDeps
}

// notImplementedHandler reports that the RPC transport is out of scope for
// this build: the session state machines in internal/handler are exercised
// directly by tests and by whatever wire adapter a deployment supplies,
// not by this thin process entrypoint.
func notImplementedHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/stt", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stt transport not wired in this build", http.StatusNotImplemented)
	})
	mux.HandleFunc("/v1/tts", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tts transport not wired in this build", http.StatusNotImplemented)
	})
	return mux
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[sidecarconfig.SidecarConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("speech-sidecar"),
		frame.WithRegisterServerOauth2Client(),
	)
	defer srv.Stop(ctx)

	audio.SetFFmpegPath(cfg.FFmpegBinaryPath)
	sttDeps, ttsDeps := newCollaborators(&cfg)
	log.Printf("wired stt collaborators: asr=%s vad_threshold=%.2f eou_threshold=%.2f",
		cfg.DefaultASREngine, sttDeps.VADConfig.Threshold, sttDeps.EOUThreshold)
	log.Printf("wired tts collaborators: tts=%s", cfg.DefaultTTSEngine)
	if ttsDeps.Synthesizer == nil {
		log.Fatal("tts synthesizer was not constructed")
	}

	srv.Init(ctx, frame.WithHTTPHandler(notImplementedHandler()))

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
