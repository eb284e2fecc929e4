// Package config holds environment-driven configuration for the speech
// sidecar, following the teacher sidecar's struct-tag convention.
package config

import (
	"github.com/pitabwire/frame/config"
)

// SidecarConfig holds every tunable the speech sidecar exposes: VAD
// thresholds, partial-transcript cadence, EOU commit threshold, engine TTLs
// and device preference, and default backend selection.
type SidecarConfig struct {
	config.ConfigurationDefault

	// Default engine ids.
	DefaultASREngine string `envDefault:"whisper" env:"ASR_ENGINE"`
	DefaultTTSEngine string `envDefault:"piper"   env:"TTS_ENGINE"`
	DefaultVADModel  string `envDefault:"silero"  env:"VAD_MODEL"`
	DefaultEOUModel  string `envDefault:"heuristic" env:"EOU_MODEL"`

	// Voice activity detection thresholds.
	VADThreshold          float64 `envDefault:"0.6"   env:"VAD_THRESHOLD"`
	VADMinSilenceDurMs    int     `envDefault:"500"   env:"VAD_MIN_SILENCE_DURATION_MS"`
	VADSpeechPadMs        int     `envDefault:"100"   env:"VAD_SPEECH_PAD_MS"`
	VADMinSpeechDurMs     int     `envDefault:"250"   env:"VAD_MIN_SPEECH_DURATION_MS"`
	VADMinAudioDurMs      int     `envDefault:"300"   env:"VAD_MIN_AUDIO_DURATION_MS"`
	VADMaxUtteranceMs     int     `envDefault:"15000" env:"VAD_MAX_UTTERANCE_MS"`
	VADWindowMs           int     `envDefault:"1000"  env:"VAD_WINDOW_MS"`

	// Partial-transcript cadence.
	PartialWindowMs int `envDefault:"1500" env:"PARTIAL_WINDOW_MS"`
	PartialStrideMs int `envDefault:"700"  env:"PARTIAL_STRIDE_MS"`

	// End-of-utterance scoring.
	EOUThreshold    float64 `envDefault:"0.5" env:"EOU_THRESHOLD"`
	EOUMaxCtxTurns  int     `envDefault:"10"  env:"EOU_MAX_CONTEXT_TURNS"`

	// Engine lifecycle (load/idle-unload/fallback) tuning.
	EngineIdleTTLSec int `envDefault:"300" env:"ENGINE_IDLE_TTL_SEC"`
	MaxOOMRetries    int `envDefault:"3"   env:"ENGINE_MAX_OOM_RETRIES"`

	// Batch transcription chunking.
	ChunkDurationMs int `envDefault:"300000" env:"TRANSCRIBE_CHUNK_DURATION_MS"`

	// Text-to-speech chunking.
	TTSChunkMaxChars int `envDefault:"250" env:"TTS_CHUNK_MAX_CHARS"`

	// External codec subprocess for container decode of formats with no
	// native Go decoder in the ambient stack. The MP3 and FLAC encoders do
	// not read this setting; they invoke "ffmpeg" from PATH.
	FFmpegBinaryPath string `envDefault:"ffmpeg" env:"FFMPEG_BINARY_PATH"`

	// Local engine binaries/models, loaded on an engine's first acquire.
	PiperBinaryPath string `envDefault:"piper"   env:"PIPER_BINARY_PATH"`
	ModelsDir       string `envDefault:"./models" env:"MODELS_DIR"`

	// Worker pools backing the STT/TTS inference subsystems.
	STTWorkerPoolSize int `envDefault:"8" env:"STT_WORKER_POOL_SIZE"`
	TTSWorkerPoolSize int `envDefault:"8" env:"TTS_WORKER_POOL_SIZE"`
}
