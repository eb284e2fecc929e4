// Package handler drives the two bidirectional session state machines:
// STTSessionHandler and TTSSessionHandler. The wire schema itself
// (protobuf/connect generated types) is out of scope; these are plain
// tagged-union Go structs shaped like the teacher's generated message
// types, carried over an abstract Stream so the state machine logic is
// exercised without a real RPC transport.
package handler

import "github.com/eleven-am/voice-backend/internal/sttmodel"

// STTMessageKind tags one client->server STT message.
type STTMessageKind int

const (
	KindConfig STTMessageKind = iota
	KindAudio
	KindEncodedAudio
	KindOpusFrame
	KindEndOfStream
)

// STTConfig is the STT session's one-time configuration message.
type STTConfig struct {
	Language              string
	SampleRate            int
	InitialPrompt         string
	Hotwords              []string
	Partials              bool
	PartialWindowMs       int
	PartialStrideMs       int
	IncludeWordTimestamps bool
	ModelID               string
	Task                  string
	Temperature           float64
}

// AudioFrame carries raw PCM16 at the frame's own sample rate: interpreted
// as PCM16 at the frame's sample_rate, or the session default if zero.
type AudioFrame struct {
	PCM16      []byte
	SampleRate int
}

// EncodedAudioBlob is a one-shot containerized audio submission.
type EncodedAudioBlob struct {
	Data   []byte
	Format string
}

// OpusFrame is one 20ms Opus RTP frame.
type OpusFrame struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// STTClientMessage is the STT tagged union. Exactly one of the pointer
// fields is set, matching Kind.
type STTClientMessage struct {
	Kind    STTMessageKind
	Config  *STTConfig
	Audio   *AudioFrame
	Encoded *EncodedAudioBlob
	Opus    *OpusFrame
}

// STTServerMessageKind tags one server->client STT message.
type STTServerMessageKind int

const (
	KindReady STTServerMessageKind = iota
	KindSpeechStarted
	KindSpeechStopped
	KindTranscript
	KindSTTError
)

// STTServerMessage is the STT server->client tagged union.
type STTServerMessage struct {
	Kind         STTServerMessageKind
	TimestampMs  int
	Transcript   *sttmodel.Transcript
	ErrorMessage string
	ErrorCode    int
}

// STTStream is the narrow transport contract a session driver needs; a
// real RPC server adapts its generated bidi-stream type to this shape.
type STTStream interface {
	Receive() (STTClientMessage, error)
	Send(STTServerMessage) error
}

// TTSMessageKind tags one client->server TTS message.
type TTSMessageKind int

const (
	KindTTSConfig TTSMessageKind = iota
	KindText
	KindEnd
)

// TTSConfig is the TTS session's one-time configuration message.
type TTSConfig struct {
	VoiceID        string
	SampleRate     int
	Speed          float64
	ResponseFormat string
}

// TTSClientMessage is the TTS tagged union.
type TTSClientMessage struct {
	Kind   TTSMessageKind
	Config *TTSConfig
	Text   string
}

// TTSServerMessageKind tags one server->client TTS message.
type TTSServerMessageKind int

const (
	KindTTSReady TTSServerMessageKind = iota
	KindTTSAudio
	KindDone
	KindTTSError
)

// TTSServerMessage is the TTS server->client tagged union. Transcript is
// always nil: no engine adapter currently produces forced-alignment
// output for synthesized audio, so the field exists for shape parity but
// is never populated.
type TTSServerMessage struct {
	Kind                 TTSServerMessageKind
	VoiceID              string
	SampleRate           int
	Data                 []byte
	Format               string
	TimestampMs          int
	AudioDurationMs      int
	ProcessingDurationMs int
	TextLength           int
	Usage                *sttmodel.Usage
	Transcript           *sttmodel.Transcript
	ErrorMessage         string
	ErrorCode            int
}

// TTSStream is the narrow transport contract a TTS session driver needs.
type TTSStream interface {
	Receive() (TTSClientMessage, error)
	Send(TTSServerMessage) error
}
