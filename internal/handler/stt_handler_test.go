package handler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/eleven-am/voice-backend/internal/eou"
	"github.com/eleven-am/voice-backend/internal/partial"
	"github.com/eleven-am/voice-backend/internal/sttmodel"
	"github.com/eleven-am/voice-backend/internal/vad"
	"github.com/eleven-am/voice-backend/internal/vadmodel"
)

// fakeSTTStream replays a fixed queue of client messages and records every
// server message sent, mimicking a connect bidi-stream without a real
// transport.
type fakeSTTStream struct {
	in  []STTClientMessage
	pos int
	out []STTServerMessage
}

func (s *fakeSTTStream) Receive() (STTClientMessage, error) {
	if s.pos >= len(s.in) {
		return STTClientMessage{}, io.EOF
	}
	msg := s.in[s.pos]
	s.pos++
	return msg, nil
}

func (s *fakeSTTStream) Send(msg STTServerMessage) error {
	s.out = append(s.out, msg)
	return nil
}

type fixedTranscriber struct{ text string }

func (f fixedTranscriber) Transcribe(context.Context, []float64, string, bool) (*sttmodel.Transcript, error) {
	return &sttmodel.Transcript{Text: f.text}, nil
}

type fakeBatchTranscriber struct{ text string }

func (f fakeBatchTranscriber) TranscribeEncoded(context.Context, []byte, string, string, bool) (*sttmodel.Transcript, error) {
	return &sttmodel.Transcript{Text: f.text}, nil
}

func testDeps(text string) STTHandlerDeps {
	return STTHandlerDeps{
		Transcriber:      fixedTranscriber{text: text},
		BatchTranscriber: fakeBatchTranscriber{text: text},
		VADModel:         vadmodel.NewEnergyModel(),
		EOUModel:         eou.NewHeuristicModel(),
		VADConfig:        vad.DefaultConfig(),
		PartialConfig:    partial.DefaultConfig(),
		EOUThreshold:     0.5,
		MaxContextTurns:  6,
	}
}

func silentPCM(ms int) []byte {
	return make([]byte, ms*16000/1000*2)
}

func speechPCM(ms int) []byte {
	samples := ms * 16000 / 1000
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		pcm[2*i] = 0x10
		pcm[2*i+1] = 0x20
	}
	return pcm
}

func TestHandleSTTRejectsDataBeforeConfig(t *testing.T) {
	stream := &fakeSTTStream{in: []STTClientMessage{
		{Kind: KindAudio, Audio: &AudioFrame{PCM16: silentPCM(20), SampleRate: 16000}},
	}}

	if err := HandleSTT(context.Background(), stream, testDeps("hello")); err != nil {
		t.Fatalf("HandleSTT: %v", err)
	}

	if len(stream.out) != 1 || stream.out[0].Kind != KindSTTError {
		t.Fatalf("expected a single not-configured error, got %+v", stream.out)
	}
}

func TestHandleSTTRejectsDuplicateConfig(t *testing.T) {
	cfg := &STTConfig{Language: "en", SampleRate: 16000}
	stream := &fakeSTTStream{in: []STTClientMessage{
		{Kind: KindConfig, Config: cfg},
		{Kind: KindConfig, Config: cfg},
	}}

	if err := HandleSTT(context.Background(), stream, testDeps("hello")); err != nil {
		t.Fatalf("HandleSTT: %v", err)
	}

	if len(stream.out) != 2 {
		t.Fatalf("expected ready + already-configured error, got %+v", stream.out)
	}
	if stream.out[0].Kind != KindReady {
		t.Errorf("first message = %v, want KindReady", stream.out[0].Kind)
	}
	if stream.out[1].Kind != KindSTTError {
		t.Errorf("second message = %v, want KindSTTError", stream.out[1].Kind)
	}
}

func TestHandleSTTEmitsFinalTranscriptOnEndOfStream(t *testing.T) {
	// Partials on: the session buffer that end_of_stream flushes is only
	// filled while partials are enabled.
	cfg := &STTConfig{Language: "en", SampleRate: 16000, Partials: true}
	var msgs []STTClientMessage
	msgs = append(msgs, STTClientMessage{Kind: KindConfig, Config: cfg})
	for i := 0; i < 80; i++ {
		msgs = append(msgs, STTClientMessage{Kind: KindAudio, Audio: &AudioFrame{PCM16: speechPCM(20), SampleRate: 16000}})
	}
	msgs = append(msgs, STTClientMessage{Kind: KindEndOfStream})

	stream := &fakeSTTStream{in: msgs}
	if err := HandleSTT(context.Background(), stream, testDeps("a complete sentence")); err != nil {
		t.Fatalf("HandleSTT: %v", err)
	}

	var sawFinal bool
	for _, m := range stream.out {
		if m.Kind == KindTranscript && m.Transcript != nil && !m.Transcript.IsPartial && m.Transcript.Text == "a complete sentence" {
			sawFinal = true
		}
		if m.Kind == KindSTTError {
			t.Errorf("unexpected error message: %s", m.ErrorMessage)
		}
	}
	if !sawFinal {
		t.Fatalf("expected a final transcript, got %+v", stream.out)
	}
}

func TestHandleSTTEncodedAudioIsOneShot(t *testing.T) {
	cfg := &STTConfig{Language: "en", SampleRate: 16000}
	stream := &fakeSTTStream{in: []STTClientMessage{
		{Kind: KindConfig, Config: cfg},
		{Kind: KindEncodedAudio, Encoded: &EncodedAudioBlob{Data: []byte{1, 2, 3}, Format: "mp3"}},
	}}

	if err := HandleSTT(context.Background(), stream, testDeps("batch result")); err != nil {
		t.Fatalf("HandleSTT: %v", err)
	}

	var found bool
	for _, m := range stream.out {
		if m.Kind == KindTranscript && m.Transcript != nil && m.Transcript.Text == "batch result" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected batch transcript, got %+v", stream.out)
	}
}

func TestHandleSTTPropagatesReceiveError(t *testing.T) {
	wantErr := errors.New("connection reset")
	stream := &erroringSTTStream{err: wantErr}

	if err := HandleSTT(context.Background(), stream, testDeps("x")); !errors.Is(err, wantErr) {
		t.Fatalf("HandleSTT error = %v, want %v", err, wantErr)
	}
}

type erroringSTTStream struct {
	err error
	out []STTServerMessage
}

func (s *erroringSTTStream) Receive() (STTClientMessage, error) { return STTClientMessage{}, s.err }
func (s *erroringSTTStream) Send(msg STTServerMessage) error {
	s.out = append(s.out, msg)
	return nil
}
