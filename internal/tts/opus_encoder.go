package tts

import (
	"bytes"
	"math/rand/v2"

	"github.com/hraban/opus"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"

	"github.com/eleven-am/voice-backend/internal/audio"
)

// opusSampleRate is the TTS opus output rate: 48kHz mono, fixed 20ms
// frames.
const opusSampleRate = 48000

// opusFrameSize is frame_samples = 48000 * 20 / 1000.
const opusFrameSize = 960

const opusPayloadType = 111

// OpusEncoder resamples 24kHz TTS PCM to 48kHz, packs it into fixed 20ms
// frames, encodes each with github.com/hraban/opus, and Ogg-frames the
// result via pion/webrtc's oggwriter over synthetic RTP packets
// (pion/rtp) — the same libraries the teacher already carries for its
// media/SFU subsystem, repurposed here for TTS output instead of decode.
type OpusEncoder struct {
	enc *opus.Encoder
	ow  *oggwriter.OggWriter
	buf *bytes.Buffer

	staging []int16
	seq     uint16
	ts      uint32
	ssrc    uint32

	closed bool
}

// NewOpusEncoder creates an OpusEncoder.
func NewOpusEncoder() (*OpusEncoder, error) {
	enc, err := opus.NewEncoder(opusSampleRate, 1, opus.AppAudio)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	ow, err := oggwriter.NewWith(buf, opusSampleRate, 1)
	if err != nil {
		return nil, err
	}

	return &OpusEncoder{
		enc:  enc,
		ow:   ow,
		buf:  buf,
		ssrc: rand.Uint32(),
	}, nil
}

// Push resamples the block to 48kHz, stages it as 16-bit PCM, and emits
// one Ogg-framed Opus packet for every complete 960-sample frame
// accumulated.
func (e *OpusEncoder) Push(samples []float64) ([]byte, error) {
	resampled := audio.Resample(samples, NativeSampleRate, opusSampleRate)
	e.staging = append(e.staging, toInt16(resampled)...)

	for len(e.staging) >= opusFrameSize {
		frame := e.staging[:opusFrameSize]
		e.staging = e.staging[opusFrameSize:]
		if err := e.encodeFrame(frame); err != nil {
			return nil, err
		}
	}
	return e.drain(), nil
}

// Flush zero-pads any residual staged samples to one full frame, encodes
// it, and closes the Ogg stream. A second call is a no-op.
func (e *OpusEncoder) Flush() ([]byte, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true

	if len(e.staging) > 0 {
		padded := make([]int16, opusFrameSize)
		copy(padded, e.staging)
		e.staging = nil
		if err := e.encodeFrame(padded); err != nil {
			return nil, err
		}
	}

	if err := e.ow.Close(); err != nil {
		return nil, err
	}
	return e.drain(), nil
}

// Close is idempotent.
func (e *OpusEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.ow.Close()
}

func (e *OpusEncoder) encodeFrame(frame []int16) error {
	encoded := make([]byte, 4000)
	n, err := e.enc.Encode(frame, encoded)
	if err != nil {
		return err
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: e.seq,
			Timestamp:      e.ts,
			SSRC:           e.ssrc,
		},
		Payload: encoded[:n],
	}
	if err := e.ow.WriteRTP(pkt); err != nil {
		return err
	}

	e.seq++
	e.ts += opusFrameSize
	return nil
}

func (e *OpusEncoder) drain() []byte {
	if e.buf.Len() == 0 {
		return nil
	}
	b := append([]byte(nil), e.buf.Bytes()...)
	e.buf.Reset()
	return b
}

func toInt16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}
