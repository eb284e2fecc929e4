package audio

import "github.com/pion/opus"

// opusFrameSamples is the number of samples per channel in a 20ms Opus
// frame at 48kHz, the only frame size the opus_frame ingestion path
// accepts.
const opusFrameSamples = 960

// OpusFrameDecoder decodes 20ms/48kHz Opus RTP frames to canonical 16kHz
// mono float64 audio. Generalizes the teacher's
// internal/speech/codec/opus.go OpusToPCM16Writer: decode stays on
// github.com/pion/opus, but downsampling now goes through the shared
// Resample helper instead of a hand-rolled 3:1 decimation, so any Opus
// source/channel combination is handled uniformly.
type OpusFrameDecoder struct {
	decoder *opus.Decoder
	pcmBuf  []byte
}

// NewOpusFrameDecoder creates a decoder for one Opus stream. A decoder
// carries internal state (loss-concealment history) so a fresh instance is
// constructed lazily per STT session on its first opus_frame message (spec
// §4.9).
func NewOpusFrameDecoder() *OpusFrameDecoder {
	return &OpusFrameDecoder{
		decoder: &opus.Decoder{},
		// 48kHz stereo 20ms frame, S16LE.
		pcmBuf: make([]byte, opusFrameSamples*2*2),
	}
}

// Decode decodes a single Opus packet and returns canonical 16kHz mono
// float64 samples.
func (d *OpusFrameDecoder) Decode(packet []byte) ([]float64, error) {
	_, isStereo, err := d.decoder.Decode(packet, d.pcmBuf)
	if err != nil {
		return nil, err
	}

	channels := 1
	if isStereo {
		channels = 2
	}
	frameBytes := opusFrameSamples * channels * 2
	if frameBytes > len(d.pcmBuf) {
		frameBytes = len(d.pcmBuf)
	}

	samples := DecodePCM16(d.pcmBuf[:frameBytes], channels)
	return ToCanonical(samples, 48000), nil
}
