package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tosone/minimp3"

	"github.com/eleven-am/voice-backend/internal/errs"
)

// ContainerDecoder decodes a full containerized audio blob to canonical
// audio. Internals of the underlying codec library are out of scope; the
// core only needs the narrow byte-array -> canonical-audio abstraction.
type ContainerDecoder func(ctx context.Context, data []byte) ([]float64, error)

// ffmpegPath is the subprocess binary used for containers with no
// native-Go decoder in the ambient stack (ogg, flac, aac, m4a, webm),
// mirroring the teacher's subprocess-codec pattern
// (internal/speech/backends/piper/piper.go).
var ffmpegPath = "ffmpeg"

// SetFFmpegPath overrides the ffmpeg binary path, wired from SidecarConfig.
func SetFFmpegPath(path string) {
	if path != "" {
		ffmpegPath = path
	}
}

// decoders maps a lower-cased container/format name to its decoder. Kept as
// a package-level registry, the same factory-by-name shape as the teacher's
// internal/speech/registry.Registry[T].
var decoders = map[string]ContainerDecoder{
	"wav":  decodeWAV,
	"wave": decodeWAV,
	"mp3":  decodeMP3,
	"ogg":  decodeViaFFmpeg,
	"flac": decodeViaFFmpeg,
	"aac":  decodeViaFFmpeg,
	"m4a":  decodeViaFFmpeg,
	"mp4":  decodeViaFFmpeg,
	"webm": decodeViaFFmpeg,
}

// DecodeContainer decodes a full encoded audio blob to canonical 16kHz mono
// float64 audio given a caller-supplied format hint, falling back to byte
// sniffing when the hint is empty or unrecognised. Unknown containers are
// rejected with a *errs.Decode error.
func DecodeContainer(ctx context.Context, data []byte, formatHint string) ([]float64, error) {
	name := strings.ToLower(strings.TrimSpace(formatHint))
	if name == "" {
		name = sniff(data)
	}

	dec, ok := decoders[name]
	if !ok {
		if sniffed := sniff(data); sniffed != "" {
			name = sniffed
			dec, ok = decoders[name]
		}
	}
	if !ok {
		return nil, errs.NewDecode(fmt.Sprintf("unknown container format %q", name), nil)
	}
	samples, err := dec(ctx, data)
	if err != nil {
		return nil, errs.NewDecode(fmt.Sprintf("%s decode", name), err)
	}
	return samples, nil
}

// sniff identifies a container by its magic bytes. It recognises the
// formats this package natively decodes plus the ones delegated to ffmpeg;
// anything else returns "" so DecodeContainer rejects it.
func sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 4 && (data[0] == 0xFF && data[1]&0xE0 == 0xE0):
		return "mp3"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "mp3"
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return "ogg"
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return "flac"
	case len(data) >= 4 && string(data[0:4]) == "\x1A\x45\xDF\xA3":
		return "webm"
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		return "m4a"
	default:
		return ""
	}
}

// decodeWAV decodes a WAV container via github.com/go-audio/wav, mixing
// down to mono and resampling to the canonical rate.
func decodeWAV(_ context.Context, data []byte) ([]float64, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	return canonicalizeIntBuffer(buf)
}

// canonicalizeIntBuffer mixes a go-audio IntBuffer down to mono float64 and
// resamples it to the canonical rate.
func canonicalizeIntBuffer(buf *goaudio.IntBuffer) ([]float64, error) {
	fbuf := buf.AsFloatBuffer()
	channels := fbuf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	var mono []float64
	if channels == 1 {
		mono = fbuf.Data
	} else {
		n := len(fbuf.Data) / channels
		mono = make([]float64, n)
		for i := 0; i < n; i++ {
			var sum float64
			for c := 0; c < channels; c++ {
				sum += fbuf.Data[i*channels+c]
			}
			mono[i] = sum / float64(channels)
		}
	}

	return ToCanonical(mono, fbuf.Format.SampleRate), nil
}

// decodeMP3 decodes an MP3 blob via github.com/tosone/minimp3.
func decodeMP3(_ context.Context, data []byte) ([]float64, error) {
	dec, err := minimp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	pcm, err := dec.ReadAll()
	if err != nil {
		return nil, err
	}

	samples := DecodePCM16(pcm, dec.Channels())
	return ToCanonical(samples, dec.SampleRate()), nil
}

// decodeViaFFmpeg shells out to ffmpeg to convert an arbitrary container
// (ogg, flac, aac, m4a, mp4, webm) to raw s16le mono PCM at the canonical
// rate, the same subprocess-pipe pattern as
// other_examples/fa6b5e58_naozine-zbor__internal-asr-vad.go.go and the
// teacher's piper.go subprocess codec binary.
func decodeViaFFmpeg(ctx context.Context, data []byte) ([]float64, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-ac", "1",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}

	return DecodePCM16Mono(stdout.Bytes()), nil
}
