package audio

import "encoding/binary"

// DecodePCM16Mono converts little-endian signed 16-bit PCM into canonical
// float64 samples in [-1, 1]. Dividing by 32768 (not 32767) keeps the full
// int16 range within [-1, 1): -32768 maps to exactly -1.
func DecodePCM16Mono(pcm []byte) []float64 {
	n := len(pcm) / 2
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		u := binary.LittleEndian.Uint16(pcm[i*2:])
		out[i] = float64(int16(u)) / 32768.0
	}
	return out
}

// DecodePCM16Stereo converts interleaved little-endian signed 16-bit stereo
// PCM into canonical mono float64 samples by averaging the two channels.
func DecodePCM16Stereo(pcm []byte) []float64 {
	frame := 4 // 2 channels * 2 bytes
	n := len(pcm) / frame
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		off := i * frame
		left := float64(int16(binary.LittleEndian.Uint16(pcm[off:]))) / 32768.0
		right := float64(int16(binary.LittleEndian.Uint16(pcm[off+2:]))) / 32768.0
		out[i] = (left + right) / 2
	}
	return out
}

// EncodePCM16Mono converts canonical float64 samples back to little-endian
// signed 16-bit PCM, clamping to the representable range.
func EncodePCM16Mono(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodePCM16 decodes PCM16 audio at the given channel count (1 or 2) into
// canonical mono float64 samples.
func DecodePCM16(pcm []byte, channels int) []float64 {
	if channels == 2 {
		return DecodePCM16Stereo(pcm)
	}
	return DecodePCM16Mono(pcm)
}
