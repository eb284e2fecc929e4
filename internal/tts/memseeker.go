package tts

import (
	"fmt"
	"io"
)

// memWriteSeeker is an in-memory io.WriteSeeker, used to let go-audio/wav's
// Encoder (which needs to seek back and patch its header once the final
// size is known) write into a byte slice instead of a file.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case io.SeekStart:
		newPos = int(offset)
	case io.SeekCurrent:
		newPos = m.pos + int(offset)
	case io.SeekEnd:
		newPos = len(m.buf) + int(offset)
	default:
		return 0, fmt.Errorf("memWriteSeeker: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("memWriteSeeker: negative seek position")
	}
	m.pos = newPos
	return int64(newPos), nil
}
