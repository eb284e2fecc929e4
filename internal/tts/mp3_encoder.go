package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/eleven-am/voice-backend/internal/audio"
)

// mp3FFmpegPath is the subprocess binary used for CBR MP3 encode; no
// Go-native MP3 encoder appears anywhere in the retrieval pack.
var mp3FFmpegPath = "ffmpeg"

// MP3Encoder streams PCM16 into a long-lived ffmpeg process and emits
// whatever bytes ffmpeg has flushed to stdout since the last Push, rather
// than waiting for the whole utterance: the encoder controls its own
// frame boundaries instead of the caller.
type MP3Encoder struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu   sync.Mutex
	out  bytes.Buffer
	done chan struct{}

	closed bool
}

// NewMP3Encoder starts the ffmpeg subprocess for CBR 128kbps mono MP3 at
// sampleRate.
func NewMP3Encoder(ctx context.Context, sampleRate int) (*MP3Encoder, error) {
	cmd := exec.CommandContext(ctx, mp3FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le", "-ar", fmt.Sprintf("%d", sampleRate), "-ac", "1",
		"-i", "pipe:0",
		"-f", "mp3", "-b:a", "128k", "-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	e := &MP3Encoder{cmd: cmd, stdin: stdin, done: make(chan struct{})}
	go e.pump(stdout)
	return e, nil
}

// pump copies ffmpeg's stdout into the internal buffer until it closes.
func (e *MP3Encoder) pump(stdout io.ReadCloser) {
	defer close(e.done)
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			e.mu.Lock()
			e.out.Write(buf[:n])
			e.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Push feeds one block of PCM16 into ffmpeg's stdin and returns any bytes
// emitted so far.
func (e *MP3Encoder) Push(samples []float64) ([]byte, error) {
	pcm := audio.EncodePCM16Mono(samples)
	if _, err := e.stdin.Write(pcm); err != nil {
		return nil, err
	}
	return e.drain(), nil
}

func (e *MP3Encoder) drain() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out.Len() == 0 {
		return nil
	}
	b := append([]byte(nil), e.out.Bytes()...)
	e.out.Reset()
	return b
}

// Flush closes stdin (ffmpeg flushes and exits), waits for the final
// bytes, and returns them. A second call is a no-op.
func (e *MP3Encoder) Flush() ([]byte, error) {
	if e.closed {
		return nil, nil
	}
	e.closed = true

	if err := e.stdin.Close(); err != nil {
		return nil, err
	}
	<-e.done
	_ = e.cmd.Wait()
	return e.drain(), nil
}

// Close is idempotent; it closes ffmpeg's stdin, waits for the subprocess
// to exit, and discards any encoded bytes not yet returned by Push.
func (e *MP3Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	_ = e.stdin.Close()
	<-e.done
	return e.cmd.Wait()
}
