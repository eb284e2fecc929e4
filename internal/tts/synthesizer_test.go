package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eleven-am/voice-backend/internal/engine"
)

type fakeTTS struct {
	id       string
	device   string
	loaded   bool
	failWith error
}

func (f *fakeTTS) Load(context.Context) error   { f.loaded = true; return nil }
func (f *fakeTTS) Unload(context.Context) error { f.loaded = false; return nil }
func (f *fakeTTS) IsLoaded() bool               { return f.loaded }
func (f *fakeTTS) SampleRate() int              { return 24000 }

func (f *fakeTTS) SynthesizeStream(ctx context.Context, text, voiceID string, speed float64, cancel <-chan struct{}) (<-chan engine.PCMChunk, <-chan error) {
	out := make(chan engine.PCMChunk, 4)
	errCh := make(chan error, 1)

	if f.failWith != nil {
		close(out)
		errCh <- f.failWith
		return out, errCh
	}

	go func() {
		defer close(out)
		for i := 0; i < 3; i++ {
			select {
			case <-cancel:
				return
			case out <- engine.PCMChunk{Samples: []float64{float64(i)}}:
			}
		}
	}()
	return out, errCh
}

func newFakeTTSFactory(created *[]string) engine.Factory[*fakeTTS] {
	return func(_ context.Context, engineID, device string) (*fakeTTS, error) {
		*created = append(*created, engineID+"@"+device)
		return &fakeTTS{id: engineID, device: device}, nil
	}
}

func drainPCM(t *testing.T, out <-chan engine.PCMChunk, errCh <-chan error, timeout time.Duration) (frames int, err error) {
	t.Helper()
	deadline := time.After(timeout)
	for done := false; !done; {
		select {
		case _, ok := <-out:
			if !ok {
				done = true
				continue
			}
			frames++
		case <-deadline:
			t.Fatalf("timed out draining synthesis output")
		}
	}
	select {
	case e := <-errCh:
		err = e
	default:
	}
	return frames, err
}

func TestSynthesizeStreamsFramesForShortText(t *testing.T) {
	var created []string
	m := engine.NewManager[*fakeTTS](newFakeTTSFactory(&created), 0, nil, "cuda")
	s := New(m, "xtts")

	out, errCh := s.Synthesize(context.Background(), "hello world", "voice-1", 1.0, nil)
	frames, err := drainPCM(t, out, errCh, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames != 3 {
		t.Fatalf("frames = %d, want 3", frames)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	var created []string
	m := engine.NewManager[*fakeTTS](newFakeTTSFactory(&created), 0, nil, "cuda")
	s := New(m, "xtts")

	_, errCh := s.Synthesize(context.Background(), "   ", "voice-1", 1.0, nil)
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected a SynthNoText error")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an immediate error for empty text")
	}
}

func TestSynthesizeFallsBackOnOOM(t *testing.T) {
	var created []string
	factory := func(_ context.Context, engineID, device string) (*fakeTTS, error) {
		created = append(created, engineID+"@"+device)
		f := &fakeTTS{id: engineID, device: device}
		if device != "cpu" {
			f.failWith = errors.New("CUDA out of memory")
		}
		return f, nil
	}
	m := engine.NewManager[*fakeTTS](factory, 0, []string{"xtts"}, "cuda")
	s := New(m, "xtts")

	out, errCh := s.Synthesize(context.Background(), "hello", "voice-1", 1.0, nil)
	frames, err := drainPCM(t, out, errCh, time.Second)
	if err != nil {
		t.Fatalf("unexpected error after CPU fallback: %v", err)
	}
	if frames != 3 {
		t.Fatalf("frames = %d, want 3 after falling back to cpu", frames)
	}
	if m.CurrentDevice() != "cpu" {
		t.Fatalf("CurrentDevice() = %q, want cpu", m.CurrentDevice())
	}
}
