package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eleven-am/voice-backend/internal/sttmodel"
)

type fakeASR struct {
	id       string
	device   string
	loaded   bool
	failWith error
}

func (f *fakeASR) Load(context.Context) error   { f.loaded = true; return nil }
func (f *fakeASR) Unload(context.Context) error { f.loaded = false; return nil }
func (f *fakeASR) IsLoaded() bool               { return f.loaded }
func (f *fakeASR) SampleRate() int              { return 16000 }
func (f *fakeASR) Transcribe(context.Context, []float64, string, bool) (*sttmodel.Transcript, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &sttmodel.Transcript{Text: "ok", Model: f.id}, nil
}

func newFakeFactory(created *[]string) Factory[*fakeASR] {
	return func(_ context.Context, engineID, device string) (*fakeASR, error) {
		*created = append(*created, engineID+"@"+device)
		return &fakeASR{id: engineID, device: device}, nil
	}
}

func TestManagerAcquireLoadsOnce(t *testing.T) {
	var created []string
	m := NewManager[*fakeASR](newFakeFactory(&created), 0, nil, "cuda")

	w := m.Get("whisper")
	inst1, rel1, err := w.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	inst2, rel2, err := w.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if inst1 != inst2 {
		t.Fatalf("expected the same instance across acquisitions")
	}
	if len(created) != 1 {
		t.Fatalf("expected exactly one creation, got %d: %v", len(created), created)
	}
	if w.Refcount() != 2 {
		t.Fatalf("Refcount() = %d, want 2", w.Refcount())
	}
	rel1()
	rel2()
	if w.Refcount() != 0 {
		t.Fatalf("Refcount() after release = %d, want 0", w.Refcount())
	}
}

func TestManagerIdleTTLUnloads(t *testing.T) {
	var created []string
	m := NewManager[*fakeASR](newFakeFactory(&created), 20*time.Millisecond, nil, "cuda")

	w := m.Get("whisper")
	_, rel, err := w.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	rel()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if len(m.ListLoaded()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("engine was not idle-unloaded within deadline")
}

func TestManagerTryFallbackChain(t *testing.T) {
	var created []string
	m := NewManager[*fakeASR](newFakeFactory(&created), 0, []string{"whisper", "whisper-small"}, "cuda")

	retry := m.TryFallback(context.Background(), "whisper")
	if !retry {
		t.Fatalf("expected retry=true, fallback chain has an untried entry")
	}

	w := m.Get("whisper-small")
	if _, _, err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestManagerCPUFallbackTransition(t *testing.T) {
	var created []string
	m := NewManager[*fakeASR](newFakeFactory(&created), 0, []string{"whisper"}, "cuda")

	retry := m.TryFallback(context.Background(), "whisper")
	if !retry {
		t.Fatalf("expected retry=true, CPU fallback available")
	}
	if m.CurrentDevice() != "cpu" {
		t.Fatalf("CurrentDevice() = %q, want cpu", m.CurrentDevice())
	}

	retry = m.TryFallback(context.Background(), "whisper")
	if retry {
		t.Fatalf("expected retry=false, CPU fallback already attempted and chain exhausted")
	}
}

func TestIsOOMError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("CUDA out of memory"), true},
		{errors.New("CUBLAS_STATUS_ALLOC_FAILED"), false},
		{errors.New("failed to allocate buffer"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsOOMError(c.err); got != c.want {
			t.Errorf("IsOOMError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
