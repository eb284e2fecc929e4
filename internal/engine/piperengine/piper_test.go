package piperengine

import (
	"context"
	"testing"
)

func TestNewDefaultsBinaryPath(t *testing.T) {
	e := New("", "./models/en_US-amy-medium.onnx")
	if e.binaryPath != "piper" {
		t.Errorf("binaryPath = %q, want default piper", e.binaryPath)
	}
}

func TestSampleRateMatchesTTSPipeline(t *testing.T) {
	e := New("piper", "./models/en_US-amy-medium.onnx")
	if e.SampleRate() != 24000 {
		t.Errorf("SampleRate() = %d, want 24000", e.SampleRate())
	}
}

func TestLoadUnloadTogglesIsLoaded(t *testing.T) {
	e := New("piper", "./models/en_US-amy-medium.onnx")
	if e.IsLoaded() {
		t.Fatal("expected not loaded initially")
	}
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !e.IsLoaded() {
		t.Fatal("expected loaded after Load")
	}
	if err := e.Unload(context.Background()); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if e.IsLoaded() {
		t.Fatal("expected not loaded after Unload")
	}
}

func TestSynthesizeStreamReportsMissingBinary(t *testing.T) {
	e := New("/nonexistent/piper-binary-xyz", "./models/en_US-amy-medium.onnx")
	out, errCh := e.SynthesizeStream(context.Background(), "hello", "default", 1.0, nil)

	for range out {
		t.Fatal("did not expect any PCM chunks when the binary is missing")
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error for a missing piper binary")
		}
	default:
		t.Fatal("expected an error on errCh after out closed")
	}
}
