package vad

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func toneFrame(n int, freq float64, amp float32, sampleRate int) []float32 {
	frame := make([]float32, n)
	for i := range frame {
		frame[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return frame
}

func TestEnergyDetectorSilence(t *testing.T) {
	d := newEnergyDetector(testVADConfig())
	frame := make([]float32, 1600)
	prob, err := d.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if prob != 0 {
		t.Fatalf("silent frame probability = %f, want 0", prob)
	}
}

func TestEnergyDetectorShortFrameNoOp(t *testing.T) {
	d := newEnergyDetector(testVADConfig())
	frame := toneFrame(100, 440, 0.5, 16000) // far under 100 ms at 16 kHz
	prob, err := d.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if prob != 0 {
		t.Fatalf("short frame probability = %f, want 0", prob)
	}
}

func TestEnergyDetectorSpeechLikeFrame(t *testing.T) {
	d := newEnergyDetector(testVADConfig())
	frame := toneFrame(1600, 440, 0.5, 16000)
	prob, err := d.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if prob <= 0.5 {
		t.Fatalf("loud voiced frame probability = %f, want > 0.5", prob)
	}
	if prob > 1 {
		t.Fatalf("probability %f out of range", prob)
	}
}

func TestNewFallsBackWhenModelUnavailable(t *testing.T) {
	cfg := testVADConfig()
	cfg.Mode = "model"
	cfg.Command = "definitely-not-a-real-binary-oracle"
	d := New(cfg, discardLogger())
	if _, ok := d.(*energyDetector); !ok {
		t.Fatalf("expected permanent energy fallback, got %T", d)
	}
}
