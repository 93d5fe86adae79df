package tts

import (
	"context"
	"math"
)

// mockSynth emits a short sine tone sized to the text, so downstream
// plumbing sees realistic sample counts without a speech engine.
type mockSynth struct {
	sampleRate int
}

func NewMockSynth(sampleRate int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate}
}

func (m *mockSynth) Name() string { return "mock" }

func (m *mockSynth) Synthesize(ctx context.Context, text string) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	// ~60 ms of tone per character, clamped to keep tests fast.
	n := len(text) * m.sampleRate * 60 / 1000
	if n < m.sampleRate/10 {
		n = m.sampleRate / 10
	}
	if n > m.sampleRate*10 {
		n = m.sampleRate * 10
	}
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(2*math.Pi*220*float64(i)/float64(m.sampleRate)))
	}
	return Result{Samples: samples, SampleRate: m.sampleRate, Engine: m.Name()}, nil
}
