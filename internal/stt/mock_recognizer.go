package stt

import (
	"context"
	"fmt"
	"time"
)

// mockRecognizer returns a deterministic placeholder transcript. Useful
// for demos and tests that exercise the pipeline without a real model.
type mockRecognizer struct{}

func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

func (m *mockRecognizer) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if len(samples) == 0 || sampleRate <= 0 {
		return "", nil
	}
	dur := time.Duration(float64(len(samples)) / float64(sampleRate) * float64(time.Second))
	return fmt.Sprintf("mock transcription of %.1fs of audio", dur.Seconds()), nil
}
