// Package tts turns reply text into PCM audio. Engines are arranged in
// a failover chain so a down neural endpoint degrades to the offline
// synthesizer instead of silencing the kiosk.
package tts

import (
	"context"
	"errors"
)

// Result is one synthesized utterance, already resampled to the
// pipeline's output rate.
type Result struct {
	Samples    []float32
	SampleRate int
	Engine     string
}

// Synthesizer is one engine in the chain.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (Result, error)
}

// ErrAllEnginesFailed is returned when every engine in the chain
// failed for an utterance. The session degrades to text-only output.
var ErrAllEnginesFailed = errors.New("tts: all engines failed")
