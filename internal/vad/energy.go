package vad

import (
	"context"
	"math"

	"github.com/oraclelabs/oracle-voice/internal/audio"
	"github.com/oraclelabs/oracle-voice/internal/config"
)

// energyDetector is the guaranteed-available strategy: RMS energy
// against a fixed threshold, scaled into a pseudo-probability. A cheap
// first-difference check filters low-frequency rumble that carries
// energy but no speech-band content.
type energyDetector struct {
	threshold float64
	minFrame  int
}

func newEnergyDetector(cfg config.VADConfig) *energyDetector {
	threshold := cfg.EnergyThreshold
	if threshold <= 0 {
		threshold = 0.01
	}
	return &energyDetector{
		threshold: threshold,
		minFrame:  cfg.SampleRate * cfg.FrameDurationMS / 1000,
	}
}

func (d *energyDetector) Detect(_ context.Context, frame []float32) (float64, error) {
	if len(frame) == 0 || len(frame) < d.minFrame {
		return 0, nil
	}
	rms := audio.RMS(frame)
	if rms <= d.threshold {
		return 0, nil
	}
	if highFrequencyEnergy(frame) <= 0.001 {
		return 0, nil
	}
	return math.Min(1.0, rms*10), nil
}

func highFrequencyEnergy(frame []float32) float64 {
	if len(frame) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(frame); i++ {
		diff := float64(frame[i] - frame[i-1])
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(frame)-1))
}
