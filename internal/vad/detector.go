// Package vad classifies audio frames as speech or silence and tracks
// utterance boundaries for the session orchestrator.
package vad

import (
	"context"
	"log/slog"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

// Detector scores one fixed-duration audio frame with a speech
// probability in [0, 1]. Frames shorter than the configured duration
// score 0.
type Detector interface {
	Detect(ctx context.Context, frame []float32) (float64, error)
}

// New builds the configured detector. Model mode wraps the external
// classifier with a permanent energy fallback: if the model cannot be
// constructed the energy strategy takes over for the process lifetime
// rather than failing sessions.
func New(cfg config.VADConfig, logger *slog.Logger) Detector {
	energy := newEnergyDetector(cfg)
	if cfg.Mode != "model" {
		return energy
	}
	model, err := newModelDetector(cfg)
	if err != nil {
		logger.Warn("vad model unavailable, using energy detector",
			slog.String("error", err.Error()))
		return energy
	}
	logger.Info("vad model detector initialized")
	return &fallbackDetector{model: model, energy: energy, logger: logger}
}

// fallbackDetector prefers the model score but substitutes the energy
// score on any per-call model error.
type fallbackDetector struct {
	model  Detector
	energy Detector
	logger *slog.Logger
}

func (d *fallbackDetector) Detect(ctx context.Context, frame []float32) (float64, error) {
	prob, err := d.model.Detect(ctx, frame)
	if err != nil {
		d.logger.Warn("vad model error, falling back to energy",
			slog.String("error", err.Error()))
		return d.energy.Detect(ctx, frame)
	}
	return prob, nil
}
