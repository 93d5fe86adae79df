// Package stt is the transcription collaborator boundary: the
// orchestrator hands it a complete utterance and gets text or nothing.
package stt

import (
	"context"
	"log/slog"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

// Recognizer abstracts STT backends. An empty string with a nil error
// means the backend produced no usable text.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// New constructs the configured recognizer.
func New(cfg config.STTConfig, logger *slog.Logger) (Recognizer, error) {
	switch cfg.Mode {
	case "exec":
		return NewExecRecognizer(cfg)
	default:
		logger.Info("stt running in mock mode")
		return NewMockRecognizer(), nil
	}
}
