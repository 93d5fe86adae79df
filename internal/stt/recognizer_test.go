package stt

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewDefaultsToMock(t *testing.T) {
	r, err := New(config.STTConfig{Mode: "mock"}, discardLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := r.(*mockRecognizer); !ok {
		t.Fatalf("recognizer type = %T", r)
	}
}

func TestNewExecRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecRecognizer(config.STTConfig{Mode: "exec"}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestMockTranscribe(t *testing.T) {
	r := NewMockRecognizer()

	text, err := r.Transcribe(context.Background(), make([]float32, 16000), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !strings.Contains(text, "1.0s") {
		t.Fatalf("text = %q", text)
	}

	text, err = r.Transcribe(context.Background(), nil, 16000)
	if err != nil {
		t.Fatalf("transcribe empty: %v", err)
	}
	if text != "" {
		t.Fatalf("empty utterance should produce no text, got %q", text)
	}
}

func TestMockTranscribeHonorsCancellation(t *testing.T) {
	r := NewMockRecognizer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Transcribe(ctx, make([]float32, 100), 16000); err == nil {
		t.Fatal("expected context error")
	}
}
