package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oraclelabs/oracle-voice/internal/audio"
	"github.com/oraclelabs/oracle-voice/internal/config"
)

func TestNeuralSynthDecodesAndResamples(t *testing.T) {
	pcm := audio.EncodePCM16(make([]float32, 24000))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req neuralRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Input == "" {
			t.Error("empty input text")
		}
		json.NewEncoder(w).Encode(neuralResponse{Audio: pcm, SampleRate: 24000})
	}))
	defer server.Close()

	synth := NewNeuralSynth(config.TTSNeuralConfig{
		Enabled:   true,
		Endpoint:  server.URL,
		Voice:     "onyx",
		TimeoutMS: 5000,
	}, 22050)

	result, err := synth.Synthesize(context.Background(), "so it goes")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if result.SampleRate != 22050 {
		t.Fatalf("sample rate = %d", result.SampleRate)
	}
	// One second at 24 kHz resampled to 22.05 kHz.
	if got := len(result.Samples); got < 22000 || got > 22100 {
		t.Fatalf("sample count = %d", got)
	}
	if result.Engine != "neural" {
		t.Fatalf("engine = %q", result.Engine)
	}
}

func TestNeuralSynthServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	synth := NewNeuralSynth(config.TTSNeuralConfig{Endpoint: server.URL, TimeoutMS: 1000}, 22050)
	if _, err := synth.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestNeuralSynthEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(neuralResponse{Audio: "", SampleRate: 24000})
	}))
	defer server.Close()

	synth := NewNeuralSynth(config.TTSNeuralConfig{Endpoint: server.URL, TimeoutMS: 1000}, 22050)
	if _, err := synth.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty audio")
	}
}
