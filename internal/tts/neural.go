package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oraclelabs/oracle-voice/internal/audio"
	"github.com/oraclelabs/oracle-voice/internal/config"
)

// neuralSynth calls an HTTP synthesis endpoint that returns base64
// PCM16. Output is resampled to the pipeline rate before returning.
type neuralSynth struct {
	cfg        config.TTSNeuralConfig
	outputRate int
	client     *http.Client
}

type neuralRequest struct {
	Model string `json:"model,omitempty"`
	Voice string `json:"voice,omitempty"`
	Input string `json:"input"`
}

type neuralResponse struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

func NewNeuralSynth(cfg config.TTSNeuralConfig, outputRate int) Synthesizer {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &neuralSynth{
		cfg:        cfg,
		outputRate: outputRate,
		client:     &http.Client{Timeout: timeout},
	}
}

func (n *neuralSynth) Name() string { return "neural" }

func (n *neuralSynth) Synthesize(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(neuralRequest{
		Model: n.cfg.Model,
		Voice: n.cfg.Voice,
		Input: text,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("neural tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("neural tts returned status %s", resp.Status)
	}

	var payload neuralResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode neural tts response: %w", err)
	}
	samples, err := audio.DecodePCM16(payload.Audio)
	if err != nil {
		return Result{}, fmt.Errorf("neural tts audio: %w", err)
	}
	if len(samples) == 0 {
		return Result{}, fmt.Errorf("neural tts returned no audio")
	}

	sourceRate := payload.SampleRate
	if sourceRate <= 0 {
		sourceRate = n.cfg.SampleRate
	}
	samples = audio.Resample(samples, sourceRate, n.outputRate)

	return Result{Samples: samples, SampleRate: n.outputRate, Engine: n.Name()}, nil
}
