package vad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/oraclelabs/oracle-voice/internal/audio"
	"github.com/oraclelabs/oracle-voice/internal/config"
)

// modelDetector shells out to a pretrained binary speech classifier.
// The frame is handed over as a temp WAV and the command replies with
// a JSON probability on stdout.
type modelDetector struct {
	cmd        []string
	modelPath  string
	sampleRate int
	minFrame   int
	mu         sync.Mutex
}

type modelResult struct {
	SpeechProbability float64 `json:"speech_probability"`
}

func newModelDetector(cfg config.VADConfig) (*modelDetector, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse vad command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("vad command is empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("vad command not found: %w", err)
	}
	return &modelDetector{
		cmd:        args,
		modelPath:  cfg.ModelPath,
		sampleRate: cfg.SampleRate,
		minFrame:   cfg.SampleRate * cfg.FrameDurationMS / 1000,
	}, nil
}

func (d *modelDetector) Detect(ctx context.Context, frame []float32) (float64, error) {
	if len(frame) == 0 || len(frame) < d.minFrame {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	file, err := os.CreateTemp("", "oracle_vad_*.wav")
	if err != nil {
		return 0, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WriteWav(file, frame, d.sampleRate); err != nil {
		return 0, err
	}

	args := append([]string{}, d.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if d.modelPath != "" {
		args = append(args, "--model", d.modelPath)
	}

	command := exec.CommandContext(ctx, d.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return 0, fmt.Errorf("vad command failed: %w: %s", err, stderr.String())
	}

	var resp modelResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return 0, fmt.Errorf("decode vad response: %w", err)
	}
	if resp.SpeechProbability < 0 || resp.SpeechProbability > 1 {
		return 0, fmt.Errorf("vad probability out of range: %f", resp.SpeechProbability)
	}
	return resp.SpeechProbability, nil
}
