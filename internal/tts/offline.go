package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/oraclelabs/oracle-voice/internal/audio"
	"github.com/oraclelabs/oracle-voice/internal/config"
)

// offlineSynth drives an OS speech synthesizer through a command that
// writes a WAV file. Slow but dependable, so it sits last in the chain.
type offlineSynth struct {
	cmd        []string
	cfg        config.TTSOfflineConfig
	voice      string
	outputRate int
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewOfflineSynth(cfg config.TTSOfflineConfig, outputRate int, logger *slog.Logger) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse offline tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("offline tts command is empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("offline tts binary: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &offlineSynth{
		cmd:        args,
		cfg:        cfg,
		voice:      cfg.Voice,
		outputRate: outputRate,
		timeout:    timeout,
		logger:     logger,
	}
	if s.voice == "" && cfg.ListCommand != "" {
		voices, err := listVoices(cfg.ListCommand)
		if err != nil {
			logger.Warn("voice enumeration failed, using engine default",
				slog.String("error", err.Error()))
		} else if v, ok := selectVoice(voices); ok {
			s.voice = v.ID
			logger.Info("selected offline voice",
				slog.String("voice", v.Name),
				slog.Int("score", scoreVoice(v)))
		}
	}
	return s, nil
}

func (s *offlineSynth) Name() string { return "offline" }

// Synthesize shells out to the synthesizer with a hard timeout. OS
// speech engines occasionally wedge; the deadline keeps the chain
// moving when that happens.
func (s *offlineSynth) Synthesize(ctx context.Context, text string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.CreateTemp("", "oracle_tts_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp file: %w", err)
	}
	path := file.Name()
	file.Close()
	defer os.Remove(path)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append([]string{}, s.cmd[1:]...)
	args = append(args, "--out", path)
	if s.voice != "" {
		args = append(args, "--voice", s.voice)
	}
	if s.cfg.Rate > 0 {
		args = append(args, "--rate", strconv.Itoa(s.cfg.Rate))
	}
	if s.cfg.Volume > 0 {
		args = append(args, "--volume", strconv.FormatFloat(s.cfg.Volume, 'f', 2, 64))
	}

	command := exec.CommandContext(runCtx, s.cmd[0], args...)
	command.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Result{}, fmt.Errorf("offline tts timed out after %s", s.timeout)
		}
		return Result{}, fmt.Errorf("offline tts failed: %w: %s", err, stderr.String())
	}

	samples, rate, err := audio.ReadWav(path)
	if err != nil {
		return Result{}, fmt.Errorf("offline tts output: %w", err)
	}
	if len(samples) == 0 {
		return Result{}, fmt.Errorf("offline tts produced no audio")
	}
	samples = audio.Resample(samples, rate, s.outputRate)

	return Result{Samples: samples, SampleRate: s.outputRate, Engine: s.Name()}, nil
}
