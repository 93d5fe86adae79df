package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oraclelabs/oracle-voice/internal/config"
)

// Chain tries engines in order until one produces audio. Successful
// results are cached by normalized text, which makes repeated canned
// responses effectively free.
type Chain struct {
	engines []Synthesizer
	cache   *lru.Cache[string, Result]
	logger  *slog.Logger
}

// New builds the engine chain from configuration: neural first when
// enabled, then the offline synthesizer, then the mock as a terminal
// engine in mock-only deployments.
func New(cfg config.TTSConfig, logger *slog.Logger) (*Chain, error) {
	var engines []Synthesizer

	if cfg.Neural.Enabled {
		engines = append(engines, NewNeuralSynth(cfg.Neural, cfg.SampleRate))
	}
	if cfg.Offline.Command != "" {
		offline, err := NewOfflineSynth(cfg.Offline, cfg.SampleRate, logger)
		if err != nil {
			logger.Warn("offline tts unavailable", slog.String("error", err.Error()))
		} else {
			engines = append(engines, offline)
		}
	}
	if len(engines) == 0 {
		logger.Info("tts running in mock mode")
		engines = append(engines, NewMockSynth(cfg.SampleRate))
	}

	return NewChain(engines, cfg.CacheSize, logger)
}

// NewChain wires an explicit engine list, used directly by tests.
func NewChain(engines []Synthesizer, cacheSize int, logger *slog.Logger) (*Chain, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("tts chain needs at least one engine")
	}
	c := &Chain{engines: engines, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[string, Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("tts cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Engines lists the chain's engine names in failover order.
func (c *Chain) Engines() []string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name()
	}
	return names
}

// Synthesize produces audio for text, consulting the cache first and
// walking the chain on miss. Only ErrAllEnginesFailed escapes;
// individual engine failures are logged and absorbed.
func (c *Chain) Synthesize(ctx context.Context, text string) (Result, error) {
	key := cacheKey(text)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	var lastErr error
	for _, engine := range c.engines {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		result, err := engine.Synthesize(ctx, text)
		if err != nil {
			lastErr = err
			c.logger.Warn("tts engine failed",
				slog.String("engine", engine.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if len(result.Samples) == 0 {
			lastErr = fmt.Errorf("engine %s produced no audio", engine.Name())
			continue
		}
		if c.cache != nil {
			c.cache.Add(key, result)
		}
		return result, nil
	}
	if lastErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAllEnginesFailed, lastErr)
	}
	return Result{}, ErrAllEnginesFailed
}

func cacheKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
