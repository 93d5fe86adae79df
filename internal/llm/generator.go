// Package llm generates persona replies for utterances the canned
// router declined. Backends are non-streaming at this boundary: the
// orchestrator needs a whole reply before synthesis starts.
package llm

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

// Turn is one prior exchange in the conversation window.
type Turn struct {
	Role string // user, assistant
	Text string
}

// Request carries everything a backend needs for one reply.
type Request struct {
	System      string
	History     []Turn
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces one complete reply for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New constructs the configured generator.
func New(cfg config.LLMConfig, logger *slog.Logger) Generator {
	switch cfg.Mode {
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model)
	default:
		logger.Info("llm running in mock mode")
		return NewMockGenerator()
	}
}

// fallbackLines keep the conversation alive when the backend is down.
// Spoken in the persona's register so the failure stays in character.
var fallbackLines = []string{
	"Well, that's a question that deserves more thought than I can give it right now. So it goes.",
	"You know, I'd tell you what I think, but my thoughts seem to have come unstuck in time.",
	"Listen: sometimes the wisest answer is admitting you don't have one handy.",
	"Hmm. Ask me again. Even an old machine deserves a second chance.",
}

// Fallback returns a canned in-persona reply for use when Generate
// fails. Callers should log the original error first.
func Fallback() string {
	return fallbackLines[rand.Intn(len(fallbackLines))]
}
