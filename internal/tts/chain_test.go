package tts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSynth struct {
	name  string
	err   error
	calls int
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Samples: make([]float32, 100), SampleRate: 22050, Engine: f.name}, nil
}

func TestChainFailsOverToSecondEngine(t *testing.T) {
	broken := &fakeSynth{name: "broken", err: errors.New("engine down")}
	working := &fakeSynth{name: "working"}
	chain, err := NewChain([]Synthesizer{broken, working}, 0, testLogger())
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}

	result, err := chain.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if result.Engine != "working" {
		t.Fatalf("engine = %q", result.Engine)
	}
	if broken.calls != 1 || working.calls != 1 {
		t.Fatalf("calls = %d/%d", broken.calls, working.calls)
	}
}

func TestChainAllEnginesFailed(t *testing.T) {
	chain, err := NewChain([]Synthesizer{
		&fakeSynth{name: "a", err: errors.New("down")},
		&fakeSynth{name: "b", err: errors.New("also down")},
	}, 0, testLogger())
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}

	_, err = chain.Synthesize(context.Background(), "hello")
	if !errors.Is(err, ErrAllEnginesFailed) {
		t.Fatalf("err = %v, want ErrAllEnginesFailed", err)
	}
}

func TestChainCachesByNormalizedText(t *testing.T) {
	engine := &fakeSynth{name: "only"}
	chain, err := NewChain([]Synthesizer{engine}, 8, testLogger())
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}

	ctx := context.Background()
	if _, err := chain.Synthesize(ctx, "So it goes."); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if _, err := chain.Synthesize(ctx, "  so IT   goes."); err != nil {
		t.Fatalf("synthesize cached: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("engine called %d times, want cache hit", engine.calls)
	}
}

func TestChainRequiresAnEngine(t *testing.T) {
	if _, err := NewChain(nil, 0, testLogger()); err == nil {
		t.Fatal("expected error for empty chain")
	}
}

func TestNewFallsBackToMock(t *testing.T) {
	chain, err := New(config.TTSConfig{SampleRate: 22050, CacheSize: 4}, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	names := chain.Engines()
	if len(names) != 1 || names[0] != "mock" {
		t.Fatalf("engines = %v", names)
	}

	result, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if result.SampleRate != 22050 || len(result.Samples) == 0 {
		t.Fatalf("result = %d samples at %d Hz", len(result.Samples), result.SampleRate)
	}
}

func TestScoreVoice(t *testing.T) {
	cases := []struct {
		voice Voice
		want  int
	}{
		{Voice{ID: "sapi5.david", Name: "Microsoft David Desktop - Male"}, 6},
		{Voice{ID: "com.apple.Fred", Name: "Fred"}, 2},
		{Voice{ID: "zira", Name: "Microsoft Zira Desktop - Female"}, 1},
		{Voice{ID: "novelty.bells", Name: "Bells"}, -2},
	}
	for _, tc := range cases {
		if got := scoreVoice(tc.voice); got != tc.want {
			t.Errorf("scoreVoice(%q) = %d, want %d", tc.voice.Name, got, tc.want)
		}
	}
}

func TestSelectVoicePrefersHighestScore(t *testing.T) {
	voices := []Voice{
		{ID: "zira", Name: "Microsoft Zira Desktop - Female"},
		{ID: "david", Name: "Microsoft David Desktop - Male"},
		{ID: "bells", Name: "Bells"},
	}
	best, ok := selectVoice(voices)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.ID != "david" {
		t.Fatalf("selected %q", best.ID)
	}

	if _, ok := selectVoice(nil); ok {
		t.Fatal("empty list must not select")
	}
}

func TestSelectVoiceTieKeepsFirst(t *testing.T) {
	voices := []Voice{
		{ID: "first", Name: "Plain One"},
		{ID: "second", Name: "Plain Two"},
	}
	best, _ := selectVoice(voices)
	if best.ID != "first" {
		t.Fatalf("tie selected %q", best.ID)
	}
}
