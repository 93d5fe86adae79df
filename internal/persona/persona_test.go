package persona

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadBuiltinDefault(t *testing.T) {
	r, err := Load(config.PersonaConfig{Directory: filepath.Join(t.TempDir(), "missing"), Default: "vonnegut"}, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := r.Default()
	if p.Name != "vonnegut" {
		t.Fatalf("default = %q", p.Name)
	}
	if !strings.Contains(p.SystemPrompt, "So it goes") {
		t.Fatal("built-in prompt lost its register")
	}
	if p.Greeting == "" {
		t.Fatal("built-in persona has no greeting")
	}
}

func TestLoadOverlaysDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `
name: twain
display_name: Mark Twain
system_prompt: You are Mark Twain. Be droll.
greeting: Reports of my death were greatly exaggerated.
voice_hints: [male, mature]
`
	if err := os.WriteFile(filepath.Join(dir, "twain.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write persona: %v", err)
	}

	r, err := Load(config.PersonaConfig{Directory: dir, Default: "twain"}, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Default().DisplayName != "Mark Twain" {
		t.Fatalf("default = %+v", r.Default())
	}
	if _, ok := r.Get("vonnegut"); !ok {
		t.Fatal("built-in persona should survive overlay")
	}
	if len(r.Names()) != 2 {
		t.Fatalf("names = %v", r.Names())
	}
}

func TestLoadRejectsUnknownDefault(t *testing.T) {
	if _, err := Load(config.PersonaConfig{Directory: t.TempDir(), Default: "nobody"}, testLogger()); err == nil {
		t.Fatal("expected error for unknown default persona")
	}
}

func TestLoadRejectsPersonaWithoutPrompt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644); err != nil {
		t.Fatalf("write persona: %v", err)
	}
	if _, err := Load(config.PersonaConfig{Directory: dir, Default: "vonnegut"}, testLogger()); err == nil {
		t.Fatal("expected error for persona without prompt")
	}
}
