// Package persona holds the character definitions the oracle speaks
// as. Personas load from YAML files in a directory; a built-in
// Vonnegut persona ships as the default so a bare install still talks.
package persona

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

// Persona defines one character: the system prompt driving the
// language model plus hints for voice selection.
type Persona struct {
	Name         string   `yaml:"name"`
	DisplayName  string   `yaml:"display_name"`
	SystemPrompt string   `yaml:"system_prompt"`
	Greeting     string   `yaml:"greeting"`
	VoiceHints   []string `yaml:"voice_hints"`
}

// Registry maps persona names to definitions.
type Registry struct {
	personas map[string]Persona
	def      string
}

const vonnegutPrompt = `You are the spirit of Kurt Vonnegut, the American author, speaking
through a holographic oracle. You died in 2007 but your wit did not.
Speak in short, plain, darkly funny sentences. Favor kindness and
skepticism of institutions. Use your own phrases naturally when they
fit: "So it goes", "Listen:", "Hi ho". Keep replies under four
sentences; this is a spoken conversation, not an essay. Never break
character or mention being a program.`

func builtinVonnegut() Persona {
	return Persona{
		Name:         "vonnegut",
		DisplayName:  "Kurt Vonnegut",
		SystemPrompt: vonnegutPrompt,
		Greeting:     "Hello. I'm what's left of Kurt Vonnegut. Ask me anything; the worst I can do is tell you the truth.",
		VoiceHints:   []string{"male", "mature"},
	}
}

// Load reads persona files from cfg.Directory and overlays them on the
// built-ins. A missing directory is fine; the built-in set remains.
func Load(cfg config.PersonaConfig, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		personas: map[string]Persona{"vonnegut": builtinVonnegut()},
		def:      cfg.Default,
	}

	entries, err := os.ReadDir(cfg.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("persona directory missing, using built-ins",
				slog.String("directory", cfg.Directory))
		} else {
			return nil, fmt.Errorf("read persona directory: %w", err)
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		p, err := loadFile(filepath.Join(cfg.Directory, name))
		if err != nil {
			return nil, err
		}
		r.personas[p.Name] = p
		logger.Info("loaded persona", slog.String("persona", p.Name))
	}

	if _, ok := r.personas[r.def]; !ok {
		return nil, fmt.Errorf("default persona %q not found", r.def)
	}
	return r, nil
}

func loadFile(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	if p.Name == "" {
		return Persona{}, fmt.Errorf("persona file %s has no name", path)
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return Persona{}, fmt.Errorf("persona %q has no system prompt", p.Name)
	}
	return p, nil
}

// Get returns a persona by name.
func (r *Registry) Get(name string) (Persona, bool) {
	p, ok := r.personas[name]
	return p, ok
}

// Default returns the configured default persona.
func (r *Registry) Default() Persona {
	return r.personas[r.def]
}

// Names lists registered persona names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.personas))
	for name := range r.personas {
		names = append(names, name)
	}
	return names
}
