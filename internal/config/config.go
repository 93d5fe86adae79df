package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	VAD         VADConfig        `yaml:"vad"`
	STT         STTConfig        `yaml:"stt"`
	LLM         LLMConfig        `yaml:"llm"`
	TTS         TTSConfig        `yaml:"tts"`
	FAQ         FAQConfig        `yaml:"faq"`
	Session     SessionConfig    `yaml:"session"`
	EventStore  EventStoreConfig `yaml:"event_store"`
	Persona     PersonaConfig    `yaml:"persona"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type VADConfig struct {
	Mode                string  `yaml:"mode"` // model, energy
	Command             string  `yaml:"command"`
	ModelPath           string  `yaml:"model_path"`
	SampleRate          int     `yaml:"sample_rate"`
	FrameDurationMS     int     `yaml:"frame_duration_ms"`
	Threshold           float64 `yaml:"threshold"`
	EnergyThreshold     float64 `yaml:"energy_threshold"`
	HangoverMS          int     `yaml:"hangover_ms"`
	MinSpeechDurationMS int     `yaml:"min_speech_duration_ms"`
	MaxSpeechDurationMS int     `yaml:"max_speech_duration_ms"`
}

type STTConfig struct {
	Mode     string `yaml:"mode"` // mock, exec
	Command  string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Language string `yaml:"language"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // mock, ollama
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type TTSConfig struct {
	SampleRate     int            `yaml:"sample_rate"`
	CacheSize      int            `yaml:"cache_size"`
	Neural         TTSNeuralConfig  `yaml:"neural"`
	Offline        TTSOfflineConfig `yaml:"offline"`
}

type TTSNeuralConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

type TTSOfflineConfig struct {
	Command       string  `yaml:"command"`
	ListCommand   string  `yaml:"list_command"`
	Voice         string  `yaml:"voice"` // empty: heuristic selection
	Rate          int     `yaml:"rate"`  // words per minute
	Volume        float64 `yaml:"volume"`
	TimeoutMS     int     `yaml:"timeout_ms"`
}

type FAQConfig struct {
	DatabasePath        string  `yaml:"database_path"`
	TranscriptPath      string  `yaml:"transcript_path"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxEntries          int     `yaml:"max_entries"`
}

type SessionConfig struct {
	MaxHistory  int `yaml:"max_history"`
	PingTimeout int `yaml:"ping_timeout_ms"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type PersonaConfig struct {
	Directory string `yaml:"directory"`
	Default   string `yaml:"default"`
}

func Default() Config {
	return Config{
		RuntimeName: "oracle-voice",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 7081,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		VAD: VADConfig{
			Mode:                "energy",
			SampleRate:          16000,
			FrameDurationMS:     100,
			Threshold:           0.5,
			EnergyThreshold:     0.01,
			HangoverMS:          1000,
			MinSpeechDurationMS: 500,
			MaxSpeechDurationMS: 30000,
		},
		STT: STTConfig{
			Mode:     "mock",
			Language: "en",
		},
		LLM: LLMConfig{
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   150,
			Temperature: 0.7,
		},
		TTS: TTSConfig{
			SampleRate: 22050,
			CacheSize:  32,
			Neural: TTSNeuralConfig{
				Enabled:    false,
				Endpoint:   "http://localhost:8300",
				SampleRate: 24000,
				TimeoutMS:  45000,
			},
			Offline: TTSOfflineConfig{
				Rate:      140,
				Volume:    0.9,
				TimeoutMS: 30000,
			},
		},
		FAQ: FAQConfig{
			DatabasePath:        "./data/faq_database.json",
			TranscriptPath:      "",
			SimilarityThreshold: 0.7,
			MaxEntries:          50,
		},
		Session: SessionConfig{
			MaxHistory:  20,
			PingTimeout: 10000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/oracle-events.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Persona: PersonaConfig{
			Directory: "./personas",
			Default:   "vonnegut",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "ORACLE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "ORACLE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "ORACLE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "ORACLE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "ORACLE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "ORACLE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "ORACLE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "ORACLE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "ORACLE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "ORACLE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "ORACLE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "ORACLE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "ORACLE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "ORACLE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "ORACLE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "ORACLE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.VAD.Mode, "ORACLE_VAD_MODE")
	overrideString(&cfg.VAD.Command, "ORACLE_VAD_COMMAND")
	overrideString(&cfg.VAD.ModelPath, "ORACLE_VAD_MODEL_PATH")
	overrideInt(&cfg.VAD.SampleRate, "ORACLE_VAD_SAMPLE_RATE")
	overrideInt(&cfg.VAD.FrameDurationMS, "ORACLE_VAD_FRAME_DURATION_MS")
	overrideFloat(&cfg.VAD.Threshold, "ORACLE_VAD_THRESHOLD")
	overrideFloat(&cfg.VAD.EnergyThreshold, "ORACLE_VAD_ENERGY_THRESHOLD")
	overrideInt(&cfg.VAD.HangoverMS, "ORACLE_VAD_HANGOVER_MS")
	overrideInt(&cfg.VAD.MinSpeechDurationMS, "ORACLE_VAD_MIN_SPEECH_DURATION_MS")
	overrideInt(&cfg.VAD.MaxSpeechDurationMS, "ORACLE_VAD_MAX_SPEECH_DURATION_MS")
	overrideString(&cfg.STT.Mode, "ORACLE_STT_MODE")
	overrideString(&cfg.STT.Command, "ORACLE_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "ORACLE_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "ORACLE_STT_LANGUAGE")
	overrideString(&cfg.LLM.Mode, "ORACLE_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "ORACLE_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Model, "ORACLE_LLM_MODEL")
	overrideInt(&cfg.LLM.MaxTokens, "ORACLE_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "ORACLE_LLM_TEMPERATURE")
	overrideInt(&cfg.TTS.SampleRate, "ORACLE_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.CacheSize, "ORACLE_TTS_CACHE_SIZE")
	overrideBool(&cfg.TTS.Neural.Enabled, "ORACLE_TTS_NEURAL_ENABLED")
	overrideString(&cfg.TTS.Neural.Endpoint, "ORACLE_TTS_NEURAL_ENDPOINT")
	overrideString(&cfg.TTS.Neural.Model, "ORACLE_TTS_NEURAL_MODEL")
	overrideString(&cfg.TTS.Neural.Voice, "ORACLE_TTS_NEURAL_VOICE")
	overrideInt(&cfg.TTS.Neural.SampleRate, "ORACLE_TTS_NEURAL_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Neural.TimeoutMS, "ORACLE_TTS_NEURAL_TIMEOUT_MS")
	overrideString(&cfg.TTS.Offline.Command, "ORACLE_TTS_OFFLINE_COMMAND")
	overrideString(&cfg.TTS.Offline.ListCommand, "ORACLE_TTS_OFFLINE_LIST_COMMAND")
	overrideString(&cfg.TTS.Offline.Voice, "ORACLE_TTS_OFFLINE_VOICE")
	overrideInt(&cfg.TTS.Offline.Rate, "ORACLE_TTS_OFFLINE_RATE")
	overrideFloat(&cfg.TTS.Offline.Volume, "ORACLE_TTS_OFFLINE_VOLUME")
	overrideInt(&cfg.TTS.Offline.TimeoutMS, "ORACLE_TTS_OFFLINE_TIMEOUT_MS")
	overrideString(&cfg.FAQ.DatabasePath, "ORACLE_FAQ_DATABASE_PATH")
	overrideString(&cfg.FAQ.TranscriptPath, "ORACLE_FAQ_TRANSCRIPT_PATH")
	overrideFloat(&cfg.FAQ.SimilarityThreshold, "ORACLE_FAQ_SIMILARITY_THRESHOLD")
	overrideInt(&cfg.FAQ.MaxEntries, "ORACLE_FAQ_MAX_ENTRIES")
	overrideInt(&cfg.Session.MaxHistory, "ORACLE_SESSION_MAX_HISTORY")
	overrideInt(&cfg.Session.PingTimeout, "ORACLE_SESSION_PING_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "ORACLE_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "ORACLE_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "ORACLE_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "ORACLE_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "ORACLE_EVENT_STORE_VACUUM_ON_START")
	overrideString(&cfg.Persona.Directory, "ORACLE_PERSONA_DIRECTORY")
	overrideString(&cfg.Persona.Default, "ORACLE_PERSONA_DEFAULT")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.VAD.Mode {
	case "model", "energy":
	default:
		return errors.New("vad.mode must be one of model|energy")
	}
	if cfg.VAD.Mode == "model" && cfg.VAD.Command == "" {
		return errors.New("vad.command must be set when mode=model")
	}
	if cfg.VAD.SampleRate <= 0 {
		return errors.New("vad.sample_rate must be positive")
	}
	if cfg.VAD.FrameDurationMS <= 0 {
		return errors.New("vad.frame_duration_ms must be positive")
	}
	if cfg.VAD.Threshold <= 0 || cfg.VAD.Threshold >= 1 {
		return errors.New("vad.threshold must be in (0, 1)")
	}
	if cfg.VAD.HangoverMS <= 0 {
		return errors.New("vad.hangover_ms must be positive")
	}
	if cfg.VAD.MaxSpeechDurationMS <= cfg.VAD.MinSpeechDurationMS {
		return errors.New("vad.max_speech_duration_ms must exceed min_speech_duration_ms")
	}
	switch cfg.STT.Mode {
	case "mock", "exec":
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	switch cfg.LLM.Mode {
	case "mock", "ollama":
	default:
		return errors.New("llm.mode must be one of mock|ollama")
	}
	if cfg.LLM.Mode == "ollama" && cfg.LLM.Endpoint == "" {
		return errors.New("llm.endpoint must be set when mode=ollama")
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.CacheSize < 0 {
		return errors.New("tts.cache_size must be >= 0")
	}
	if cfg.TTS.Neural.Enabled && cfg.TTS.Neural.Endpoint == "" {
		return errors.New("tts.neural.endpoint must be set when neural engine is enabled")
	}
	if cfg.FAQ.SimilarityThreshold <= 0 || cfg.FAQ.SimilarityThreshold > 1 {
		return errors.New("faq.similarity_threshold must be in (0, 1]")
	}
	if cfg.FAQ.MaxEntries <= 0 {
		return errors.New("faq.max_entries must be positive")
	}
	if cfg.Session.MaxHistory <= 0 {
		return errors.New("session.max_history must be positive")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionMode != "ephemeral" && cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Persona.Default == "" {
		return errors.New("persona.default must not be empty")
	}
	return nil
}
