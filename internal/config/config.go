package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	Traces       string `yaml:"traces"` // none, stdout, otlp
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Storage     StorageConfig   `yaml:"storage"`
	Chunker     ChunkerConfig   `yaml:"chunker"`
	Synthesis   SynthesisConfig `yaml:"synthesis"`
	Recording   RecordingConfig `yaml:"recording"`
	STT         STTConfig       `yaml:"stt"`
	Emotion     EmotionConfig   `yaml:"emotion"`
	History     HistoryConfig   `yaml:"history"`
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
	StoreDir       string   `yaml:"store_dir"`
}

// StorageConfig names the two working directories: one for the reference
// voice and one for every generated artifact.
type StorageConfig struct {
	VoicesDir string `yaml:"voices_dir"`
	OutputDir string `yaml:"output_dir"`
}

type ChunkerConfig struct {
	MaxChars int `yaml:"max_chars"`
}

type SynthesisConfig struct {
	Mode       string `yaml:"mode"` // mock, exec, http
	Command    string `yaml:"command"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	SampleRate int    `yaml:"sample_rate"`
}

type RecordingConfig struct {
	Mode       string `yaml:"mode"` // mock, device
	DurationMS int    `yaml:"duration_ms"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type STTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Mode      string `yaml:"mode"`
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

type EmotionConfig struct {
	MaxStrength float64            `yaml:"max_strength"`
	Presets     map[string]float64 `yaml:"presets"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-voiceclone",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			Traces:       "none",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       false,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			StoreDir:       "./data/nats",
		},
		Storage: StorageConfig{
			VoicesDir: "voices",
			OutputDir: "output",
		},
		Chunker: ChunkerConfig{
			MaxChars: 120,
		},
		Synthesis: SynthesisConfig{
			Mode:       "mock",
			Model:      "tts_models/multilingual/multi-dataset/xtts_v2",
			Language:   "en",
			TimeoutMS:  120000,
			SampleRate: 24000,
		},
		Recording: RecordingConfig{
			Mode:       "mock",
			DurationMS: 5000,
			SampleRate: 16000,
			Channels:   1,
		},
		STT: STTConfig{
			Enabled:  false,
			Mode:     "mock",
			Language: "en",
		},
		Emotion: EmotionConfig{
			MaxStrength: 1.2,
			Presets: map[string]float64{
				"friendly":     1.0,
				"angry":        1.3,
				"storytelling": 0.85,
				"calm":         0.75,
				"robot":        1.05,
			},
		},
		History: HistoryConfig{
			Path:          "./data/voiceclone.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxEntries:    1000,
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
		// A presets block in the file replaces the defaults rather than merging into them.
		cfg.Emotion.Presets = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
		if len(cfg.Emotion.Presets) == 0 {
			cfg.Emotion.Presets = Default().Emotion.Presets
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "VOICECLONE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VOICECLONE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOICECLONE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOICECLONE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOICECLONE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.Traces, "VOICECLONE_TELEMETRY_TRACES")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOICECLONE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOICECLONE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "VOICECLONE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "VOICECLONE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOICECLONE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VOICECLONE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOICECLONE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOICECLONE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOICECLONE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOICECLONE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOICECLONE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.StoreDir, "VOICECLONE_BUS_STORE_DIR")
	overrideString(&cfg.Storage.VoicesDir, "VOICECLONE_STORAGE_VOICES_DIR")
	overrideString(&cfg.Storage.OutputDir, "VOICECLONE_STORAGE_OUTPUT_DIR")
	overrideInt(&cfg.Chunker.MaxChars, "VOICECLONE_CHUNKER_MAX_CHARS")
	overrideString(&cfg.Synthesis.Mode, "VOICECLONE_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Command, "VOICECLONE_SYNTHESIS_COMMAND")
	overrideString(&cfg.Synthesis.Endpoint, "VOICECLONE_SYNTHESIS_ENDPOINT")
	overrideString(&cfg.Synthesis.Model, "VOICECLONE_SYNTHESIS_MODEL")
	overrideString(&cfg.Synthesis.Language, "VOICECLONE_SYNTHESIS_LANGUAGE")
	overrideInt(&cfg.Synthesis.TimeoutMS, "VOICECLONE_SYNTHESIS_TIMEOUT_MS")
	overrideInt(&cfg.Synthesis.SampleRate, "VOICECLONE_SYNTHESIS_SAMPLE_RATE")
	overrideString(&cfg.Recording.Mode, "VOICECLONE_RECORDING_MODE")
	overrideInt(&cfg.Recording.DurationMS, "VOICECLONE_RECORDING_DURATION_MS")
	overrideInt(&cfg.Recording.SampleRate, "VOICECLONE_RECORDING_SAMPLE_RATE")
	overrideInt(&cfg.Recording.Channels, "VOICECLONE_RECORDING_CHANNELS")
	overrideBool(&cfg.STT.Enabled, "VOICECLONE_STT_ENABLED")
	overrideString(&cfg.STT.Mode, "VOICECLONE_STT_MODE")
	overrideString(&cfg.STT.Command, "VOICECLONE_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "VOICECLONE_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "VOICECLONE_STT_LANGUAGE")
	overrideFloat(&cfg.Emotion.MaxStrength, "VOICECLONE_EMOTION_MAX_STRENGTH")
	overrideString(&cfg.History.Path, "VOICECLONE_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "VOICECLONE_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "VOICECLONE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxEntries, "VOICECLONE_HISTORY_MAX_ENTRIES")
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

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
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
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch cfg.Telemetry.Traces {
	case "none", "stdout":
	case "otlp":
		if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) == "" {
			return errors.New("telemetry.otlp_endpoint must be set when traces=otlp")
		}
	default:
		return errors.New("telemetry.traces must be one of none|stdout|otlp")
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
	if cfg.Storage.VoicesDir == "" || cfg.Storage.OutputDir == "" {
		return errors.New("storage.voices_dir and storage.output_dir must not be empty")
	}
	if cfg.Chunker.MaxChars <= 0 {
		return errors.New("chunker.max_chars must be positive")
	}
	switch cfg.Synthesis.Mode {
	case "mock", "exec", "http":
	default:
		return errors.New("synthesis.mode must be one of mock|exec|http")
	}
	if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
		return errors.New("synthesis.command must be set when mode=exec")
	}
	if cfg.Synthesis.Mode == "http" && cfg.Synthesis.Endpoint == "" {
		return errors.New("synthesis.endpoint must be set when mode=http")
	}
	if cfg.Synthesis.Language == "" {
		return errors.New("synthesis.language must not be empty")
	}
	if cfg.Synthesis.SampleRate <= 0 {
		return errors.New("synthesis.sample_rate must be positive")
	}
	switch cfg.Recording.Mode {
	case "mock", "device":
	default:
		return errors.New("recording.mode must be one of mock|device")
	}
	if cfg.Recording.DurationMS <= 0 {
		return errors.New("recording.duration_ms must be positive")
	}
	if cfg.Recording.SampleRate <= 0 {
		return errors.New("recording.sample_rate must be positive")
	}
	if cfg.Recording.Channels <= 0 {
		return errors.New("recording.channels must be positive")
	}
	if cfg.STT.Enabled {
		switch cfg.STT.Mode {
		case "mock", "exec":
		default:
			return errors.New("stt.mode must be one of mock|exec")
		}
		if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
			return errors.New("stt.command must be set when mode=exec")
		}
	}
	if cfg.Emotion.MaxStrength <= 0 {
		return errors.New("emotion.max_strength must be positive")
	}
	if len(cfg.Emotion.Presets) == 0 {
		return errors.New("emotion.presets must not be empty")
	}
	for name, speed := range cfg.Emotion.Presets {
		if speed < emotion.MinSpeed || speed > emotion.MaxSpeed {
			return fmt.Errorf("emotion.presets.%s must be between %.1f and %.1f", name, emotion.MinSpeed, emotion.MaxSpeed)
		}
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "persistent":
	default:
		return errors.New("history.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.History.RetentionMode == "persistent" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty when retention_mode=persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}
