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

type WhisperConfig struct {
	Engine    string `yaml:"engine"` // whisper or mock
	ModelPath string `yaml:"model_path"`
	EnableGPU bool   `yaml:"enable_gpu"`
}

// RecognizeConfig carries the default recognition parameters applied
// when a request supplies none.
type RecognizeConfig struct {
	Language        string `yaml:"language"`
	Threads         int    `yaml:"threads"`
	SampleRate      int    `yaml:"sample_rate"`
	Translate       bool   `yaml:"translate"`
	PrintSpecial    bool   `yaml:"print_special"`
	PrintProgress   bool   `yaml:"print_progress"`
	PrintRealtime   bool   `yaml:"print_realtime"`
	PrintTimestamps bool   `yaml:"print_timestamps"`
}

type StreamConfig struct {
	HeartbeatInterval int `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int `yaml:"heartbeat_timeout_ms"`
}

type NormalizeConfig struct {
	Command string `yaml:"command"`
	TempDir string `yaml:"temp_dir"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Whisper     WhisperConfig   `yaml:"whisper"`
	Recognize   RecognizeConfig `yaml:"recognize"`
	Stream      StreamConfig    `yaml:"stream"`
	Normalize   NormalizeConfig `yaml:"normalize"`
}

func Default() Config {
	return Config{
		ServiceName: "audio-to-text",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Whisper: WhisperConfig{
			Engine:    "whisper",
			ModelPath: "./models/ggml-base.en.bin",
			EnableGPU: false,
		},
		Recognize: RecognizeConfig{
			Language:   "en",
			Threads:    1,
			SampleRate: 29000,
		},
		Stream: StreamConfig{
			HeartbeatInterval: 5000,
			HeartbeatTimeout:  10000,
		},
		Normalize: NormalizeConfig{
			Command: "ffmpeg",
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
	overrideString(&cfg.ServiceName, "A2T_SERVICE_NAME")
	overrideString(&cfg.Environment, "A2T_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "A2T_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "A2T_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "A2T_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "A2T_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "A2T_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "A2T_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "A2T_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "A2T_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "A2T_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "A2T_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "A2T_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "A2T_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "A2T_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "A2T_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Whisper.Engine, "A2T_WHISPER_ENGINE")
	overrideString(&cfg.Whisper.ModelPath, "A2T_WHISPER_MODEL_PATH")
	overrideBool(&cfg.Whisper.EnableGPU, "A2T_WHISPER_ENABLE_GPU")
	overrideString(&cfg.Recognize.Language, "A2T_RECOGNIZE_LANGUAGE")
	overrideInt(&cfg.Recognize.Threads, "A2T_RECOGNIZE_THREADS")
	overrideInt(&cfg.Recognize.SampleRate, "A2T_RECOGNIZE_SAMPLE_RATE")
	overrideBool(&cfg.Recognize.Translate, "A2T_RECOGNIZE_TRANSLATE")
	overrideBool(&cfg.Recognize.PrintSpecial, "A2T_RECOGNIZE_PRINT_SPECIAL")
	overrideBool(&cfg.Recognize.PrintProgress, "A2T_RECOGNIZE_PRINT_PROGRESS")
	overrideBool(&cfg.Recognize.PrintRealtime, "A2T_RECOGNIZE_PRINT_REALTIME")
	overrideBool(&cfg.Recognize.PrintTimestamps, "A2T_RECOGNIZE_PRINT_TIMESTAMPS")
	overrideInt(&cfg.Stream.HeartbeatInterval, "A2T_STREAM_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Stream.HeartbeatTimeout, "A2T_STREAM_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.Normalize.Command, "A2T_NORMALIZE_COMMAND")
	overrideString(&cfg.Normalize.TempDir, "A2T_NORMALIZE_TEMP_DIR")
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

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch cfg.Whisper.Engine {
	case "whisper", "mock":
	default:
		return errors.New("whisper.engine must be one of whisper|mock")
	}
	if cfg.Whisper.Engine == "whisper" && cfg.Whisper.ModelPath == "" {
		return errors.New("whisper.model_path must not be empty")
	}
	if cfg.Recognize.Threads <= 0 {
		return errors.New("recognize.threads must be positive")
	}
	if cfg.Recognize.SampleRate <= 0 {
		return errors.New("recognize.sample_rate must be positive")
	}
	if cfg.Stream.HeartbeatInterval <= 0 {
		return errors.New("stream.heartbeat_interval_ms must be positive")
	}
	if cfg.Stream.HeartbeatTimeout <= cfg.Stream.HeartbeatInterval {
		return errors.New("stream.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if cfg.Normalize.Command == "" {
		return errors.New("normalize.command must not be empty")
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
	return nil
}
