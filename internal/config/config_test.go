package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.ServiceName != "audio-to-text" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("unexpected http port %d", cfg.HTTP.Port)
	}
	if cfg.Recognize.Language != "en" || cfg.Recognize.Threads != 1 || cfg.Recognize.SampleRate != 29000 {
		t.Fatalf("unexpected recognize defaults: %+v", cfg.Recognize)
	}
	if cfg.Stream.HeartbeatInterval != 5000 || cfg.Stream.HeartbeatTimeout != 10000 {
		t.Fatalf("unexpected stream defaults: %+v", cfg.Stream)
	}
	if cfg.Normalize.Command != "ffmpeg" {
		t.Fatalf("unexpected normalize command %q", cfg.Normalize.Command)
	}
	if cfg.Bus.Enabled {
		t.Fatal("bus should be disabled by default")
	}
}

func TestLoadAppliesYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
service_name: transcriber
http:
  port: 9090
whisper:
  engine: mock
recognize:
  language: de
  sample_rate: 16000
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("A2T_RECOGNIZE_LANGUAGE", "fr")
	t.Setenv("A2T_RECOGNIZE_THREADS", "4")
	t.Setenv("A2T_STREAM_HEARTBEAT_TIMEOUT_MS", "20000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServiceName != "transcriber" {
		t.Fatalf("yaml override lost: %q", cfg.ServiceName)
	}
	if cfg.HTTP.Port != 9090 {
		t.Fatalf("yaml override lost: port %d", cfg.HTTP.Port)
	}
	if cfg.Whisper.Engine != "mock" {
		t.Fatalf("yaml override lost: engine %q", cfg.Whisper.Engine)
	}
	// Env wins over yaml.
	if cfg.Recognize.Language != "fr" {
		t.Fatalf("env override lost: language %q", cfg.Recognize.Language)
	}
	if cfg.Recognize.Threads != 4 {
		t.Fatalf("env override lost: threads %d", cfg.Recognize.Threads)
	}
	if cfg.Recognize.SampleRate != 16000 {
		t.Fatalf("yaml override lost: sample rate %d", cfg.Recognize.SampleRate)
	}
	if cfg.Stream.HeartbeatTimeout != 20000 {
		t.Fatalf("env override lost: heartbeat timeout %d", cfg.Stream.HeartbeatTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }, "service_name"},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"unknown engine", func(c *Config) { c.Whisper.Engine = "vosk" }, "whisper.engine"},
		{"missing model path", func(c *Config) { c.Whisper.ModelPath = "" }, "whisper.model_path"},
		{"zero threads", func(c *Config) { c.Recognize.Threads = 0 }, "recognize.threads"},
		{"zero sample rate", func(c *Config) { c.Recognize.SampleRate = 0 }, "recognize.sample_rate"},
		{"timeout below interval", func(c *Config) { c.Stream.HeartbeatTimeout = 1000 }, "heartbeat_timeout_ms"},
		{"empty normalize command", func(c *Config) { c.Normalize.Command = "" }, "normalize.command"},
		{
			"bus without servers",
			func(c *Config) {
				c.Bus.Enabled = true
				c.Bus.Embedded = false
				c.Bus.Servers = nil
			},
			"bus.servers",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvOverrideIgnoresEmptyAndInvalidValues(t *testing.T) {
	t.Setenv("A2T_SERVICE_NAME", "  ")
	t.Setenv("A2T_HTTP_PORT", "not-a-number")
	t.Setenv("A2T_WHISPER_ENABLE_GPU", "maybe")

	cfg := Default()
	applyEnvOverrides(&cfg)

	if cfg.ServiceName != "audio-to-text" {
		t.Fatalf("blank env value should be ignored, got %q", cfg.ServiceName)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("unparseable int should be ignored, got %d", cfg.HTTP.Port)
	}
	if cfg.Whisper.EnableGPU {
		t.Fatal("unparseable bool should be ignored")
	}
}
