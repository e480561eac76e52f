package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := *Default()
	cfg.OpenAI.APIKey = "test-key"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid server port",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name: "empty host",
			mutate: func(c *Config) {
				c.Server.Host = ""
			},
			expectError: true,
			errorMsg:    "host cannot be empty",
		},
		{
			name: "empty work dir",
			mutate: func(c *Config) {
				c.Storage.WorkDir = ""
			},
			expectError: true,
			errorMsg:    "work_dir cannot be empty",
		},
		{
			name: "missing API key",
			mutate: func(c *Config) {
				c.OpenAI.APIKey = ""
			},
			expectError: true,
			errorMsg:    "OPENAI_API_KEY must be set",
		},
		{
			name: "invalid sample rate",
			mutate: func(c *Config) {
				c.Conversion.SampleRate = 44100
			},
			expectError: true,
			errorMsg:    "sample_rate must be 16000",
		},
		{
			name: "invalid channel count",
			mutate: func(c *Config) {
				c.Conversion.Channels = 2
			},
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name: "negative retries",
			mutate: func(c *Config) {
				c.OpenAI.MaxRetries = -1
			},
			expectError: true,
			errorMsg:    "max_retries cannot be negative",
		},
		{
			name: "zero summary token budget",
			mutate: func(c *Config) {
				c.OpenAI.SummaryMaxTokens = 0
			},
			expectError: true,
			errorMsg:    "summary_max_tokens must be positive",
		},
		{
			name: "webhook configured with zero timeout",
			mutate: func(c *Config) {
				c.Webhook.URL = "http://example.com/hook"
				c.Webhook.Timeout = 0
			},
			expectError: true,
			errorMsg:    "timeout must be at least 1 second",
		},
		{
			name: "webhook unset ignores timeout",
			mutate: func(c *Config) {
				c.Webhook.URL = ""
				c.Webhook.Timeout = 0
			},
			expectError: false,
		},
		{
			name: "watcher enabled without inbox dir",
			mutate: func(c *Config) {
				c.Watcher.Enabled = true
				c.Watcher.InboxDir = ""
			},
			expectError: true,
			errorMsg:    "inbox_dir cannot be empty",
		},
		{
			name: "watcher disabled skips validation",
			mutate: func(c *Config) {
				c.Watcher.Enabled = false
				c.Watcher.InboxDir = ""
				c.Watcher.MaxConcurrent = 0
			},
			expectError: false,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectError: true,
			errorMsg:    "format must be 'json' or 'text'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "file-test-key")
	t.Setenv("N8N_WEBHOOK", "")
	t.Setenv("SERVER_HOST", "")
	t.Setenv("SERVER_PORT", "")

	configYAML := `
server:
  host: "0.0.0.0"
  port: 8080
storage:
  work_dir: "/tmp/scribe-audio"
openai:
  whisper_model: "whisper-1"
  chat_model: "gpt-4-turbo"
  timeout: 90
  max_retries: 2
  summary_max_tokens: 500
  answer_max_tokens: 250
conversion:
  ffmpeg_path: "/usr/local/bin/ffmpeg"
  sample_rate: 16000
  channels: 1
  timeout: 60
webhook:
  timeout: 6
logging:
  level: "debug"
  format: "json"
  output: "stdout"
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenAddr() != "0.0.0.0:8080" {
		t.Errorf("expected listen addr 0.0.0.0:8080, got %s", cfg.Server.ListenAddr())
	}
	if cfg.Storage.WorkDir != "/tmp/scribe-audio" {
		t.Errorf("expected work dir /tmp/scribe-audio, got %s", cfg.Storage.WorkDir)
	}
	if cfg.OpenAI.APIKey != "file-test-key" {
		t.Errorf("expected API key from environment, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.GetTimeoutDuration() != 90*time.Second {
		t.Errorf("expected 90s OpenAI timeout, got %v", cfg.OpenAI.GetTimeoutDuration())
	}
	if cfg.Conversion.GetTimeoutDuration() != 60*time.Second {
		t.Errorf("expected 60s conversion timeout, got %v", cfg.Conversion.GetTimeoutDuration())
	}
	if cfg.Webhook.URL != "" {
		t.Errorf("expected no webhook URL, got %q", cfg.Webhook.URL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-only-key")
	t.Setenv("N8N_WEBHOOK", "http://localhost:5678/hook")
	t.Setenv("SERVER_HOST", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenAddr() != "127.0.0.1:5000" {
		t.Errorf("expected default listen addr 127.0.0.1:5000, got %s", cfg.Server.ListenAddr())
	}
	if cfg.OpenAI.WhisperModel != "whisper-1" {
		t.Errorf("expected default whisper model, got %q", cfg.OpenAI.WhisperModel)
	}
	if cfg.Webhook.URL != "http://localhost:5678/hook" {
		t.Errorf("expected webhook URL from environment, got %q", cfg.Webhook.URL)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected OPENAI_API_KEY in error, got %q", err.Error())
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9090")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("expected 0.0.0.0:9090, got %s", cfg.Server.ListenAddr())
	}

	t.Setenv("SERVER_PORT", "not-a-number")
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric SERVER_PORT")
	}
}

func TestApplyEnvFlaskFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("FLASK_HOST", "0.0.0.0")
	t.Setenv("FLASK_PORT", "8080")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("expected 0.0.0.0:8080 from FLASK_* fallbacks, got %s", cfg.Server.ListenAddr())
	}

	// The new names take precedence when both are set
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "5001")
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 5001 {
		t.Errorf("expected SERVER_* to win, got %s", cfg.Server.ListenAddr())
	}
}
