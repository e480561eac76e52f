package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Conversion ConversionConfig `yaml:"conversion"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig contains transient audio storage configuration
type StorageConfig struct {
	WorkDir string `yaml:"work_dir"`
}

// OpenAIConfig contains OpenAI API client configuration
type OpenAIConfig struct {
	APIKey           string `yaml:"-"` // only read from OPENAI_API_KEY
	BaseURL          string `yaml:"base_url"`
	WhisperModel     string `yaml:"whisper_model"`
	ChatModel        string `yaml:"chat_model"`
	Timeout          int    `yaml:"timeout"` // seconds
	MaxRetries       int    `yaml:"max_retries"`
	SummaryMaxTokens int    `yaml:"summary_max_tokens"`
	AnswerMaxTokens  int    `yaml:"answer_max_tokens"`
}

// ConversionConfig contains ffmpeg conversion configuration
type ConversionConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	Timeout    int    `yaml:"timeout"` // seconds
}

// WebhookConfig contains optional summary forwarding configuration
type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// WatcherConfig contains the optional inbox directory watcher configuration
type WatcherConfig struct {
	Enabled       bool   `yaml:"enabled"`
	InboxDir      string `yaml:"inbox_dir"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no config file is present:
// bind 127.0.0.1:5000, whisper-1 + gpt-4-turbo, audio/ work directory.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Storage: StorageConfig{
			WorkDir: "audio",
		},
		OpenAI: OpenAIConfig{
			WhisperModel:     "whisper-1",
			ChatModel:        "gpt-4-turbo",
			Timeout:          120,
			MaxRetries:       1,
			SummaryMaxTokens: 400,
			AnswerMaxTokens:  300,
		},
		Conversion: ConversionConfig{
			FFmpegPath: "ffmpeg",
			SampleRate: 16000,
			Channels:   1,
			Timeout:    120,
		},
		Webhook: WebhookConfig{
			Timeout: 6,
		},
		Watcher: WatcherConfig{
			Enabled:       false,
			InboxDir:      "inbox",
			MaxConcurrent: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file, applies environment
// overrides, and validates the result. A missing config file is not an
// error: the defaults are used so the service can run from environment
// variables alone.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ApplyEnv overlays the recognized environment variables onto the
// configuration. OPENAI_API_KEY is the only source for the API key.
// FLASK_HOST/FLASK_PORT are accepted as fallbacks so deployments of the
// predecessor service keep working unchanged.
func (c *Config) ApplyEnv() error {
	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")

	if url := os.Getenv("N8N_WEBHOOK"); url != "" {
		c.Webhook.URL = url
	}

	if host := firstEnv("SERVER_HOST", "FLASK_HOST"); host != "" {
		c.Server.Host = host
	}

	if port := firstEnv("SERVER_PORT", "FLASK_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("server port must be an integer, got %q", port)
		}
		c.Server.Port = p
	}

	return nil
}

// firstEnv returns the first non-empty value among the named variables
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai config: %w", err)
	}

	if err := c.Conversion.Validate(); err != nil {
		return fmt.Errorf("conversion config: %w", err)
	}

	if err := c.Webhook.Validate(); err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}

	if err := c.Watcher.Validate(); err != nil {
		return fmt.Errorf("watcher config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.WorkDir == "" {
		return fmt.Errorf("work_dir cannot be empty")
	}

	return nil
}

// Validate validates OpenAI API configuration
func (o *OpenAIConfig) Validate() error {
	if o.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set in the environment")
	}

	if o.WhisperModel == "" {
		return fmt.Errorf("whisper_model cannot be empty")
	}

	if o.ChatModel == "" {
		return fmt.Errorf("chat_model cannot be empty")
	}

	if o.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", o.Timeout)
	}

	if o.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", o.MaxRetries)
	}

	if o.SummaryMaxTokens < 1 {
		return fmt.Errorf("summary_max_tokens must be positive, got %d", o.SummaryMaxTokens)
	}

	if o.AnswerMaxTokens < 1 {
		return fmt.Errorf("answer_max_tokens must be positive, got %d", o.AnswerMaxTokens)
	}

	return nil
}

// Validate validates conversion configuration
func (v *ConversionConfig) Validate() error {
	if v.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	if v.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for transcription, got %d", v.SampleRate)
	}

	if v.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono) for transcription, got %d", v.Channels)
	}

	if v.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", v.Timeout)
	}

	return nil
}

// Validate validates webhook configuration
func (w *WebhookConfig) Validate() error {
	if w.URL != "" && w.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", w.Timeout)
	}

	return nil
}

// Validate validates watcher configuration
func (w *WatcherConfig) Validate() error {
	if !w.Enabled {
		return nil
	}

	if w.InboxDir == "" {
		return fmt.Errorf("inbox_dir cannot be empty when the watcher is enabled")
	}

	if w.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", w.MaxConcurrent)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// ListenAddr returns the host:port bind address for the HTTP server
func (s *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetTimeoutDuration returns the OpenAI request timeout as a time.Duration
func (o *OpenAIConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(o.Timeout) * time.Second
}

// GetTimeoutDuration returns the conversion timeout as a time.Duration
func (v *ConversionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(v.Timeout) * time.Second
}

// GetTimeoutDuration returns the webhook delivery timeout as a time.Duration
func (w *WebhookConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}
