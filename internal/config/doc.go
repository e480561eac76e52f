// Package config provides configuration loading and validation for the meeting scribe service.
// It handles YAML-based configuration with struct validation and overlays the
// recognized environment variables (OPENAI_API_KEY, N8N_WEBHOOK, SERVER_HOST, SERVER_PORT).
package config
