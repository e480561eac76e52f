// Package server implements the HTTP API: the upload and chat endpoints
// that drive the transcription pipeline, plus monitoring/management
// endpoints for health, configuration, statistics, and Prometheus metrics.
package server
