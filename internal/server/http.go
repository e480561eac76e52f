package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmeet/meeting-scribe/internal/config"
	"github.com/openmeet/meeting-scribe/internal/metrics"
	"github.com/openmeet/meeting-scribe/internal/pipeline"
	"github.com/openmeet/meeting-scribe/internal/transcript"
)

// maxUploadBytes bounds the multipart form held in memory before the audio
// part spills to disk.
const maxUploadBytes = 512 << 20

// Processor runs the upload and chat pipelines behind the HTTP handlers
type Processor interface {
	ProcessUpload(ctx context.Context, upload io.Reader, filename string) (*pipeline.Result, error)
	Answer(ctx context.Context, question string) (string, error)
}

// StatsFunc reports request counters from a downstream client
type StatsFunc func() interface{}

// HTTPServer provides the upload/chat API plus monitoring endpoints
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	processor Processor
	store     *transcript.Store
	metrics   *metrics.Metrics

	// Optional per-client stats, keyed by component name for /stats
	statsSources map[string]StatsFunc

	startTime time.Time
}

// NewHTTPServer creates the API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, processor Processor,
	store *transcript.Store, m *metrics.Metrics, statsSources map[string]StatsFunc) *HTTPServer {

	h := &HTTPServer{
		logger:       logger,
		config:       cfg,
		processor:    processor,
		store:        store,
		metrics:      m,
		statsSources: statsSources,
		startTime:    time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:        cfg.Server.ListenAddr(),
		Handler:     mux,
		ReadTimeout: 10 * time.Minute,
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Pipeline endpoints
	mux.HandleFunc("/upload", h.withMetrics("/upload", h.handleUpload))
	mux.HandleFunc("/chat", h.withMetrics("/chat", h.handleChat))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Response writer wrapper to capture the status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// Handler exposes the route mux for tests
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps pipeline errors onto the API's error bodies: validation
// failures become 400 {"error": ...}, stage failures become 500
// {"error": ..., "details": ...}.
func (h *HTTPServer) writeError(w http.ResponseWriter, err error) {
	var vErr *pipeline.ValidationError
	if errors.As(err, &vErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": vErr.Message,
		})
		return
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   stageErr.Message,
			"details": stageErr.Detail,
		})
		return
	}

	h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

// handleUpload implements the POST /upload endpoint
func (h *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, &pipeline.ValidationError{Message: "No file part 'file' in request"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, &pipeline.ValidationError{Message: "No file part 'file' in request"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.writeError(w, &pipeline.ValidationError{Message: "No file selected"})
		return
	}

	h.logger.Info("Received upload",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	result, err := h.processor.ProcessUpload(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Error("Upload processing failed", slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"summary":    result.Summary,
		"transcript": result.Transcript,
	})
}

// chatRequest is the POST /chat request body
type chatRequest struct {
	Question string `json:"question"`
}

// handleChat implements the POST /chat endpoint
func (h *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &pipeline.ValidationError{Message: "Invalid JSON body"})
		return
	}

	answer, err := h.processor.Answer(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("Chat request failed", slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"answer": answer,
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	storeInfo := h.store.GetInfo()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "meeting-scribe",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"transcript_store": map[string]interface{}{
				"has_transcript": storeInfo.HasTranscript,
				"updates":        storeInfo.Updates,
			},
		},
	}

	h.writeJSON(w, http.StatusOK, health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"host": h.config.Server.Host,
			"port": h.config.Server.Port,
		},
		"storage": map[string]interface{}{
			"work_dir": h.config.Storage.WorkDir,
		},
		"openai": map[string]interface{}{
			"whisper_model":      h.config.OpenAI.WhisperModel,
			"chat_model":         h.config.OpenAI.ChatModel,
			"timeout":            h.config.OpenAI.Timeout,
			"max_retries":        h.config.OpenAI.MaxRetries,
			"summary_max_tokens": h.config.OpenAI.SummaryMaxTokens,
			"answer_max_tokens":  h.config.OpenAI.AnswerMaxTokens,
			// Note: API key is intentionally omitted for security
		},
		"conversion": map[string]interface{}{
			"ffmpeg_path": h.config.Conversion.FFmpegPath,
			"sample_rate": h.config.Conversion.SampleRate,
			"channels":    h.config.Conversion.Channels,
			"timeout":     h.config.Conversion.Timeout,
		},
		"webhook": map[string]interface{}{
			"configured": h.config.Webhook.URL != "",
			"timeout":    h.config.Webhook.Timeout,
		},
		"watcher": map[string]interface{}{
			"enabled":        h.config.Watcher.Enabled,
			"inbox_dir":      h.config.Watcher.InboxDir,
			"max_concurrent": h.config.Watcher.MaxConcurrent,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	h.writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	storeInfo := h.store.GetInfo()

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"transcript_store": map[string]interface{}{
			"has_transcript": storeInfo.HasTranscript,
			"length":         storeInfo.Length,
			"updated_at":     storeInfo.UpdatedAt,
			"updates":        storeInfo.Updates,
		},
	}

	for name, source := range h.statsSources {
		stats[name] = source()
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Meeting Scribe Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /upload": "Upload a meeting recording for transcription and summarization",
			"POST /chat":   "Ask a question about the most recent transcript",
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /config":  "Get service configuration",
			"GET /stats":   "Get service statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, http.StatusOK, apiDoc)
}
