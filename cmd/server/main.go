package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openmeet/meeting-scribe/internal/audio"
	"github.com/openmeet/meeting-scribe/internal/config"
	"github.com/openmeet/meeting-scribe/internal/llm"
	"github.com/openmeet/meeting-scribe/internal/metrics"
	"github.com/openmeet/meeting-scribe/internal/notify"
	"github.com/openmeet/meeting-scribe/internal/pipeline"
	"github.com/openmeet/meeting-scribe/internal/server"
	"github.com/openmeet/meeting-scribe/internal/transcript"
	"github.com/openmeet/meeting-scribe/internal/transcription"
	"github.com/openmeet/meeting-scribe/internal/watcher"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "meeting-scribe"
	serviceVersion    = "1.0.0"
)

func main() {
	// Load .env before the configuration reads the environment
	godotenv.Load()

	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("listen_addr", cfg.Server.ListenAddr()),
		slog.String("work_dir", cfg.Storage.WorkDir),
		slog.String("whisper_model", cfg.OpenAI.WhisperModel),
		slog.String("chat_model", cfg.OpenAI.ChatModel),
		slog.String("ffmpeg_path", cfg.Conversion.FFmpegPath),
		slog.Bool("webhook_configured", cfg.Webhook.URL != ""),
		slog.Bool("watcher_enabled", cfg.Watcher.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Shared transcript store behind /chat
	store := transcript.NewStore()

	// ffmpeg converter
	converter := audio.NewFFmpegConverter(audio.ConverterConfig{
		FFmpegPath: cfg.Conversion.FFmpegPath,
		SampleRate: cfg.Conversion.SampleRate,
		Channels:   cfg.Conversion.Channels,
	}, audio.NewExecutor(), logger)

	// Whisper transcription client
	transcriber, err := transcription.NewClient(transcription.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.WhisperModel,
		Timeout:    cfg.OpenAI.GetTimeoutDuration(),
		MaxRetries: cfg.OpenAI.MaxRetries,
	}, logger)
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Chat-completion client for summaries and answers
	generator, err := llm.NewClient(llm.Config{
		APIKey:           cfg.OpenAI.APIKey,
		BaseURL:          cfg.OpenAI.BaseURL,
		Model:            cfg.OpenAI.ChatModel,
		Timeout:          cfg.OpenAI.GetTimeoutDuration(),
		SummaryMaxTokens: cfg.OpenAI.SummaryMaxTokens,
		AnswerMaxTokens:  cfg.OpenAI.AnswerMaxTokens,
	}, logger)
	if err != nil {
		logger.Error("Failed to create chat client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Webhook notifier; an empty URL disables delivery
	notifier := notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.GetTimeoutDuration(), logger)
	if notifier.Enabled() {
		logger.Info("Webhook notifier configured")
	}

	// Assemble the processing pipeline
	proc := pipeline.New(pipeline.Config{
		WorkDir:           cfg.Storage.WorkDir,
		ConversionTimeout: cfg.Conversion.GetTimeoutDuration(),
		RequestTimeout:    cfg.OpenAI.GetTimeoutDuration(),
	}, converter, transcriber, generator, notifier, store, appMetrics, logger)
	logger.Info("Processing pipeline initialized")

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, proc, store, appMetrics,
		map[string]server.StatsFunc{
			"transcription": func() interface{} { return transcriber.GetStats() },
			"chat":          func() interface{} { return generator.GetStats() },
			"webhook":       func() interface{} { return notifier.GetStats() },
		})
	logger.Info("HTTP API server initialized",
		slog.String("address", cfg.Server.ListenAddr()),
	)

	// Start optional inbox watcher
	var inboxWatcher *watcher.Watcher
	if cfg.Watcher.Enabled {
		inboxWatcher, err = watcher.New(cfg.Watcher.InboxDir, cfg.Watcher.MaxConcurrent,
			func(ctx context.Context, path string) error {
				_, err := proc.ProcessFile(ctx, path)
				return err
			}, logger)
		if err != nil {
			logger.Error("Failed to create inbox watcher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		go inboxWatcher.Start(ctx)
	}

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", cfg.Server.ListenAddr()),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop the inbox watcher and wait for in-flight recordings
	cancel()
	if inboxWatcher != nil {
		if err := inboxWatcher.Stop(); err != nil {
			logger.Error("Error stopping inbox watcher", slog.String("error", err.Error()))
		}
	}

	// Get final statistics
	transcriptionStats := transcriber.GetStats()
	chatStats := generator.GetStats()
	logger.Info("Final service statistics",
		slog.Uint64("transcription_requests", transcriptionStats.TotalRequests),
		slog.Uint64("transcription_failures", transcriptionStats.FailedRequests),
		slog.Uint64("chat_requests", chatStats.TotalRequests),
		slog.Uint64("chat_failures", chatStats.FailedRequests),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
