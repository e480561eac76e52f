package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Converter normalizes an arbitrary audio container into the waveform format
// accepted by the transcription client.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// ConverterConfig contains ffmpeg invocation parameters
type ConverterConfig struct {
	FFmpegPath string
	SampleRate int
	Channels   int
}

// FFmpegConverter transcodes audio by invoking ffmpeg as a subprocess
type FFmpegConverter struct {
	config   ConverterConfig
	executor Executor
	logger   *slog.Logger
}

// NewFFmpegConverter creates a converter that shells out to ffmpeg
func NewFFmpegConverter(cfg ConverterConfig, executor Executor, logger *slog.Logger) *FFmpegConverter {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	return &FFmpegConverter{
		config:   cfg,
		executor: executor,
		logger:   logger,
	}
}

// Convert transcodes inputPath into a mono PCM WAV file at outputPath and
// verifies the produced file actually has the requested sample rate and
// channel count.
func (c *FFmpegConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	// -vn drops any video track, -acodec pcm_s16le forces uncompressed
	// 16-bit samples, -y overwrites a stale output from a failed run
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-ar", strconv.Itoa(c.config.SampleRate),
		"-ac", strconv.Itoa(c.config.Channels),
		"-acodec", "pcm_s16le",
		outputPath,
	}

	c.logger.Debug("Converting audio",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.Int("sample_rate", c.config.SampleRate),
	)

	if _, err := c.executor.Execute(ctx, c.config.FFmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg conversion: %w", err)
	}

	info, err := ReadWAVInfo(outputPath)
	if err != nil {
		return fmt.Errorf("converted file is not a valid WAV: %w", err)
	}

	if int(info.SampleRate) != c.config.SampleRate {
		return fmt.Errorf("converted sample rate is %d Hz, expected %d Hz", info.SampleRate, c.config.SampleRate)
	}
	if int(info.Channels) != c.config.Channels {
		return fmt.Errorf("converted channel count is %d, expected %d", info.Channels, c.config.Channels)
	}

	c.logger.Info("Audio converted",
		slog.String("output", outputPath),
		slog.Float64("duration_seconds", info.Duration),
		slog.Uint64("data_bytes", uint64(info.DataSize)),
	)

	return nil
}
