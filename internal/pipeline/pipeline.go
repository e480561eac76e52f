package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openmeet/meeting-scribe/internal/audio"
	"github.com/openmeet/meeting-scribe/internal/metrics"
	"github.com/openmeet/meeting-scribe/internal/notify"
	"github.com/openmeet/meeting-scribe/internal/transcript"
)

// NoTranscriptAnswer is returned by Answer when no meeting has been
// uploaded yet. It is a normal answer, not an error.
const NoTranscriptAnswer = "No transcript available. Please record and upload a meeting first."

// Transcriber converts a normalized audio file into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Generator produces summaries and answers from transcripts
type Generator interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	Answer(ctx context.Context, transcript, question string) (string, error)
}

// Config contains pipeline configuration
type Config struct {
	WorkDir           string
	ConversionTimeout time.Duration
	RequestTimeout    time.Duration // per remote API call
}

// Pipeline runs the upload flow: persist, convert, transcribe, summarize,
// notify. Each request works on uuid-unique temp paths that are removed on
// every exit path.
type Pipeline struct {
	config      Config
	converter   audio.Converter
	transcriber Transcriber
	generator   Generator
	notifier    notify.Notifier
	store       *transcript.Store
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Result carries the outputs of a successful upload run
type Result struct {
	Summary    string
	Transcript string
}

// New creates a pipeline with the given collaborators
func New(cfg Config, converter audio.Converter, transcriber Transcriber,
	generator Generator, notifier notify.Notifier, store *transcript.Store,
	m *metrics.Metrics, logger *slog.Logger) *Pipeline {

	if cfg.WorkDir == "" {
		cfg.WorkDir = "audio"
	}

	return &Pipeline{
		config:      cfg,
		converter:   converter,
		transcriber: transcriber,
		generator:   generator,
		notifier:    notifier,
		store:       store,
		metrics:     m,
		logger:      logger,
	}
}

// ProcessUpload runs the full pipeline for one uploaded recording. The
// reader supplies the raw upload bytes; filename is only used for its
// extension. On success the shared transcript is replaced and the summary
// is forwarded to the webhook (delivery failures never fail the request).
func (p *Pipeline) ProcessUpload(ctx context.Context, upload io.Reader, filename string) (*Result, error) {
	startTime := time.Now()
	p.metrics.RecordUploadReceived()

	rawPath, wavPath, err := p.tempPaths(filename)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageIngest))
		return nil, newStageError(StageIngest, "Failed to store upload", err)
	}
	defer p.cleanup(rawPath, wavPath)

	if err := saveUpload(upload, rawPath); err != nil {
		p.metrics.RecordStageFailure(string(StageIngest))
		return nil, newStageError(StageIngest, "Failed to store upload", err)
	}
	p.logger.Info("Saved uploaded audio", slog.String("path", rawPath))

	// Convert to normalized WAV
	if err := p.convert(ctx, rawPath, wavPath); err != nil {
		p.metrics.RecordStageFailure(string(StageConversion))
		return nil, newStageError(StageConversion, "ffmpeg conversion failed", err)
	}

	if info, err := audio.ReadWAVInfo(wavPath); err == nil {
		p.metrics.RecordAudio(info.Duration)
	}

	// Transcribe
	text, err := p.transcribe(ctx, wavPath)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageTranscription))
		return nil, newStageError(StageTranscription, "Transcription failed", err)
	}

	p.store.Set(text)
	p.metrics.RecordTranscript(len(text))
	p.logger.Info("Transcription complete", slog.Int("chars", len(text)))

	// Summarize
	summary, err := p.summarize(ctx, text)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageSummarization))
		return nil, newStageError(StageSummarization, "Summarization failed", err)
	}
	p.logger.Info("Summarization complete", slog.Int("chars", len(summary)))

	// Forward to webhook; failure is logged inside the notifier and only
	// counted here
	if p.notifier.Enabled() {
		p.metrics.RecordWebhookDelivery(p.notifier.Notify(ctx, summary, text) == nil)
	}

	p.metrics.RecordUploadSucceeded(time.Since(startTime).Seconds())
	p.logger.Info("Upload pipeline finished",
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return &Result{Summary: summary, Transcript: text}, nil
}

// ProcessFile runs the upload pipeline for a file already on disk, such as a
// recording dropped into the watched inbox directory.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageIngest))
		return nil, newStageError(StageIngest, "Failed to read recording", err)
	}
	defer f.Close()

	return p.ProcessUpload(ctx, f, filepath.Base(path))
}

// Answer responds to a question about the most recent transcript
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &ValidationError{Message: "No question provided"}
	}

	p.metrics.RecordChatRequest()

	text, ok := p.store.Get()
	if !ok {
		return NoTranscriptAnswer, nil
	}

	answerCtx, cancel := p.requestContext(ctx)
	defer cancel()

	startTime := time.Now()
	answer, err := p.generator.Answer(answerCtx, text, question)
	p.metrics.RecordStageDuration(string(StageGeneration), time.Since(startTime).Seconds())
	if err != nil {
		p.metrics.RecordChatFailure()
		return "", newStageError(StageGeneration, "Chat generation failed", err)
	}

	return answer, nil
}

func (p *Pipeline) convert(ctx context.Context, rawPath, wavPath string) error {
	convertCtx := ctx
	if p.config.ConversionTimeout > 0 {
		var cancel context.CancelFunc
		convertCtx, cancel = context.WithTimeout(ctx, p.config.ConversionTimeout)
		defer cancel()
	}

	startTime := time.Now()
	err := p.converter.Convert(convertCtx, rawPath, wavPath)
	p.metrics.RecordStageDuration(string(StageConversion), time.Since(startTime).Seconds())
	return err
}

func (p *Pipeline) transcribe(ctx context.Context, wavPath string) (string, error) {
	transcribeCtx, cancel := p.requestContext(ctx)
	defer cancel()

	startTime := time.Now()
	text, err := p.transcriber.Transcribe(transcribeCtx, wavPath)
	p.metrics.RecordStageDuration(string(StageTranscription), time.Since(startTime).Seconds())
	return text, err
}

func (p *Pipeline) summarize(ctx context.Context, text string) (string, error) {
	summarizeCtx, cancel := p.requestContext(ctx)
	defer cancel()

	startTime := time.Now()
	summary, err := p.generator.Summarize(summarizeCtx, text)
	p.metrics.RecordStageDuration(string(StageSummarization), time.Since(startTime).Seconds())
	return summary, err
}

func (p *Pipeline) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, p.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// tempPaths returns uuid-unique raw and normalized paths inside the work
// directory, creating it if needed.
func (p *Pipeline) tempPaths(filename string) (string, string, error) {
	if err := os.MkdirAll(p.config.WorkDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create work directory %s: %w", p.config.WorkDir, err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".webm"
	}

	// Distinct raw suffix so a .wav upload never collides with the
	// converted output
	id := uuid.NewString()
	rawPath := filepath.Join(p.config.WorkDir, fmt.Sprintf("meeting-%s-raw%s", id, ext))
	wavPath := filepath.Join(p.config.WorkDir, fmt.Sprintf("meeting-%s.wav", id))
	return rawPath, wavPath, nil
}

func saveUpload(upload io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, upload); err != nil {
		f.Close()
		return fmt.Errorf("failed to write upload file: %w", err)
	}

	return f.Close()
}

// cleanup removes the transient files for one request. It runs on every
// exit path and never fails.
func (p *Pipeline) cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("Failed to clean up temp file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}
