package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openmeet/meeting-scribe/internal/metrics"
	"github.com/openmeet/meeting-scribe/internal/transcript"
)

type fakeConverter struct {
	err       error
	converted bool
}

func (f *fakeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	f.converted = true
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("RIFF fake"), 0644)
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeGenerator struct {
	summary        string
	summaryErr     error
	answer         string
	answerErr      error
	lastTranscript string
	lastQuestion   string
}

func (f *fakeGenerator) Summarize(ctx context.Context, transcript string) (string, error) {
	f.lastTranscript = transcript
	return f.summary, f.summaryErr
}

func (f *fakeGenerator) Answer(ctx context.Context, transcript, question string) (string, error) {
	f.lastTranscript = transcript
	f.lastQuestion = question
	return f.answer, f.answerErr
}

type fakeNotifier struct {
	enabled bool
	err     error
	calls   int
	summary string
}

func (f *fakeNotifier) Enabled() bool { return f.enabled }

func (f *fakeNotifier) Notify(ctx context.Context, summary, transcript string) error {
	f.calls++
	f.summary = summary
	return f.err
}

type testEnv struct {
	pipeline    *Pipeline
	store       *transcript.Store
	converter   *fakeConverter
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	notifier    *fakeNotifier
	workDir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:       transcript.NewStore(),
		converter:   &fakeConverter{},
		transcriber: &fakeTranscriber{text: "the transcript"},
		generator:   &fakeGenerator{summary: "the summary", answer: "the answer"},
		notifier:    &fakeNotifier{enabled: true},
		workDir:     t.TempDir(),
	}

	env.pipeline = New(
		Config{WorkDir: env.workDir, RequestTimeout: time.Minute},
		env.converter,
		env.transcriber,
		env.generator,
		env.notifier,
		env.store,
		metrics.NewMetricsWith(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return env
}

func (env *testEnv) workDirEntries(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(env.workDir)
	if err != nil {
		t.Fatalf("failed to read work dir: %v", err)
	}
	return len(entries)
}

func TestProcessUploadSuccess(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("webm bytes"), "meeting.webm")
	if err != nil {
		t.Fatalf("ProcessUpload failed: %v", err)
	}

	if result.Transcript != "the transcript" || result.Summary != "the summary" {
		t.Errorf("unexpected result: %+v", result)
	}

	stored, ok := env.store.Get()
	if !ok || stored != "the transcript" {
		t.Errorf("expected stored transcript %q, got %q", "the transcript", stored)
	}

	if env.generator.lastTranscript != "the transcript" {
		t.Errorf("summarizer received %q", env.generator.lastTranscript)
	}

	if env.notifier.calls != 1 || env.notifier.summary != "the summary" {
		t.Errorf("expected one webhook delivery with the summary, got %+v", env.notifier)
	}

	if n := env.workDirEntries(t); n != 0 {
		t.Errorf("expected empty work dir after success, found %d files", n)
	}
}

func TestProcessUploadConversionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.converter.err = errors.New("ffmpeg conversion: exit status 1: Invalid data found")

	_, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("junk"), "meeting.webm")
	if err == nil {
		t.Fatal("expected conversion error")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != StageConversion {
		t.Errorf("expected conversion stage, got %q", stageErr.Stage)
	}
	if !strings.Contains(stageErr.Detail, "Invalid data found") {
		t.Errorf("expected ffmpeg diagnostics in detail, got %q", stageErr.Detail)
	}

	if _, ok := env.store.Get(); ok {
		t.Error("transcript must be unchanged after conversion failure")
	}
	if env.transcriber.calls != 0 {
		t.Error("transcription must not run after conversion failure")
	}
	if n := env.workDirEntries(t); n != 0 {
		t.Errorf("expected temp files cleaned up, found %d", n)
	}
}

func TestProcessUploadTranscriptionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.Set("previous transcript")
	env.transcriber.err = errors.New("transcription failed after 2 attempts: 503")
	env.transcriber.text = ""

	_, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("audio"), "meeting.webm")
	if err == nil {
		t.Fatal("expected transcription error")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageTranscription {
		t.Fatalf("expected transcription StageError, got %v", err)
	}

	stored, _ := env.store.Get()
	if stored != "previous transcript" {
		t.Errorf("transcript must be unchanged, got %q", stored)
	}
	if n := env.workDirEntries(t); n != 0 {
		t.Errorf("expected temp files cleaned up, found %d", n)
	}
}

func TestProcessUploadSummarizationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.generator.summaryErr = errors.New("model overloaded")

	_, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("audio"), "meeting.webm")
	if err == nil {
		t.Fatal("expected summarization error")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageSummarization {
		t.Fatalf("expected summarization StageError, got %v", err)
	}

	// The transcript stage succeeded, so the store was overwritten
	stored, _ := env.store.Get()
	if stored != "the transcript" {
		t.Errorf("expected new transcript retained, got %q", stored)
	}

	if env.notifier.calls != 0 {
		t.Error("webhook must not fire after a failed summarization")
	}
	if n := env.workDirEntries(t); n != 0 {
		t.Errorf("expected temp files cleaned up, found %d", n)
	}
}

func TestProcessUploadWebhookFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("connection refused")

	result, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("audio"), "meeting.webm")
	if err != nil {
		t.Fatalf("webhook failure must not fail the upload: %v", err)
	}
	if result.Summary != "the summary" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestProcessUploadLastWriteWins(t *testing.T) {
	env := newTestEnv(t)

	env.transcriber.text = "first transcript"
	if _, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("a"), "a.webm"); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	env.transcriber.text = "second transcript"
	if _, err := env.pipeline.ProcessUpload(context.Background(), strings.NewReader("b"), "b.webm"); err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	stored, _ := env.store.Get()
	if stored != "second transcript" {
		t.Errorf("expected second transcript, got %q", stored)
	}
}

func TestAnswerValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, question := range []string{"", "   ", "\n\t"} {
		_, err := env.pipeline.Answer(context.Background(), question)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("question %q: expected ValidationError, got %v", question, err)
		}
	}
}

func TestAnswerWithoutTranscript(t *testing.T) {
	env := newTestEnv(t)

	answer, err := env.pipeline.Answer(context.Background(), "What was decided?")
	if err != nil {
		t.Fatalf("expected canned answer, got error: %v", err)
	}
	if answer != NoTranscriptAnswer {
		t.Errorf("expected canned answer, got %q", answer)
	}
}

func TestAnswerWithTranscript(t *testing.T) {
	env := newTestEnv(t)
	env.store.Set("we ship on Friday")

	answer, err := env.pipeline.Answer(context.Background(), "When do we ship?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("unexpected answer %q", answer)
	}
	if env.generator.lastTranscript != "we ship on Friday" {
		t.Errorf("generator received transcript %q", env.generator.lastTranscript)
	}
	if env.generator.lastQuestion != "When do we ship?" {
		t.Errorf("generator received question %q", env.generator.lastQuestion)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.Set("transcript")
	env.generator.answerErr = errors.New("model unavailable")

	_, err := env.pipeline.Answer(context.Background(), "Why?")

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageGeneration {
		t.Fatalf("expected generation StageError, got %v", err)
	}
	if !strings.Contains(stageErr.Detail, "model unavailable") {
		t.Errorf("expected downstream detail, got %q", stageErr.Detail)
	}
}

func TestProcessFile(t *testing.T) {
	env := newTestEnv(t)

	inbox := t.TempDir()
	path := inbox + "/standup.webm"
	if err := os.WriteFile(path, []byte("recording"), 0644); err != nil {
		t.Fatalf("failed to write recording: %v", err)
	}

	result, err := env.pipeline.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.Transcript != "the transcript" {
		t.Errorf("unexpected result: %+v", result)
	}

	// The inbox file itself is left in place for the caller to archive
	if _, err := os.Stat(path); err != nil {
		t.Errorf("inbox file must not be removed by the pipeline: %v", err)
	}
}
