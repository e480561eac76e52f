package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay gives the writer time to finish before the recording is read
const settleDelay = 500 * time.Millisecond

// Handler processes a recording dropped into the inbox directory
type Handler func(ctx context.Context, path string) error

// Watcher monitors an inbox directory and feeds new recordings into the
// processing handler. Files are removed from the inbox after successful
// processing.
type Watcher struct {
	inboxDir  string
	handler   Handler
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// New creates a watcher for the given inbox directory, creating the
// directory if needed
func New(inboxDir string, maxConcurrent int, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(inboxDir, 0755); err != nil {
		return nil, fmt.Errorf("create inbox directory: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsWatcher.Add(inboxDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Watcher{
		inboxDir:  inboxDir,
		handler:   handler,
		logger:    logger,
		watcher:   fsWatcher,
		semaphore: make(chan struct{}, maxConcurrent),
	}, nil
}

// Start blocks, dispatching new recordings until the context is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("Inbox watcher started",
		slog.String("dir", w.inboxDir),
		slog.Int("max_concurrent", cap(w.semaphore)),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Waiting for in-flight recordings to finish...")
			w.wg.Wait()
			w.logger.Info("Inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isAudioFile(event.Name) {
				w.logger.Debug("Ignoring non-audio file", slog.String("path", event.Name))
				continue
			}

			w.logger.Info("New recording detected", slog.String("path", event.Name))

			// Give the writer time to finish the file
			time.Sleep(settleDelay)

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()

					w.process(ctx, path)
				}(event.Name)
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("Watcher error", slog.String("error", err.Error()))
		}
	}
}

// Stop closes the underlying file watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) process(ctx context.Context, path string) {
	if err := w.handler(ctx, path); err != nil {
		w.logger.Error("Failed to process recording",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := os.Remove(path); err != nil {
		w.logger.Warn("Failed to remove processed recording",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	w.logger.Info("Recording processed and removed", slog.String("path", path))
}

func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supportedFormats := []string{".webm", ".wav", ".mp3", ".m4a", ".ogg", ".flac", ".mp4", ".mov"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}

	return false
}
