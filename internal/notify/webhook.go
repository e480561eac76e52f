package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Notifier forwards a summary and transcript after a successful upload.
// Notify returns the delivery error for accounting only; callers must not
// fail the pipeline on it.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, summary, transcript string) error
}

// WebhookNotifier posts {summary, transcript} to a configured URL. A missing
// URL makes every call a no-op. Failures are logged and swallowed: the
// webhook must never fail the pipeline.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger

	// Statistics
	delivered uint64
	failed    uint64
	mu        sync.RWMutex
}

// Payload is the JSON body posted to the webhook
type Payload struct {
	Summary    string `json:"summary"`
	Transcript string `json:"transcript"`
}

// Stats represents delivery statistics
type Stats struct {
	Configured bool   `json:"configured"`
	Delivered  uint64 `json:"delivered"`
	Failed     uint64 `json:"failed"`
}

// NewWebhookNotifier creates a notifier for the given URL; an empty URL
// disables delivery entirely.
func NewWebhookNotifier(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether a webhook URL is configured
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// Notify posts the summary and transcript to the webhook, if configured
func (n *WebhookNotifier) Notify(ctx context.Context, summary, transcript string) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(Payload{Summary: summary, Transcript: transcript})
	if err != nil {
		n.recordFailure()
		n.logger.Warn("Failed to encode webhook payload", slog.String("error", err.Error()))
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.recordFailure()
		n.logger.Warn("Failed to create webhook request", slog.String("error", err.Error()))
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.recordFailure()
		n.logger.Warn("Webhook delivery failed",
			slog.String("url", n.url),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.recordFailure()
		n.logger.Warn("Webhook returned non-2xx status",
			slog.String("url", n.url),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.recordDelivery()
	n.logger.Info("Posted summary to webhook", slog.String("url", n.url))
	return nil
}

func (n *WebhookNotifier) recordDelivery() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered++
}

func (n *WebhookNotifier) recordFailure() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
}

// GetStats returns delivery statistics
func (n *WebhookNotifier) GetStats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return Stats{
		Configured: n.url != "",
		Delivered:  n.delivered,
		Failed:     n.failed,
	}
}
