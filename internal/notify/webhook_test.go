package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyDeliversPayload(t *testing.T) {
	var received Payload
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := n.Notify(context.Background(), "the summary", "the transcript"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("expected application/json, got %q", contentType)
	}
	if received.Summary != "the summary" || received.Transcript != "the transcript" {
		t.Errorf("unexpected payload: %+v", received)
	}

	stats := n.GetStats()
	if !stats.Configured || stats.Delivered != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestNotifyUnconfiguredIsNoop(t *testing.T) {
	n := NewWebhookNotifier("", time.Second, testLogger())
	if n.Enabled() {
		t.Error("expected notifier to be disabled without a URL")
	}
	if err := n.Notify(context.Background(), "s", "t"); err != nil {
		t.Errorf("unconfigured Notify must return nil, got %v", err)
	}

	stats := n.GetStats()
	if stats.Configured || stats.Delivered != 0 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestNotifySwallowsFailures(t *testing.T) {
	t.Run("unreachable host", func(t *testing.T) {
		n := NewWebhookNotifier("http://127.0.0.1:1/hook", 100*time.Millisecond, testLogger())
		if err := n.Notify(context.Background(), "s", "t"); err == nil {
			t.Error("expected delivery error")
		}

		if stats := n.GetStats(); stats.Failed != 1 {
			t.Errorf("expected 1 failure, got %d", stats.Failed)
		}
	})

	t.Run("non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(srv.URL, time.Second, testLogger())
		if err := n.Notify(context.Background(), "s", "t"); err == nil {
			t.Error("expected error for non-2xx response")
		}

		if stats := n.GetStats(); stats.Failed != 1 || stats.Delivered != 0 {
			t.Errorf("unexpected stats: %+v", n.GetStats())
		}
	})
}
