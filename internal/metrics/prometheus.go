package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the meeting scribe service
type Metrics struct {
	// Upload pipeline metrics
	UploadsReceived  prometheus.Counter
	UploadsSucceeded prometheus.Counter
	StageFailures    *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	AudioDuration    prometheus.Histogram
	TranscriptChars  prometheus.Histogram

	// Chat metrics
	ChatRequests prometheus.Counter
	ChatFailures prometheus.Counter

	// Webhook metrics
	WebhookDeliveries prometheus.Counter
	WebhookFailures   prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer. Tests pass a
// fresh registry so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Upload pipeline metrics
		UploadsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_uploads_received_total",
			Help: "Total number of audio uploads received",
		}),
		UploadsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_uploads_succeeded_total",
			Help: "Total number of uploads that completed the full pipeline",
		}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_stage_failures_total",
			Help: "Total number of pipeline failures by stage",
		}, []string{"stage"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_pipeline_duration_seconds",
			Help:    "End-to-end duration of the upload pipeline",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8.5 minutes
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}, []string{"stage"}),
		AudioDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_audio_duration_seconds",
			Help:    "Duration of normalized meeting recordings",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10s to ~3 hours
		}),
		TranscriptChars: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_transcript_chars",
			Help:    "Length of produced transcripts in characters",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8), // 100 chars to ~1.6M
		}),

		// Chat metrics
		ChatRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_chat_requests_total",
			Help: "Total number of chat questions received",
		}),
		ChatFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_chat_failures_total",
			Help: "Total number of failed chat generations",
		}),

		// Webhook metrics
		WebhookDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_webhook_deliveries_total",
			Help: "Total number of successful webhook deliveries",
		}),
		WebhookFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_webhook_failures_total",
			Help: "Total number of failed webhook deliveries",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordUploadReceived increments the uploads received counter
func (m *Metrics) RecordUploadReceived() {
	m.UploadsReceived.Inc()
}

// RecordUploadSucceeded records a completed pipeline run
func (m *Metrics) RecordUploadSucceeded(durationSeconds float64) {
	m.UploadsSucceeded.Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordStageFailure increments the failure counter for a pipeline stage
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordStageDuration records how long a pipeline stage took
func (m *Metrics) RecordStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordAudio records the duration of a normalized recording
func (m *Metrics) RecordAudio(durationSeconds float64) {
	m.AudioDuration.Observe(durationSeconds)
}

// RecordTranscript records the length of a produced transcript
func (m *Metrics) RecordTranscript(chars int) {
	m.TranscriptChars.Observe(float64(chars))
}

// RecordChatRequest increments the chat requests counter
func (m *Metrics) RecordChatRequest() {
	m.ChatRequests.Inc()
}

// RecordChatFailure increments the chat failures counter
func (m *Metrics) RecordChatFailure() {
	m.ChatFailures.Inc()
}

// RecordWebhookDelivery records the outcome of a webhook delivery attempt
func (m *Metrics) RecordWebhookDelivery(success bool) {
	if success {
		m.WebhookDeliveries.Inc()
	} else {
		m.WebhookFailures.Inc()
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
