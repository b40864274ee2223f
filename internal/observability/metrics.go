// Package observability provides the Prometheus instruments for VoicePipe.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Webhook outcome labels.
const (
	OutcomeReply    = "reply"
	OutcomeReset    = "reset"
	OutcomeNoInput  = "no_input"
	OutcomeRejected = "rejected"
)

// Provider labels for external-service failures.
const (
	ProviderTwilio        = "twilio"
	ProviderTranscription = "transcription"
	ProviderCompletion    = "completion"
	ProviderSpeech        = "speech"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WebhookRequests  *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WebhookRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook requests by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "External provider failures by provider.",
		}, []string{"provider"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Speech synthesis latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 15000},
		}),
	}
}

// IncWebhookRequest counts one webhook request by outcome.
func (m *Metrics) IncWebhookRequest(outcome string) {
	if m == nil {
		return
	}
	m.WebhookRequests.WithLabelValues(outcome).Inc()
}

// IncProviderError counts one degraded external call.
func (m *Metrics) IncProviderError(provider string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider).Inc()
}

// ObserveSynthesisLatency records one synthesis duration.
func (m *Metrics) ObserveSynthesisLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
