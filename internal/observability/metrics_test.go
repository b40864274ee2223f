package observability

import (
	"testing"
	"time"
)

// A nil *Metrics must be safe everywhere: handlers run with metrics
// disabled in tests and degraded deployments.
func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.IncWebhookRequest(OutcomeReply)
	m.IncProviderError("speech")
	m.ObserveSynthesisLatency(time.Second)
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("voicepipe_test")
	m.IncWebhookRequest(OutcomeReset)
	m.IncProviderError("speech")
	m.ObserveSynthesisLatency(1500 * time.Millisecond)
}
