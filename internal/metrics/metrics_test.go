package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveAsk("knowledge_base", 20*time.Millisecond)
	m.ObserveAsk("knowledge_base", 10*time.Millisecond)
	m.ProviderFallback()
	m.Feedback(true)
	m.RowsServed("events", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.asks.WithLabelValues("knowledge_base")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerFallback))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedback.WithLabelValues("up")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.etlRows.WithLabelValues("events")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAsk("gemini", time.Second)
		m.ProviderFallback()
		m.Feedback(false)
		m.RowsServed("content", 1)
		m.ContentIngested(2)
		m.LiveClients(3)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ContentIngested(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "health_assistant_content_ingested_total 2")
}
