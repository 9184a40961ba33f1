package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	asks             *prometheus.CounterVec
	askLatency       prometheus.Histogram
	providerFallback prometheus.Counter
	feedback         *prometheus.CounterVec
	etlRows          *prometheus.CounterVec
	contentIngested  prometheus.Counter
	liveClients      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.asks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Name:      "asks_total",
		Help:      "Answered questions by answer strategy",
	}, []string{"strategy"})
	m.askLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "health_assistant",
		Name:      "ask_latency_seconds",
		Help:      "Time spent generating an answer",
		Buckets:   []float64{0.005, 0.05, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
	m.providerFallback = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Name:      "provider_fallbacks_total",
		Help:      "Provider failures answered by the local knowledge base",
	})
	m.feedback = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Name:      "feedback_total",
		Help:      "Feedback received by vote",
	}, []string{"vote"})
	m.etlRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Name:      "etl_rows_served_total",
		Help:      "Rows returned by the export endpoints",
	}, []string{"resource"})
	m.contentIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "health_assistant",
		Name:      "content_ingested_total",
		Help:      "Content rows added by ingestion",
	})
	m.liveClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_assistant",
		Name:      "live_clients",
		Help:      "Connected live feed subscribers",
	})

	m.registry.MustRegister(
		m.asks, m.askLatency, m.providerFallback, m.feedback,
		m.etlRows, m.contentIngested, m.liveClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAsk(strategy string, d time.Duration) {
	if m == nil {
		return
	}
	m.asks.WithLabelValues(strategy).Inc()
	m.askLatency.Observe(d.Seconds())
}

func (m *Metrics) ProviderFallback() {
	if m == nil {
		return
	}
	m.providerFallback.Inc()
}

func (m *Metrics) Feedback(thumbsUp bool) {
	if m == nil {
		return
	}
	vote := "down"
	if thumbsUp {
		vote = "up"
	}
	m.feedback.WithLabelValues(vote).Inc()
}

func (m *Metrics) RowsServed(resource string, n int) {
	if m == nil {
		return
	}
	m.etlRows.WithLabelValues(resource).Add(float64(n))
}

func (m *Metrics) ContentIngested(n int) {
	if m == nil {
		return
	}
	m.contentIngested.Add(float64(n))
}

func (m *Metrics) LiveClients(n int) {
	if m == nil {
		return
	}
	m.liveClients.Set(float64(n))
}
