package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRouter(t *testing.T) (http.Handler, *mocks, *observer.ObservedLogs) {
	t.Helper()
	obs, logs := observer.New(zapcore.InfoLevel)
	m := &mocks{
		assistant: new(MockAssistant),
		exporter:  new(MockExporter),
		ingester:  new(MockIngester),
		analytics: new(MockAnalytics),
	}
	h := NewAPIHandler(m.assistant, m.exporter, m.ingester, m.analytics, testBearer, zap.New(obs))
	return NewRouter(h, RouterOptions{APIBase: "/api"}), m, logs
}

func TestAccessLogGoesToZap(t *testing.T) {
	router, _, logs := newObservedRouter(t)

	w := do(t, router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.FilterMessage("Request served").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/api/health", fields["path"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestPanicIsLoggedToZap(t *testing.T) {
	router, m, logs := newObservedRouter(t)
	m.assistant.On("Ask", mock.Anything, "boom").Run(func(mock.Arguments) { panic("boom") })

	w := do(t, router, http.MethodPost, "/api/ask", `{"question":"boom"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	panics := logs.FilterMessage("Request panicked").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "boom", panics[0].ContextMap()["panic"])

	served := logs.FilterMessage("Request served").All()
	require.Len(t, served, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), served[0].ContextMap()["status"])
}
