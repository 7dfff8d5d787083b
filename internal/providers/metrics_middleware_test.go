package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockMetrics struct {
	requestEndpoint string
	requestStatus   int
	requestCalls    int
	durationCalls   int
	cacheHits       int
	cacheMisses     int
}

func (m *mockMetrics) IncCommand(_, _, _ string) {}
func (m *mockMetrics) IncBroadcast()             {}
func (m *mockMetrics) IncSessionStarted()        {}
func (m *mockMetrics) IncSessionCompleted()      {}
func (m *mockMetrics) IncTelemetryTick()         {}
func (m *mockMetrics) SetConnectedClients(_ int) {}
func (m *mockMetrics) IncCacheHits()             { m.cacheHits++ }
func (m *mockMetrics) IncCacheMisses()           { m.cacheMisses++ }

func (m *mockMetrics) ObservePersistenceDuration(_ time.Duration) {}

func (m *mockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.requestEndpoint = endpoint
	m.requestStatus = status
	m.requestCalls++
}

func (m *mockMetrics) ObserveRequestDuration(_ string, _ time.Duration) { m.durationCalls++ }

func TestMetricsMiddleware_CapturesStatusAndEndpoint(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	mw := MetricsMiddleware(metrics, handler)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, 1, metrics.requestCalls)
	assert.Equal(t, "/sessions", metrics.requestEndpoint)
	assert.Equal(t, http.StatusCreated, metrics.requestStatus)
	assert.Equal(t, 1, metrics.durationCalls)
}

func TestMetricsMiddleware_DefaultStatus200(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mw := MetricsMiddleware(metrics, handler)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, metrics.requestStatus)
}

func TestMetricsMiddleware_CollapsesTagIds(t *testing.T) {
	metrics := &mockMetrics{}
	mw := MetricsMiddleware(metrics, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodDelete, "/rfids/CARD-0042", nil)
	mw.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/rfids/{rfidId}", metrics.requestEndpoint)

	req = httptest.NewRequest(http.MethodPost, "/simulate-rfid/123456789", nil)
	mw.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/simulate-rfid/{rfidId}", metrics.requestEndpoint)
}

func TestEndpointLabel_StaticPathsPassThrough(t *testing.T) {
	assert.Equal(t, "/rfids", endpointLabel("/rfids"))
	assert.Equal(t, "/rfids/sync", endpointLabel("/rfids/sync"))
	assert.Equal(t, "/sessions/active", endpointLabel("/sessions/active"))
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
