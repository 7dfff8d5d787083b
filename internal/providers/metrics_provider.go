package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chargersim/internal/structures"
)

type MetricsProviderInterface interface {
	IncCommand(dialect, command, outcome string)
	IncBroadcast()
	IncSessionStarted()
	IncSessionCompleted()
	IncTelemetryTick()
	SetConnectedClients(count int)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
}

type MetricsProvider struct {
	commandsTotal       *prometheus.CounterVec
	broadcastsTotal     prometheus.Counter
	sessionsStarted     prometheus.Counter
	sessionsCompleted   prometheus.Counter
	telemetryTicks      prometheus.Counter
	connectedClients    prometheus.Gauge
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

func (m *MetricsProvider) IncCommand(dialect, command, outcome string) {
	m.commandsTotal.WithLabelValues(dialect, command, outcome).Inc()
}

func (m *MetricsProvider) IncBroadcast() {
	m.broadcastsTotal.Inc()
}

func (m *MetricsProvider) IncSessionStarted() {
	m.sessionsStarted.Inc()
}

func (m *MetricsProvider) IncSessionCompleted() {
	m.sessionsCompleted.Inc()
}

func (m *MetricsProvider) IncTelemetryTick() {
	m.telemetryTicks.Inc()
}

func (m *MetricsProvider) SetConnectedClients(count int) {
	m.connectedClients.Set(float64(count))
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		commandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chargersim_commands_total",
			Help: "Total number of protocol commands handled",
		}, []string{"dialect", "command", "outcome"}),

		broadcastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chargersim_broadcasts_total",
			Help: "Total number of messages fanned out to all clients",
		}),

		sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chargersim_sessions_started_total",
			Help: "Total number of charging sessions started",
		}),

		sessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chargersim_sessions_completed_total",
			Help: "Total number of charging sessions completed",
		}),

		telemetryTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chargersim_telemetry_ticks_total",
			Help: "Total number of telemetry samples generated",
		}),

		connectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chargersim_connected_clients",
			Help: "Number of currently connected WebSocket clients",
		}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chargersim_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chargersim_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chargersim_persistence_duration_seconds",
			Help:    "Persistence write duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chargersim_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chargersim_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

type noopMetrics struct{}

func (n *noopMetrics) IncCommand(_, _, _ string)                            {}
func (n *noopMetrics) IncBroadcast()                                        {}
func (n *noopMetrics) IncSessionStarted()                                   {}
func (n *noopMetrics) IncSessionCompleted()                                 {}
func (n *noopMetrics) IncTelemetryTick()                                    {}
func (n *noopMetrics) SetConnectedClients(_ int)                            {}
func (n *noopMetrics) IncCacheHits()                                        {}
func (n *noopMetrics) IncCacheMisses()                                      {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)           {}
func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                     {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)     {}
