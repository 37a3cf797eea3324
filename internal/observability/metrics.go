package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "stow_desktop"

// Result labels shared by the counters below
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultTimeout = "timeout"
	ResultDropped = "dropped"
)

// Metrics holds the launcher's Prometheus collectors on a private registry
type Metrics struct {
	logger   *zap.SugaredLogger
	registry *prometheus.Registry

	startTime time.Time

	uptime        prometheus.GaugeFunc
	serverSpawns  *prometheus.CounterVec
	serverRunning prometheus.Gauge
	serverExits   *prometheus.CounterVec
	probeResults  *prometheus.CounterVec
	probeDuration prometheus.Histogram
	rescans       *prometheus.CounterVec
	commands      *prometheus.CounterVec
	windowState   *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them
func NewMetrics(logger *zap.SugaredLogger) *Metrics {
	m := &Metrics{
		logger:    logger,
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.initMetrics()
	m.registerMetrics()

	return m
}

func (m *Metrics) initMetrics() {
	m.uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since the launcher started",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	m.serverSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_spawns_total",
			Help:      "Server spawn attempts",
		},
		[]string{"result"}, // success, failed
	)

	m.serverRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_running",
		Help:      "1 while a server child process is tracked",
	})

	m.serverExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_exits_total",
			Help:      "Server child exits observed by the supervisor",
		},
		[]string{"reason"}, // stopped, exited, crashed
	)

	m.probeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Readiness probe outcomes",
		},
		[]string{"result"}, // success, timeout
	)

	m.probeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "Time until the server accepted connections or the probe gave up",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
	})

	m.rescans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rescans_total",
			Help:      "Rescan requests by outcome",
		},
		[]string{"result"}, // success, failed, dropped
	)

	m.commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled by the dispatcher",
		},
		[]string{"command"},
	)

	m.windowState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_state",
			Help:      "1 for the current window state",
		},
		[]string{"state"},
	)

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Control API requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Control API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.uptime,
		m.serverSpawns,
		m.serverRunning,
		m.serverExits,
		m.probeResults,
		m.probeDuration,
		m.rescans,
		m.commands,
		m.windowState,
		m.httpRequests,
		m.httpDuration,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSpawn records a server spawn attempt
func (m *Metrics) RecordSpawn(result string) {
	m.serverSpawns.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.serverRunning.Set(1)
	}
}

// RecordExit records that the tracked child is gone
func (m *Metrics) RecordExit(reason string) {
	m.serverExits.WithLabelValues(reason).Inc()
	m.serverRunning.Set(0)
}

// RecordProbe records a readiness probe outcome
func (m *Metrics) RecordProbe(ready bool, duration time.Duration) {
	result := ResultTimeout
	if ready {
		result = ResultSuccess
	}
	m.probeResults.WithLabelValues(result).Inc()
	m.probeDuration.Observe(duration.Seconds())
}

// RecordRescan records a rescan outcome
func (m *Metrics) RecordRescan(result string) {
	m.rescans.WithLabelValues(result).Inc()
}

// RecordCommand records a dispatched command
func (m *Metrics) RecordCommand(command string) {
	m.commands.WithLabelValues(command).Inc()
}

// SetWindowState marks state as the current window state
func (m *Metrics) SetWindowState(state string, all ...string) {
	for _, s := range all {
		m.windowState.WithLabelValues(s).Set(0)
	}
	m.windowState.WithLabelValues(state).Set(1)
}

// RecordHTTPRequest records a control API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// HTTPMiddleware returns middleware that records HTTP metrics
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			m.RecordHTTPRequest(r.Method, r.URL.Path, http.StatusText(ww.statusCode), time.Since(start))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
