// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ticksTotal        prometheus.Counter
	anomaliesTotal    *prometheus.CounterVec
	messagesTotal     *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	optimizeDuration  *prometheus.HistogramVec
	optimizeErrors    *prometheus.CounterVec
	unitHealth        *prometheus.GaugeVec
	wsClients         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_ticks_total",
			Help: "Total coordination ticks processed across all units.",
		}),
		anomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_anomalies_total",
			Help: "Total anomalous readings by unit and severity.",
		}, []string{"unit", "severity"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_messages_total",
			Help: "Total agent messages logged by kind (local, cross_unit, diagnostic).",
		}, []string{"kind"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_readings_rejected_total",
			Help: "Total readings rejected at validation by unit.",
		}, []string{"unit"}),
		optimizeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "optimization_duration_seconds",
			Help:    "Histogram of optimization solve durations by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		optimizeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optimization_errors_total",
			Help: "Total failed optimization requests by kind.",
		}, []string{"kind"}),
		unitHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unit_health_score",
			Help: "Latest per-unit health score (50-100).",
		}, []string{"unit"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Currently connected websocket clients.",
		}),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.ticksTotal,
		m.anomaliesTotal,
		m.messagesTotal,
		m.rejectedTotal,
		m.optimizeDuration,
		m.optimizeErrors,
		m.unitHealth,
		m.wsClients,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// TickProcessed, AnomalyDetected, MessageLogged and ReadingRejected implement
// the coordination engine's instrumentation surface.

func (m *Metrics) TickProcessed() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

func (m *Metrics) AnomalyDetected(unit, severity string) {
	if m == nil {
		return
	}
	m.anomaliesTotal.WithLabelValues(unit, severity).Inc()
}

func (m *Metrics) MessageLogged(kind string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReadingRejected(unit string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(unit).Inc()
}

func (m *Metrics) OptimizationDone(kind string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.optimizeDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if !success {
		m.optimizeErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetUnitHealth(unit string, score float64) {
	if m == nil {
		return
	}
	m.unitHealth.WithLabelValues(unit).Set(score)
}

func (m *Metrics) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
