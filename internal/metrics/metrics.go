// Package metrics собирает метрики Prometheus: HTTP-запросы и конвейер загрузки модулей.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics отдельный реестр со стандартными коллекторами.
// Метки только безопасные (method, route, status, outcome), без путей и имён файлов.
type Metrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight  prometheus.Gauge
	reqTotal  *prometheus.CounterVec
	reqDur    *prometheus.HistogramVec
	errsTotal *prometheus.CounterVec

	rateLimitDenied prometheus.Counter

	uploadsTotal     *prometheus.CounterVec
	uploadDur        prometheus.Histogram
	extractedBytes   prometheus.Histogram
	deletesTotal     *prometheus.CounterVec
	cleanupsTotal    *prometheus.CounterVec
	reconcileRemoved *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		errsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		rateLimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modulehub_uploads_total",
			Help: "Module uploads by outcome",
		}, []string{"outcome"}),
		uploadDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modulehub_upload_duration_seconds",
			Help:    "Time to stage, extract and register an uploaded module",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		extractedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modulehub_extracted_bytes",
			Help:    "Uncompressed size of extracted modules",
			Buckets: prometheus.ExponentialBuckets(64<<10, 4, 10),
		}),
		deletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modulehub_deletes_total",
			Help: "Module delete requests by outcome",
		}, []string{"outcome"}),
		cleanupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modulehub_cleanup_jobs_total",
			Help: "Deferred cleanup jobs by outcome",
		}, []string{"outcome"}),
		reconcileRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modulehub_reconcile_removed_total",
			Help: "Items removed by the startup reconciliation sweep",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.errsTotal,
		m.rateLimitDenied,
		m.uploadsTotal,
		m.uploadDur,
		m.extractedBytes,
		m.deletesTotal,
		m.cleanupsTotal,
		m.reconcileRemoved,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *Metrics) Handler() http.Handler {
	return m.handler
}

func (m *Metrics) IncRateLimitDenied() {
	m.rateLimitDenied.Inc()
}

// ObserveUpload outcome: ok, unresolved, rejected, too_large, failed
func (m *Metrics) ObserveUpload(outcome string, seconds float64, extracted int64) {
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	m.uploadDur.Observe(seconds)
	if extracted > 0 {
		m.extractedBytes.Observe(float64(extracted))
	}
}

func (m *Metrics) IncDelete(outcome string) {
	m.deletesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCleanup(outcome string) {
	m.cleanupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddReconcileRemoved(kind string, n int) {
	if n > 0 {
		m.reconcileRemoved.WithLabelValues(kind).Add(float64(n))
	}
}
