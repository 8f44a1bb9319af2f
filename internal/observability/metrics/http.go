package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

const namespace = "legal_dashboard"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queueJobs       *prometheus.GaugeVec
	cacheOpsTotal   *prometheus.CounterVec
	analysesTotal   *prometheus.CounterVec
	scrapeStarted   *prometheus.CounterVec
	wsConnections   prometheus.Gauge
	eventsPublished *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueJobs := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs",
			Help:      "Jobs held by the in-process queue by state.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"state"},
	)
	cacheOpsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by backend and result.",
		},
		[]string{"service", "backend", "op", "result"},
	)
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "analyses_total",
			Help:      "Text analyses by type and status.",
		},
		[]string{"service", "type", "status"},
	)
	scrapeStarted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraping",
			Name:      "jobs_started_total",
			Help:      "Scrape jobs accepted by dispatch mode.",
		},
		[]string{"service", "mode"},
	)
	wsConnections := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Open websocket connections.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventsPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Realtime events published by type.",
		},
		[]string{"service", "type"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queueJobs,
		cacheOpsTotal,
		analysesTotal,
		scrapeStarted,
		wsConnections,
		eventsPublished,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		queueJobs:       queueJobs,
		cacheOpsTotal:   cacheOpsTotal,
		analysesTotal:   analysesTotal,
		scrapeStarted:   scrapeStarted,
		wsConnections:   wsConnections,
		eventsPublished: eventsPublished,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MustRegister adds collectors owned by other components, such as the
// in-process scrape worker, to the API registry.
func (m *HTTPServerMetrics) MustRegister(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/scraping/status/"):
		return "/api/scraping/status/{id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) SetQueueCounts(counts domain.JobCounts) {
	m.queueJobs.WithLabelValues(string(domain.JobWaiting)).Set(float64(counts.Waiting))
	m.queueJobs.WithLabelValues(string(domain.JobActive)).Set(float64(counts.Active))
	m.queueJobs.WithLabelValues(string(domain.JobCompleted)).Set(float64(counts.Completed))
	m.queueJobs.WithLabelValues(string(domain.JobFailed)).Set(float64(counts.Failed))
	m.queueJobs.WithLabelValues(string(domain.JobDelayed)).Set(float64(counts.Delayed))
}

func (m *HTTPServerMetrics) RecordCacheOp(backend, op, result string) {
	if backend == "" {
		backend = "unknown"
	}
	m.cacheOpsTotal.WithLabelValues(m.service, backend, op, result).Inc()
}

func (m *HTTPServerMetrics) RecordAnalysis(analysisType string, err error) {
	if analysisType == "" {
		analysisType = "unknown"
	}
	m.analysesTotal.WithLabelValues(m.service, analysisType, statusLabel(err)).Inc()
}

func (m *HTTPServerMetrics) RecordScrapeStarted(mode string) {
	m.scrapeStarted.WithLabelValues(m.service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordEvent(eventType string) {
	m.eventsPublished.WithLabelValues(m.service, eventType).Inc()
}

// WebSocketConnections is handed to the realtime hub.
func (m *HTTPServerMetrics) WebSocketConnections() prometheus.Gauge {
	return m.wsConnections
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
