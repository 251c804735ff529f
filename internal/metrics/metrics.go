package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for the site
type Metrics struct {
	// HTTP
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// Listings
	QueryDurationSeconds *prometheus.HistogramVec

	// Blob store and research mirror
	StorageOperationsTotal *prometheus.CounterVec
	StorageOrphansTotal    prometheus.Counter
	MirrorOperationsTotal  *prometheus.CounterVec

	// Applications
	ApplicationsSubmittedTotal *prometheus.CounterVec
	RateLimitExceededTotal     *prometheus.CounterVec
	NotificationsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orangehats_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_http_errors_total",
				Help: "Total number of HTTP error responses by category",
			},
			[]string{"type"},
		),
		QueryDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orangehats_query_duration_seconds",
				Help:    "Paginated listing duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_storage_operations_total",
				Help: "Total number of blob store operations",
			},
			[]string{"op", "result"},
		),
		StorageOrphansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orangehats_storage_orphaned_temp_total",
				Help: "Temporary uploads left behind after relocation",
			},
		),
		MirrorOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_mirror_operations_total",
				Help: "Total number of research mirror operations",
			},
			[]string{"op", "result"},
		),
		ApplicationsSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_applications_submitted_total",
				Help: "Total number of submitted applications",
			},
			[]string{"kind"},
		),
		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_applications_rate_limited_total",
				Help: "Total number of submissions rejected by the rate limiter",
			},
			[]string{"level"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orangehats_notifications_total",
				Help: "Total number of application notification mails",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.QueryDurationSeconds,
		m.StorageOperationsTotal,
		m.StorageOrphansTotal,
		m.MirrorOperationsTotal,
		m.ApplicationsSubmittedTotal,
		m.RateLimitExceededTotal,
		m.NotificationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveQuery records the duration of a listing
func ObserveQuery(entity string, seconds float64) {
	if m := Global(); m != nil {
		m.QueryDurationSeconds.WithLabelValues(entity).Observe(seconds)
	}
}

// IncStorageOp counts a blob store operation
func IncStorageOp(op string, err error) {
	if m := Global(); m != nil {
		m.StorageOperationsTotal.WithLabelValues(op, result(err)).Inc()
	}
}

// IncStorageOrphan counts a temporary upload that could not be removed
func IncStorageOrphan() {
	if m := Global(); m != nil {
		m.StorageOrphansTotal.Inc()
	}
}

// IncMirrorOp counts a research mirror operation
func IncMirrorOp(op string, err error) {
	if m := Global(); m != nil {
		m.MirrorOperationsTotal.WithLabelValues(op, result(err)).Inc()
	}
}

// IncApplicationSubmitted counts an accepted application
func IncApplicationSubmitted(kind string) {
	if m := Global(); m != nil {
		m.ApplicationsSubmittedTotal.WithLabelValues(kind).Inc()
	}
}

// IncRateLimitExceeded increments rate limit exceeded counter
func IncRateLimitExceeded(level string) {
	if m := Global(); m != nil {
		m.RateLimitExceededTotal.WithLabelValues(level).Inc()
	}
}

// IncNotification counts a notification mail attempt
func IncNotification(err error) {
	if m := Global(); m != nil {
		m.NotificationsTotal.WithLabelValues(result(err)).Inc()
	}
}
