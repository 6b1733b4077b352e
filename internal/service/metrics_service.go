package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Commit outcomes reported by RecordCommit.
const (
	CommitOutcomeSuccess  = "success"
	CommitOutcomeConflict = "conflict"
	CommitOutcomeFailure  = "failure"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	commits         *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	orphanedMedia   prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_duration_seconds",
		Help:    "Latency of remote object store calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op", "status"})

	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_commits_total",
		Help: "Snapshot and media commits by kind and outcome",
	}, []string{"kind", "outcome"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_cache_lookups_total",
		Help: "Public snapshot cache lookups",
	}, []string{"result"})

	orphanedMedia := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orphaned_media_total",
		Help: "Media files committed whose snapshot commit then failed",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, storeDuration, commits, cacheLookups, orphanedMedia, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		storeDuration:   storeDuration,
		commits:         commits,
		cacheLookups:    cacheLookups,
		orphanedMedia:   orphanedMedia,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveStoreOperation implements storage.Observer.
func (m *MetricsService) ObserveStoreOperation(op string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(op, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordCommit counts a snapshot or media commit attempt.
func (m *MetricsService) RecordCommit(kind, outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(kind, outcome).Inc()
}

// RecordCacheLookup counts snapshot cache hits and misses.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordOrphanedMedia counts media left behind by a failed snapshot commit.
func (m *MetricsService) RecordOrphanedMedia() {
	if m == nil {
		return
	}
	m.orphanedMedia.Inc()
}
