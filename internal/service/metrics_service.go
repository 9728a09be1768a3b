package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admission outcomes reported on admission_attempts_total.
const (
	OutcomeSuccess          = "success"
	OutcomeNotFound         = "not_found"
	OutcomeCapacityExceeded = "capacity_exceeded"
	OutcomeAlreadyEnrolled  = "already_enrolled"
	OutcomeNotEnrolled      = "not_enrolled"
	OutcomeBusy             = "busy"
	OutcomeError            = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	admissions       *prometheus.CounterVec
	admissionRetries *prometheus.CounterVec
	admissionLatency *prometheus.HistogramVec
	rankingDuration  *prometheus.HistogramVec
	recordRefresh    *prometheus.CounterVec
	recomputeJobs    *prometheus.CounterVec
	recordsMarked    prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	admissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_attempts_total",
		Help: "Enroll and drop requests by outcome",
	}, []string{"operation", "outcome"})

	admissionRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_retries_total",
		Help: "Atomic unit retries after transient contention",
	}, []string{"operation"})

	admissionLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admission_duration_seconds",
		Help:    "End-to-end duration of enroll and drop including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	rankingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ranking_duration_seconds",
		Help:    "Duration of ranking computations",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"target"})

	recordRefresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_record_refresh_total",
		Help: "Match record replacement batches by result",
	}, []string{"result"})

	recomputeJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recompute_jobs_total",
		Help: "Recompute trigger jobs by type and result",
	}, []string{"type", "result"})

	recordsMarked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_records_marked_stale_total",
		Help: "Match records flagged stale by recompute triggers",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		admissions, admissionRetries, admissionLatency,
		rankingDuration, recordRefresh, recomputeJobs, recordsMarked,
		goroutines,
	)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		admissions:       admissions,
		admissionRetries: admissionRetries,
		admissionLatency: admissionLatency,
		rankingDuration:  rankingDuration,
		recordRefresh:    recordRefresh,
		recomputeJobs:    recomputeJobs,
		recordsMarked:    recordsMarked,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveAdmission records the outcome and latency of an enroll or drop.
func (m *MetricsService) ObserveAdmission(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(operation, outcome).Inc()
	m.admissionLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncAdmissionRetry counts one retry of the atomic unit.
func (m *MetricsService) IncAdmissionRetry(operation string) {
	if m == nil {
		return
	}
	m.admissionRetries.WithLabelValues(operation).Inc()
}

// ObserveRanking records how long a ranking took.
func (m *MetricsService) ObserveRanking(target string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rankingDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordRefresh counts a match record replacement batch.
func (m *MetricsService) RecordRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.recordRefresh.WithLabelValues(result).Inc()
}

// RecordRecomputeJob counts a processed recompute job and the records it marked.
func (m *MetricsService) RecordRecomputeJob(jobType string, marked int64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.recomputeJobs.WithLabelValues(jobType, result).Inc()
	if marked > 0 {
		m.recordsMarked.Add(float64(marked))
	}
}
