package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MetricsService owns the Prometheus registry for HTTP traffic and timetable activity.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	generationDuration prometheus.Histogram
	sessionsPlaced     prometheus.Gauge
	conflictsOpen      prometheus.Gauge
	relocations        *prometheus.CounterVec
	snapshotOps        *prometheus.CounterVec
	publications       prometheus.Counter

	generations uint64
	accepted    uint64
	rejected    uint64
}

// MetricsSnapshot is a compact view of the counters for the status endpoint.
type MetricsSnapshot struct {
	Generations         uint64    `json:"generations"`
	RelocationsAccepted uint64    `json:"relocationsAccepted"`
	RelocationsRejected uint64    `json:"relocationsRejected"`
	Goroutines          int       `json:"goroutines"`
	GeneratedAt         time.Time `json:"generatedAt"`
}

// NewMetricsService registers the collectors on a private registry.
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

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Time spent placing a full timetable",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})

	sessionsPlaced := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_sessions_placed",
		Help: "Sessions placed by the last generation run",
	})

	conflictsOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_conflicts_open",
		Help: "Curriculum pairs left short by the last generation run",
	})

	relocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_relocations_total",
		Help: "Relocation attempts by outcome and rejection code",
	}, []string{"outcome", "code"})

	snapshotOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_snapshot_operations_total",
		Help: "Snapshot store operations by kind and result",
	}, []string{"op", "result"})

	publications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_publications_total",
		Help: "Timetable versions published",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationDuration, sessionsPlaced, conflictsOpen, relocations, snapshotOps, publications, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		generationDuration: generationDuration,
		sessionsPlaced:     sessionsPlaced,
		conflictsOpen:      conflictsOpen,
		relocations:        relocations,
		snapshotOps:        snapshotOps,
		publications:       publications,
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveGeneration records the outcome of a generation run.
func (m *MetricsService) ObserveGeneration(placed, conflicts int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(duration.Seconds())
	m.sessionsPlaced.Set(float64(placed))
	m.conflictsOpen.Set(float64(conflicts))
	atomic.AddUint64(&m.generations, 1)
}

// ObserveTimetableSize resets the gauges after a reset or restore.
func (m *MetricsService) ObserveTimetableSize(placed, conflicts int) {
	if m == nil {
		return
	}
	m.sessionsPlaced.Set(float64(placed))
	m.conflictsOpen.Set(float64(conflicts))
}

// RecordRelocation counts a relocation attempt.
func (m *MetricsService) RecordRelocation(result models.ValidationResult) {
	if m == nil {
		return
	}
	if result.OK {
		m.relocations.WithLabelValues("accepted", "").Inc()
		atomic.AddUint64(&m.accepted, 1)
		return
	}
	m.relocations.WithLabelValues("rejected", string(result.Code)).Inc()
	atomic.AddUint64(&m.rejected, 1)
}

// RecordSnapshot counts a snapshot store operation.
func (m *MetricsService) RecordSnapshot(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.snapshotOps.WithLabelValues(op, result).Inc()
}

// RecordPublication counts a published version.
func (m *MetricsService) RecordPublication() {
	if m == nil {
		return
	}
	m.publications.Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Generations:         atomic.LoadUint64(&m.generations),
		RelocationsAccepted: atomic.LoadUint64(&m.accepted),
		RelocationsRejected: atomic.LoadUint64(&m.rejected),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}
