package metrics

import (
	"time"

	"github.com/marmos91/objfs/pkg/objfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storageMetrics is the Prometheus implementation of objfs.Metrics.
//
// This implementation collects metrics about filesystem operations including:
//   - Operation counts and latency, by operation and outcome
//   - Stat cache effectiveness
//   - Commit sizes and failures
//   - Rollbacks of the index after backend failures
//   - Open write handles
type storageMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
	commitsTotal      *prometheus.CounterVec
	commitBytes       prometheus.Histogram
	commitDuration    prometheus.Histogram
	rollbacksTotal    *prometheus.CounterVec
	pendingWrites     prometheus.Gauge
}

// NewStorageMetrics creates a new Prometheus-backed objfs.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes objfs.Storage to use its built-in no-op implementation.
func NewStorageMetrics() objfs.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newStorageMetrics(GetRegistry())
}

func newStorageMetrics(reg prometheus.Registerer) *storageMetrics {
	return &storageMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_operations_total",
				Help: "Total number of filesystem operations by operation and status",
			},
			[]string{"operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "objfs_operation_duration_seconds",
				Help: "Duration of filesystem operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
					30.0,   // 30s
				},
			},
			[]string{"operation"},
		),
		cacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_stat_cache_lookups_total",
				Help: "Total number of stat cache lookups by result",
			},
			[]string{"result"}, // hit or miss
		),
		commitsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_commits_total",
				Help: "Total number of staged writes committed to the object store by status",
			},
			[]string{"status"},
		),
		commitBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "objfs_commit_bytes",
				Help: "Size of committed files in bytes",
				Buckets: []float64{
					0,          // empty
					4096,       // 4KB
					65536,      // 64KB
					1048576,    // 1MB
					10485760,   // 10MB
					104857600,  // 100MB
					1073741824, // 1GB
				},
			},
		),
		commitDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "objfs_commit_duration_seconds",
				Help:    "Duration of commits in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
			},
		),
		rollbacksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_rollbacks_total",
				Help: "Total number of index changes undone after a backend failure",
			},
			[]string{"operation"},
		),
		pendingWrites: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "objfs_pending_writes",
				Help: "Current number of open write handles",
			},
		),
	}
}

// ObserveOperation implements objfs.Metrics.ObserveOperation
func (m *storageMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	status, code := "success", ""
	if err != nil {
		status = "error"
		code = errorCode(err)
	}

	m.operationsTotal.WithLabelValues(op, status, code).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCacheLookup implements objfs.Metrics.RecordCacheLookup
func (m *storageMetrics) RecordCacheLookup(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordCommit implements objfs.Metrics.RecordCommit
func (m *storageMetrics) RecordCommit(bytes int64, duration time.Duration, err error) {
	if err != nil {
		m.commitsTotal.WithLabelValues("error").Inc()
		return
	}

	m.commitsTotal.WithLabelValues("success").Inc()
	m.commitBytes.Observe(float64(bytes))
	m.commitDuration.Observe(duration.Seconds())
}

// RecordRollback implements objfs.Metrics.RecordRollback
func (m *storageMetrics) RecordRollback(op string) {
	m.rollbacksTotal.WithLabelValues(op).Inc()
}

// SetPendingWrites implements objfs.Metrics.SetPendingWrites
func (m *storageMetrics) SetPendingWrites(n int) {
	m.pendingWrites.Set(float64(n))
}

// errorCode maps an error to a low-cardinality label value.
func errorCode(err error) string {
	if code := objfs.CodeOf(err); code != 0 {
		return code.String()
	}
	return "other"
}
