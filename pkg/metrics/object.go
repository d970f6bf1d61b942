package metrics

import (
	"time"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// objectMetrics is the Prometheus implementation of object.Metrics, shared by
// the remote backends and labelled by backend name.
type objectMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
}

// NewObjectMetrics creates a new Prometheus-backed object.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the backends to use object.NoopMetrics.
func NewObjectMetrics() object.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newObjectMetrics(GetRegistry())
}

func newObjectMetrics(reg prometheus.Registerer) *objectMetrics {
	return &objectMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_backend_operations_total",
				Help: "Total number of object store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "objfs_backend_operation_duration_seconds",
				Help: "Duration of object store operations in seconds",
				Buckets: []float64{
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
					30.0,  // 30s
				},
			},
			[]string{"backend", "operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_backend_bytes_transferred_total",
				Help: "Total bytes transferred to and from the object store",
			},
			[]string{"backend", "direction"}, // read or write
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "objfs_backend_errors_total",
				Help: "Total number of object store errors by backend and operation",
			},
			[]string{"backend", "operation"},
		),
	}
}

// ObserveOperation implements object.Metrics.ObserveOperation
func (m *objectMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(backend, operation).Inc()
	}

	m.operationsTotal.WithLabelValues(backend, operation, status).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordBytes implements object.Metrics.RecordBytes
func (m *objectMetrics) RecordBytes(backend, direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(backend, direction).Add(float64(bytes))
}
