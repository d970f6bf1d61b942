package objfs

import "time"

// Metrics provides observability for Storage operations.
//
// This is optional: New falls back to a no-op implementation. See
// pkg/metrics for the Prometheus implementation.
type Metrics interface {
	// ObserveOperation records one public operation with its duration and outcome
	ObserveOperation(op string, duration time.Duration, err error)

	// RecordCacheLookup records a stat cache hit or miss
	RecordCacheLookup(hit bool)

	// RecordCommit records one staged write reaching the backend
	RecordCommit(bytes int64, duration time.Duration, err error)

	// RecordRollback records an index change undone after a backend failure
	RecordRollback(op string)

	// SetPendingWrites reports the number of open write handles
	SetPendingWrites(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(op string, duration time.Duration, err error) {}
func (noopMetrics) RecordCacheLookup(hit bool)                                    {}
func (noopMetrics) RecordCommit(bytes int64, duration time.Duration, err error)   {}
func (noopMetrics) RecordRollback(op string)                                      {}
func (noopMetrics) SetPendingWrites(n int)                                        {}

// observe is deferred by public operations:
//
//	defer s.observe("mkdir", time.Now(), &err)
func (s *Storage) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, time.Since(start), *err)
}
