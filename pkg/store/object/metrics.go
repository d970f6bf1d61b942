package object

import (
	"io"
	"time"
)

// Metrics provides observability for remote backend operations.
//
// This is optional: backends fall back to a no-op implementation when no
// Metrics is configured. See pkg/metrics for the Prometheus implementation.
type Metrics interface {
	// ObserveOperation records one backend call with its duration and outcome
	ObserveOperation(backend, operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred ("read" or "write")
	RecordBytes(backend, direction string, bytes int64)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {}
func (NoopMetrics) RecordBytes(backend, direction string, bytes int64)                            {}

// MetricsOrNoop returns m, or NoopMetrics if m is nil.
func MetricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return NoopMetrics{}
	}
	return m
}

// CountingReader wraps an io.ReadCloser and reports the bytes read on Close.
type CountingReader struct {
	io.ReadCloser

	Metrics Metrics
	Backend string

	bytesRead int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.bytesRead += int64(n)
	return n, err
}

// Close closes the underlying reader. Bytes are recorded regardless of the
// close error.
func (c *CountingReader) Close() error {
	err := c.ReadCloser.Close()
	if c.bytesRead > 0 {
		c.Metrics.RecordBytes(c.Backend, "read", c.bytesRead)
	}
	return err
}
