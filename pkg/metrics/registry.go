// Package metrics provides Prometheus metrics collection for objfs components.
//
// All metrics are optional - if not initialized, components use no-op
// implementations that have zero overhead. This allows objfs to run with or
// without metrics collection enabled.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	storage, _ := objfs.New(objfs.Config{..., Metrics: metrics.NewStorageMetrics()})
//	backend := s3.NewS3Backend(ctx, s3.S3BackendConfig{..., Metrics: metrics.NewObjectMetrics()})
//
//	// Dump everything collected so far for the node_exporter textfile collector
//	metrics.WriteTextfile("/var/lib/node_exporter/objfs.prom")
//
// The CLI runs one operation per process, so metrics are written to a file at
// exit rather than scraped over HTTP.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry for all objfs metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return nil, which components treat as "no metrics".
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes the current value of every registered metric to path
// in the Prometheus text format. The file is replaced atomically.
func WriteTextfile(path string) error {
	if !IsEnabled() {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := prometheus.WriteToTextfile(path, GetRegistry()); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
