package config

import (
	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/metrics"
	"github.com/marmos91/objfs/pkg/objfs"
	"github.com/marmos91/objfs/pkg/store/object"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// StorageMetrics instruments objfs.Storage (nil if disabled)
	StorageMetrics objfs.Metrics

	// ObjectMetrics instruments the remote backends (nil if disabled)
	ObjectMetrics object.Metrics

	// Textfile is the path metrics are flushed to ("" if disabled)
	Textfile string
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled, every field is left nil and components fall back to
// their no-op implementations (zero overhead).
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		StorageMetrics: metrics.NewStorageMetrics(),
		ObjectMetrics:  metrics.NewObjectMetrics(),
		Textfile:       cfg.Metrics.Textfile,
	}
}

// Flush writes the collected metrics to the configured textfile, if any.
func (r *MetricsResult) Flush() error {
	if r == nil || r.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(r.Textfile); err != nil {
		return err
	}
	logger.Debug("Metrics written to %s", r.Textfile)
	return nil
}
